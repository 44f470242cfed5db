// Package dataset turns CSV and numpy files into (input, target) rows for
// training a toolbox.Network.
package dataset

import (
	"fmt"
	"math/rand"
)

// Sample is one (input row, target row) pair.
type Sample struct {
	Input  []float32
	Target []float32
}

// Set holds the training and test samples of a data set.  Every input row
// has length InputSize and every target row has length TargetSize.
type Set struct {
	inputSize  int
	targetSize int

	training []Sample
	test     []Sample
}

// NewSet validates that all rows have consistent widths.
func NewSet(training, test []Sample) (*Set, error) {
	if len(training) == 0 {
		return nil, fmt.Errorf("no training samples")
	}
	s := &Set{
		inputSize:  len(training[0].Input),
		targetSize: len(training[0].Target),
		training:   training,
		test:       test,
	}
	for name, samples := range map[string][]Sample{"training": training, "test": test} {
		for i, sample := range samples {
			if len(sample.Input) != s.inputSize || len(sample.Target) != s.targetSize {
				return nil, fmt.Errorf("%s sample %d has widths (%d, %d), want (%d, %d)",
					name, i, len(sample.Input), len(sample.Target), s.inputSize, s.targetSize)
			}
		}
	}
	return s, nil
}

func (s *Set) InputSize() int  { return s.inputSize }
func (s *Set) TargetSize() int { return s.targetSize }

func (s *Set) Training() []Sample { return s.training }
func (s *Set) Test() []Sample     { return s.test }

// Shuffle reorders the training samples in place.
func (s *Set) Shuffle(r *rand.Rand) {
	r.Shuffle(len(s.training), func(i, j int) {
		s.training[i], s.training[j] = s.training[j], s.training[i]
	})
}

// Columns splits samples into parallel input and target slices, the form
// taken by toolbox.Network.Fit.  The rows are shared, not copied.
func Columns(samples []Sample) (inputs, targets [][]float32) {
	inputs = make([][]float32, len(samples))
	targets = make([][]float32, len(samples))
	for i, sample := range samples {
		inputs[i] = sample.Input
		targets[i] = sample.Target
	}
	return inputs, targets
}
