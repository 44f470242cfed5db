package dataset

import (
	"fmt"

	"github.com/sbinet/npyio/npz"
)

// NPZArrays names the arrays of a numpy archive that make up a Set.
type NPZArrays struct {
	TrainInputs  string
	TrainTargets string
	TestInputs   string
	TestTargets  string

	// InputScale divides every input value when non-zero, e.g. 255 for
	// 8-bit pixels.
	InputScale float32

	// TargetClasses, when non-zero, treats each target as a class label and
	// expands it into a one-hot row of that width.
	TargetClasses int
}

// MNIST is the layout of the mnist.npz archive distributed with Keras.
var MNIST = NPZArrays{
	TrainInputs:   "x_train.npy",
	TrainTargets:  "y_train.npy",
	TestInputs:    "x_test.npy",
	TestTargets:   "y_test.npy",
	InputScale:    255,
	TargetClasses: 10,
}

// LoadNPZ reads a Set from a numpy archive.  Every array is flattened to
// one row per leading index; numpy always writes row-major data.  Test
// arrays are optional.
func LoadNPZ(path string, arrays NPZArrays) (*Set, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening %s: %w", path, err)
	}
	defer r.Close()

	training, err := loadSamples(r, arrays.TrainInputs, arrays.TrainTargets, arrays)
	if err != nil {
		return nil, err
	}

	var test []Sample
	if arrays.TestInputs != "" {
		test, err = loadSamples(r, arrays.TestInputs, arrays.TestTargets, arrays)
		if err != nil {
			return nil, err
		}
	}

	return NewSet(training, test)
}

func loadSamples(r *npz.Reader, inputName, targetName string, arrays NPZArrays) ([]Sample, error) {
	inputs, err := loadRows(r, inputName)
	if err != nil {
		return nil, fmt.Errorf("while reading %s: %w", inputName, err)
	}
	targets, err := loadRows(r, targetName)
	if err != nil {
		return nil, fmt.Errorf("while reading %s: %w", targetName, err)
	}
	if len(inputs) != len(targets) {
		return nil, fmt.Errorf("%s has %d rows but %s has %d", inputName, len(inputs), targetName, len(targets))
	}

	if arrays.InputScale != 0 {
		for _, row := range inputs {
			for j := range row {
				row[j] /= arrays.InputScale
			}
		}
	}

	if arrays.TargetClasses != 0 {
		for i, row := range targets {
			if len(row) != 1 {
				return nil, fmt.Errorf("%s row %d has %d values, want a single label", targetName, i, len(row))
			}
			label := int(row[0])
			if label < 0 || label >= arrays.TargetClasses {
				return nil, fmt.Errorf("%s row %d: label %d outside [0, %d)", targetName, i, label, arrays.TargetClasses)
			}
			targets[i] = make([]float32, arrays.TargetClasses)
			targets[i][label] = 1
		}
	}

	samples := make([]Sample, len(inputs))
	for i := range samples {
		samples[i] = Sample{Input: inputs[i], Target: targets[i]}
	}
	return samples, nil
}

// loadRows reads the named array as float32 rows, one per leading index.
func loadRows(r *npz.Reader, name string) ([][]float32, error) {
	header := r.Header(name)
	if header == nil {
		return nil, fmt.Errorf("no such array")
	}
	shape := header.Descr.Shape
	if len(shape) == 0 {
		return nil, fmt.Errorf("scalar array")
	}

	var flat []float32
	switch dtype := header.Descr.Type[1:]; dtype {
	case "u1":
		var raw []uint8
		if err := r.Read(name, &raw); err != nil {
			return nil, fmt.Errorf("while reading uint8 array: %w", err)
		}
		flat = convertFlat(raw)
	case "i4":
		var raw []int32
		if err := r.Read(name, &raw); err != nil {
			return nil, fmt.Errorf("while reading int32 array: %w", err)
		}
		flat = convertFlat(raw)
	case "i8":
		var raw []int64
		if err := r.Read(name, &raw); err != nil {
			return nil, fmt.Errorf("while reading int64 array: %w", err)
		}
		flat = convertFlat(raw)
	case "f4":
		if err := r.Read(name, &flat); err != nil {
			return nil, fmt.Errorf("while reading float32 array: %w", err)
		}
	case "f8":
		var raw []float64
		if err := r.Read(name, &raw); err != nil {
			return nil, fmt.Errorf("while reading float64 array: %w", err)
		}
		flat = convertFlat(raw)
	default:
		return nil, fmt.Errorf("unsupported dtype %q", header.Descr.Type)
	}

	width := 1
	for _, s := range shape[1:] {
		width *= s
	}
	if len(flat) != shape[0]*width {
		return nil, fmt.Errorf("shape %v holds %d values, got %d", shape, shape[0]*width, len(flat))
	}

	rows := make([][]float32, shape[0])
	for i := range rows {
		rows[i] = flat[i*width : (i+1)*width]
	}
	return rows, nil
}

func convertFlat[T uint8 | int32 | int64 | float64](raw []T) []float32 {
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out
}
