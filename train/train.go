// Package train drives a toolbox.Network through epochs over a dataset.Set
// and reports how well it fits.
package train

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/ahmedtd/mlp/dataset"
	"github.com/ahmedtd/mlp/toolbox"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Metric int

const (
	// MSE is the mean of Network.CalcError over the samples.
	MSE Metric = iota
	// RSquared is the coefficient of determination of all outputs.
	RSquared
	// CorrectClassification is the fraction of samples whose largest output
	// is at the same index as the largest target value.
	CorrectClassification
)

var metricNames = map[Metric]string{
	MSE:                   "mse",
	RSquared:              "r2",
	CorrectClassification: "accuracy",
}

func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

func ParseMetric(s string) (Metric, error) {
	for m, name := range metricNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: metric %q", toolbox.ErrUnknownValue, s)
}

// Evaluate scores the network's predictions on samples.  It is NaN when
// there are no samples.
func Evaluate(net *toolbox.Network, samples []dataset.Sample, m Metric) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}

	inputs, targets := dataset.Columns(samples)
	preds := make([][]float32, len(inputs))
	for i, input := range inputs {
		preds[i] = net.Forward(input)
	}

	switch m {
	case MSE:
		var total float64
		for i := range preds {
			total += float64(net.CalcError(preds[i], targets[i]))
		}
		return total / float64(len(preds))
	case RSquared:
		var estimates, values []float64
		for i := range preds {
			estimates = append(estimates, widen(preds[i])...)
			values = append(values, widen(targets[i])...)
		}
		return stat.RSquaredFrom(estimates, values, nil)
	case CorrectClassification:
		correct := 0
		for i := range preds {
			if MaxIndexEqual(preds[i], targets[i]) {
				correct++
			}
		}
		return float64(correct) / float64(len(preds))
	default:
		panic(fmt.Sprintf("unknown metric %v", m))
	}
}

// MaxIndexEqual reports whether a and b have their largest value at the same
// index.  Ties go to the lowest index.
func MaxIndexEqual(a, b []float32) bool {
	return floats.MaxIdx(widen(a)) == floats.MaxIdx(widen(b))
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

type Config struct {
	Epochs    int
	BatchSize int

	// ReportEvery is the number of epochs between reports.  Zero reports
	// only after the last epoch.
	ReportEvery int
	Metric      Metric

	// Rand shuffles the training samples before every epoch.  Without it
	// the samples are presented in their stored order.
	Rand *rand.Rand
}

// Report is the metric measured after an epoch.
type Report struct {
	Epoch    int
	Training float64
	Test     float64
}

// Run trains net for cfg.Epochs epochs, logging and returning a report
// every cfg.ReportEvery epochs.  It stops early when ctx is done.
func Run(ctx context.Context, net *toolbox.Network, set *dataset.Set, cfg Config) ([]Report, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", cfg.BatchSize)
	}
	if set.InputSize() != net.Shape()[0] || set.TargetSize() != net.Shape()[len(net.Shape())-1] {
		return nil, fmt.Errorf("%w: data has widths (%d, %d) but network shape is %v",
			toolbox.ErrShapeMismatch, set.InputSize(), set.TargetSize(), net.Shape())
	}

	var reports []Report
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return reports, fmt.Errorf("while training epoch %d: %w", epoch, err)
		}

		if cfg.Rand != nil {
			set.Shuffle(cfg.Rand)
		}

		start := time.Now()
		inputs, targets := dataset.Columns(set.Training())
		net.Fit(inputs, targets, cfg.BatchSize)
		elapsed := time.Since(start)

		due := epoch == cfg.Epochs
		if cfg.ReportEvery > 0 && epoch%cfg.ReportEvery == 0 {
			due = true
		}
		if !due {
			continue
		}

		report := Report{
			Epoch:    epoch,
			Training: Evaluate(net, set.Training(), cfg.Metric),
			Test:     Evaluate(net, set.Test(), cfg.Metric),
		}
		reports = append(reports, report)
		log.Printf("epoch %d training-%s=%f testing-%s=%f time=%.2fs",
			epoch, cfg.Metric, report.Training, cfg.Metric, report.Test, elapsed.Seconds())
	}
	return reports, nil
}
