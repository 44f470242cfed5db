package train

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ahmedtd/mlp/dataset"
	"github.com/ahmedtd/mlp/toolbox"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func samples(inputs, targets [][]float32) []dataset.Sample {
	out := make([]dataset.Sample, len(inputs))
	for i := range inputs {
		out[i] = dataset.Sample{Input: inputs[i], Target: targets[i]}
	}
	return out
}

func TestMaxIndexEqual(t *testing.T) {
	testCases := []struct {
		a, b []float32
		want bool
	}{
		{a: []float32{0.1, 0.9}, b: []float32{0, 1}, want: true},
		{a: []float32{0.9, 0.1}, b: []float32{0, 1}, want: false},
		{a: []float32{0.5, 0.5, 0.1}, b: []float32{1, 0, 0}, want: true},
		{a: []float32{-3, -1, -2}, b: []float32{0, 1, 0}, want: true},
	}
	for _, tc := range testCases {
		if got := MaxIndexEqual(tc.a, tc.b); got != tc.want {
			t.Errorf("MaxIndexEqual(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	// y = 2x
	line := toolbox.MakeNetwork([]int{1, 1})
	line.SetWeights([]float32{2, 0})

	exact := samples([][]float32{{1}, {2}, {3}}, [][]float32{{2}, {4}, {6}})
	off := samples([][]float32{{1}, {2}}, [][]float32{{3}, {4}})

	identity := toolbox.MakeNetwork([]int{2, 2})
	identity.SetWeights([]float32{1, 0, 0, 1, 0, 0})
	labelled := samples([][]float32{{1, 0}, {0, 1}}, [][]float32{{1, 0}, {1, 0}})

	testCases := []struct {
		desc    string
		net     *toolbox.Network
		samples []dataset.Sample
		metric  Metric
		want    float64
	}{
		{desc: "mse exact", net: line, samples: exact, metric: MSE, want: 0},
		{desc: "mse off", net: line, samples: off, metric: MSE, want: 0.25},
		{desc: "r2 exact", net: line, samples: exact, metric: RSquared, want: 1},
		{desc: "accuracy", net: identity, samples: labelled, metric: CorrectClassification, want: 0.5},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got := Evaluate(tc.net, tc.samples, tc.metric)
			if diff := cmp.Diff(got, tc.want, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
				t.Errorf("Wrong metric; diff (-got +want)\n%s", diff)
			}
		})
	}

	if got := Evaluate(line, nil, MSE); !math.IsNaN(got) {
		t.Errorf("Evaluate on no samples = %v, want NaN", got)
	}
}

func TestParseMetric(t *testing.T) {
	for _, m := range []Metric{MSE, RSquared, CorrectClassification} {
		got, err := ParseMetric(m.String())
		if err != nil {
			t.Fatalf("ParseMetric(%q): %v", m, err)
		}
		if got != m {
			t.Errorf("ParseMetric(%q) = %v", m, got)
		}
	}

	if _, err := ParseMetric("f1"); !errors.Is(err, toolbox.ErrUnknownValue) {
		t.Errorf("ParseMetric(f1) error = %v, want ErrUnknownValue", err)
	}
}

func TestRunLearnsXOR(t *testing.T) {
	set, err := dataset.NewSet(samples(
		[][]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
		[][]float32{{0}, {1}, {1}, {0}},
	), nil)
	if err != nil {
		t.Fatalf("Unexpected error building set: %v", err)
	}

	net := toolbox.MakeNetwork([]int{2, 8, 1},
		toolbox.WithLearningRate(0.8),
		toolbox.WithHiddenActivation(toolbox.Sigmoid),
		toolbox.WithOutputActivation(toolbox.Sigmoid),
		toolbox.WithRand(rand.New(rand.NewSource(1))),
	)

	reports, err := Run(context.Background(), net, set, Config{
		Epochs:      3000,
		BatchSize:   2,
		ReportEvery: 1000,
		Metric:      MSE,
	})
	if err != nil {
		t.Fatalf("Unexpected error from Run: %v", err)
	}

	gotEpochs := []int{}
	for _, r := range reports {
		gotEpochs = append(gotEpochs, r.Epoch)
		if !math.IsNaN(r.Test) {
			t.Errorf("epoch %d: test metric %v without test data", r.Epoch, r.Test)
		}
	}
	if diff := cmp.Diff(gotEpochs, []int{1000, 2000, 3000}); diff != "" {
		t.Errorf("Wrong report epochs; diff (-got +want)\n%s", diff)
	}

	if last := reports[len(reports)-1].Training; last > 0.02 {
		t.Errorf("final training error %v, want < 0.02", last)
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	set, err := dataset.NewSet(samples([][]float32{{1}}, [][]float32{{1}}), nil)
	if err != nil {
		t.Fatalf("Unexpected error building set: %v", err)
	}
	net := toolbox.MakeNetwork([]int{1, 1})
	before := net.Weights()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := Run(ctx, net, set, Config{Epochs: 10, BatchSize: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if len(reports) != 0 {
		t.Errorf("got %d reports, want none", len(reports))
	}
	if diff := cmp.Diff(net.Weights(), before); diff != "" {
		t.Errorf("Weights changed after cancelled run; diff (-got +want)\n%s", diff)
	}
}

func TestRunRejectsMismatchedData(t *testing.T) {
	set, err := dataset.NewSet(samples([][]float32{{1, 2}}, [][]float32{{1}}), nil)
	if err != nil {
		t.Fatalf("Unexpected error building set: %v", err)
	}
	net := toolbox.MakeNetwork([]int{3, 1})

	if _, err := Run(context.Background(), net, set, Config{Epochs: 1, BatchSize: 1}); !errors.Is(err, toolbox.ErrShapeMismatch) {
		t.Errorf("Run error = %v, want ErrShapeMismatch", err)
	}
}
