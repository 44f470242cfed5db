package toolbox

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	net := MakeNetwork([]int{10, 100, 10},
		WithLearningRate(0.5),
		WithRegularization(L1L2Regularization(0.1, 0.2)),
		WithHiddenActivation(Tanh),
		WithOutputActivation(Relu),
	)
	input := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	net.FitOne(input, []float32{0, 1, 0, 1, 0, 1, 0, 1, 0, 1})

	path := filepath.Join(t.TempDir(), "network.txt")
	if err := net.Save(path); err != nil {
		t.Fatalf("Error while saving: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Error while loading: %v", err)
	}

	if diff := cmp.Diff(loaded.Shape(), net.Shape()); diff != "" {
		t.Errorf("Wrong shape; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(loaded.Weights(), net.Weights()); diff != "" {
		t.Errorf("Wrong weights; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(loaded.Forward(input), net.Forward(input)); diff != "" {
		t.Errorf("Wrong forward output; diff (-got +want)\n%s", diff)
	}
	if loaded.HiddenActivation() != Tanh || loaded.OutputActivation() != Relu || loaded.LearningRate() != 0.5 {
		t.Errorf("Wrong configuration; got hidden=%v output=%v lr=%v", loaded.HiddenActivation(), loaded.OutputActivation(), loaded.LearningRate())
	}
}

func TestEncodeDecodeSoftmax(t *testing.T) {
	net := MakeNetwork([]int{3, 4}, WithSoftmaxCrossEntropy(), WithLearningRate(0.15))

	var buf bytes.Buffer
	if err := net.Encode(&buf); err != nil {
		t.Fatalf("Error while encoding: %v", err)
	}

	lines := strings.Split(buf.String(), "\n")
	if diff := cmp.Diff(lines[:3], []string{"shape 3 4", "activation Sigmoid Linear true", "learning_rate 0.15"}); diff != "" {
		t.Errorf("Wrong header lines; diff (-got +want)\n%s", diff)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Error while decoding: %v", err)
	}
	if !decoded.SoftmaxCrossEntropy() {
		t.Errorf("softmax+cross-entropy mode was lost")
	}
	x := []float32{0.1, -3, 7}
	if diff := cmp.Diff(decoded.Forward(x), net.Forward(x)); diff != "" {
		t.Errorf("Wrong forward output; diff (-got +want)\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		desc    string
		in      string
		wantErr []error
	}{
		{
			desc:    "too few values",
			in:      "shape 1 2\nactivation Sigmoid Linear false\nlearning_rate 0.1\nvalues 1 2 3\n",
			wantErr: []error{ErrFormat},
		},
		{
			desc:    "too many values",
			in:      "shape 1 2\nactivation Sigmoid Linear false\nlearning_rate 0.1\nvalues 1 2 3 4 5\n",
			wantErr: []error{ErrFormat},
		},
		{
			desc:    "unknown activation",
			in:      "shape 1 2\nactivation Sigmoid Softplus false\nlearning_rate 0.1\nvalues 1 2 3 4\n",
			wantErr: []error{ErrFormat, ErrUnknownValue},
		},
		{
			desc:    "non-numeric value",
			in:      "shape 1 2\nactivation Sigmoid Linear false\nlearning_rate 0.1\nvalues 1 2 x 4\n",
			wantErr: []error{ErrFormat},
		},
		{
			desc:    "bad shape",
			in:      "shape 1 0\nactivation Sigmoid Linear false\nlearning_rate 0.1\nvalues\n",
			wantErr: []error{ErrFormat},
		},
		{
			desc:    "shape overflows value count",
			in:      "shape 4611686018427387904 4\nactivation Sigmoid Linear false\nlearning_rate 0.1\nvalues 1 2 3 4\n",
			wantErr: []error{ErrFormat},
		},
		{
			desc:    "shape overflows in later layer",
			in:      "shape 2 3 9223372036854775807\nactivation Sigmoid Linear false\nlearning_rate 0.1\nvalues 1 2 3 4\n",
			wantErr: []error{ErrFormat},
		},
		{
			desc:    "lines out of order",
			in:      "activation Sigmoid Linear false\nshape 1 2\nlearning_rate 0.1\nvalues 1 2 3 4\n",
			wantErr: []error{ErrFormat},
		},
		{
			desc:    "empty",
			in:      "",
			wantErr: []error{ErrFormat},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			net, err := Decode(strings.NewReader(tc.in))
			if net != nil {
				t.Errorf("got a network from malformed input")
			}
			for _, want := range tc.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("got error %v, want one wrapping %v", err, want)
				}
			}
			if errors.Is(err, ErrIO) {
				t.Errorf("parse failure %v reported as i/o failure", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	net, err := Load(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	if net != nil {
		t.Errorf("got a network from a missing file")
	}
	if !errors.Is(err, ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got error %v, want one wrapping ErrIO and os.ErrNotExist", err)
	}
	if errors.Is(err, ErrFormat) {
		t.Errorf("i/o failure %v reported as a format error", err)
	}
}

func TestSaveUnwritablePath(t *testing.T) {
	net := MakeNetwork([]int{1, 1})
	err := net.Save(filepath.Join(t.TempDir(), "missing-dir", "network.txt"))
	if !errors.Is(err, ErrIO) {
		t.Errorf("got error %v, want one wrapping ErrIO", err)
	}
}

func TestParseIdentifiers(t *testing.T) {
	for _, a := range []ActivationType{Relu, Sigmoid, Linear, Tanh} {
		got, err := ParseActivationType(a.String())
		if err != nil || got != a {
			t.Errorf("ParseActivationType(%q) = %v, %v", a.String(), got, err)
		}
	}

	for _, in := range []Initialization{{Kind: Random}, {Kind: RandomNormal}, {Kind: Identity}, FixedInitialization(-0.5)} {
		got, err := ParseInitialization(in.String())
		if err != nil || got != in {
			t.Errorf("ParseInitialization(%q) = %v, %v", in.String(), got, err)
		}
	}

	for _, reg := range []Regularization{{}, L1Regularization(0.1), L2Regularization(0.25), L1L2Regularization(0.1, 0.2)} {
		got, err := ParseRegularization(reg.String())
		if err != nil || got != reg {
			t.Errorf("ParseRegularization(%q) = %v, %v", reg.String(), got, err)
		}
	}

	if _, err := ParseActivationType("relu"); !errors.Is(err, ErrUnknownValue) {
		t.Errorf("ParseActivationType(relu) error = %v, want ErrUnknownValue", err)
	}
	if _, err := ParseInitialization("Xavier"); !errors.Is(err, ErrUnknownValue) {
		t.Errorf("ParseInitialization(Xavier) error = %v, want ErrUnknownValue", err)
	}
	if _, err := ParseRegularization("L3(0.1)"); !errors.Is(err, ErrUnknownValue) {
		t.Errorf("ParseRegularization(L3(0.1)) error = %v, want ErrUnknownValue", err)
	}
}
