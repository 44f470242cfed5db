package toolbox

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Weights files are four lines of space-separated tokens:
//
//	shape 2 8 1
//	activation Sigmoid Linear false
//	learning_rate 0.5
//	values 0.123 -0.5 ...
//
// The activation line holds the hidden activation, the output activation, and
// the softmax+cross-entropy flag.  Values are ordered as in Network.Weights
// and are written in the shortest form that parses back to the same float32.

// Save writes the network to path, replacing any existing file.
func (net *Network) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating weights file: %w: %w", ErrIO, err)
	}

	bw := bufio.NewWriter(f)
	if err := net.Encode(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("while writing weights file: %w: %w", ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing weights file: %w: %w", ErrIO, err)
	}
	return nil
}

// Encode writes the network in weights file format.
func (net *Network) Encode(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("shape")
	for _, s := range net.Shape() {
		sb.WriteString(" ")
		sb.WriteString(strconv.Itoa(s))
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "activation %s %s %t\n", net.hiddenActivation, net.outputActivation, net.softmaxCrossEntropy)
	fmt.Fprintf(&sb, "learning_rate %s\n", formatF32(net.learningRate))

	sb.WriteString("values")
	for _, v := range net.Weights() {
		sb.WriteString(" ")
		sb.WriteString(formatF32(v))
	}
	sb.WriteString("\n")

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("while writing weights: %w: %w", ErrIO, err)
	}
	return nil
}

// Load reads a network written by Save.  The loaded network uses no
// regularization and Random initialization from rand.NewSource(1); neither is
// part of the file.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening weights file: %w: %w", ErrIO, err)
	}
	defer f.Close()

	net, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("while loading %s: %w", path, err)
	}
	return net, nil
}

// Decode reads a network in weights file format.  Nothing is constructed
// unless the whole input is valid.
func Decode(r io.Reader) (*Network, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("while reading weights: %w: %w", ErrIO, err)
	}

	var lines [][]string
	for _, line := range strings.Split(string(raw), "\n") {
		if fields := strings.Fields(line); len(fields) != 0 {
			lines = append(lines, fields)
		}
	}

	keys := []string{"shape", "activation", "learning_rate", "values"}
	if len(lines) != len(keys) {
		return nil, fmt.Errorf("%w: got %d lines, want %d", ErrFormat, len(lines), len(keys))
	}
	for i, key := range keys {
		if lines[i][0] != key {
			return nil, fmt.Errorf("%w: line %d starts with %q, want %q", ErrFormat, i+1, lines[i][0], key)
		}
	}

	shapeTokens := lines[0][1:]
	if len(shapeTokens) < 2 {
		return nil, fmt.Errorf("%w: shape needs at least 2 layer sizes, got %d", ErrFormat, len(shapeTokens))
	}
	shape := make([]int, len(shapeTokens))
	for i, tok := range shapeTokens {
		s, err := strconv.Atoi(tok)
		if err != nil || s <= 0 {
			return nil, fmt.Errorf("%w: bad layer size %q", ErrFormat, tok)
		}
		shape[i] = s
	}

	activationTokens := lines[1][1:]
	if len(activationTokens) != 3 {
		return nil, fmt.Errorf("%w: activation line has %d tokens, want 3", ErrFormat, len(activationTokens))
	}
	hidden, err := ParseActivationType(activationTokens[0])
	if err != nil {
		return nil, fmt.Errorf("%w: hidden activation: %w", ErrFormat, err)
	}
	output, err := ParseActivationType(activationTokens[1])
	if err != nil {
		return nil, fmt.Errorf("%w: output activation: %w", ErrFormat, err)
	}
	softmax, err := strconv.ParseBool(activationTokens[2])
	if err != nil {
		return nil, fmt.Errorf("%w: softmax flag %q", ErrFormat, activationTokens[2])
	}

	if len(lines[2]) != 2 {
		return nil, fmt.Errorf("%w: learning_rate line has %d tokens, want 1", ErrFormat, len(lines[2])-1)
	}
	lr, err := strconv.ParseFloat(lines[2][1], 32)
	if err != nil {
		return nil, fmt.Errorf("%w: learning rate %q", ErrFormat, lines[2][1])
	}

	valueTokens := lines[3][1:]
	wantValues := 0
	for i := 0; i+1 < len(shape); i++ {
		// A layer needs more values than either of its sizes, so bounding
		// them first keeps the count from overflowing.
		if shape[i] >= len(valueTokens) || shape[i+1] > len(valueTokens) ||
			shape[i+1] > (math.MaxInt-wantValues)/(shape[i]+1) {
			return nil, fmt.Errorf("%w: shape %v needs more than the %d values given", ErrFormat, shape, len(valueTokens))
		}
		wantValues += (shape[i] + 1) * shape[i+1]
	}
	if len(valueTokens) != wantValues {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrFormat, shape, wantValues, len(valueTokens))
	}
	values := make([]float32, len(valueTokens))
	for i, tok := range valueTokens {
		v, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %q", ErrFormat, i, tok)
		}
		values[i] = float32(v)
	}

	opts := []Option{
		WithHiddenActivation(hidden),
		WithOutputActivation(output),
		WithLearningRate(float32(lr)),
	}
	if softmax {
		opts = append(opts, WithSoftmaxCrossEntropy())
	}
	net := makeNetwork(shape, opts...)
	net.SetWeights(values)
	return net, nil
}
