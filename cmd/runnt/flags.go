package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ahmedtd/mlp/dataset"
)

func parseInts(s string) ([]int, error) {
	var out []int
	for _, tok := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return nil, fmt.Errorf("bad integer %q in %q", tok, s)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float32, error) {
	var out []float32
	for _, tok := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(tok), 32)
		if err != nil {
			return nil, fmt.Errorf("bad number %q in %q", tok, s)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

func parseConversion(s string) (dataset.Conversion, error) {
	switch s {
	case "float":
		return dataset.Float, nil
	case "normalise":
		return dataset.NormaliseMean, nil
	case "onehot":
		return dataset.OneHot, nil
	default:
		return nil, fmt.Errorf("unknown conversion %q (want float, normalise, or onehot)", s)
	}
}
