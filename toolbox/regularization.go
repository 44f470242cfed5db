package toolbox

import (
	"fmt"
	"strconv"
	"strings"
)

type RegularizationKind int

const (
	NoRegularization RegularizationKind = iota
	L1
	L2
	L1L2
)

// Regularization adds a weight-dependent term to every weight gradient.
// Biases are never regularized.
type Regularization struct {
	Kind    RegularizationKind
	Lambda1 float32 // L1 and L1L2
	Lambda2 float32 // L2 and L1L2
}

func L1Regularization(lambda float32) Regularization {
	return Regularization{Kind: L1, Lambda1: lambda}
}

func L2Regularization(lambda float32) Regularization {
	return Regularization{Kind: L2, Lambda2: lambda}
}

func L1L2Regularization(lambda1, lambda2 float32) Regularization {
	return Regularization{Kind: L1L2, Lambda1: lambda1, Lambda2: lambda2}
}

// PenaltyGradient is the derivative of the penalty with respect to w.
func (reg Regularization) PenaltyGradient(w float32) float32 {
	switch reg.Kind {
	case NoRegularization:
		return 0
	case L1:
		return reg.Lambda1 * sign(w)
	case L2:
		return reg.Lambda2 * w
	case L1L2:
		return reg.Lambda1*sign(w) + reg.Lambda2*w
	default:
		panic("unhandled regularization kind")
	}
}

func sign(w float32) float32 {
	switch {
	case w > 0:
		return 1
	case w < 0:
		return -1
	default:
		return 0
	}
}

func formatF32(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func (reg Regularization) String() string {
	switch reg.Kind {
	case NoRegularization:
		return "None"
	case L1:
		return "L1(" + formatF32(reg.Lambda1) + ")"
	case L2:
		return "L2(" + formatF32(reg.Lambda2) + ")"
	case L1L2:
		return "L1L2(" + formatF32(reg.Lambda1) + "," + formatF32(reg.Lambda2) + ")"
	default:
		return fmt.Sprintf("Regularization(%d)", int(reg.Kind))
	}
}

// ParseRegularization accepts None, L1(a), L2(a) and L1L2(a,b).
func ParseRegularization(s string) (Regularization, error) {
	if s == "None" {
		return Regularization{}, nil
	}

	name, rest, ok := strings.Cut(s, "(")
	if !ok || !strings.HasSuffix(rest, ")") {
		return Regularization{}, fmt.Errorf("%w: regularization %q", ErrUnknownValue, s)
	}
	var args []float32
	for _, tok := range strings.Split(strings.TrimSuffix(rest, ")"), ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(tok), 32)
		if err != nil {
			return Regularization{}, fmt.Errorf("%w: regularization %q: %w", ErrUnknownValue, s, err)
		}
		args = append(args, float32(v))
	}

	switch {
	case name == "L1" && len(args) == 1:
		return L1Regularization(args[0]), nil
	case name == "L2" && len(args) == 1:
		return L2Regularization(args[0]), nil
	case name == "L1L2" && len(args) == 2:
		return L1L2Regularization(args[0], args[1]), nil
	default:
		return Regularization{}, fmt.Errorf("%w: regularization %q", ErrUnknownValue, s)
	}
}

// penalize adds the penalty gradient for each weight in w to djdw.
func (reg Regularization) penalize(w, djdw []float32) {
	if reg.Kind == NoRegularization {
		return
	}
	for i := range w {
		djdw[i] += reg.PenaltyGradient(w[i])
	}
}
