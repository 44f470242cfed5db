package toolbox

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

type InitializationKind int

const (
	// Random draws uniformly from [-1, 1) scaled by 1/sqrt(fan-in).
	Random InitializationKind = iota
	// RandomNormal draws from N(0, 1) scaled by 1/sqrt(fan-in).
	RandomNormal
	// Fixed sets every weight and bias to Value.
	Fixed
	// Identity sets W[i][i] to 1, everything else (biases included) to 0.
	Identity
)

// Initialization selects how a layer's weights and biases are populated.
type Initialization struct {
	Kind  InitializationKind
	Value float32 // only for Fixed
}

func FixedInitialization(v float32) Initialization {
	return Initialization{Kind: Fixed, Value: v}
}

func (in Initialization) String() string {
	switch in.Kind {
	case Random:
		return "Random"
	case RandomNormal:
		return "RandomNormal"
	case Fixed:
		return "Fixed(" + formatF32(in.Value) + ")"
	case Identity:
		return "Identity"
	default:
		return fmt.Sprintf("Initialization(%d)", int(in.Kind))
	}
}

// ParseInitialization accepts the forms produced by Initialization.String.
func ParseInitialization(s string) (Initialization, error) {
	switch s {
	case "Random":
		return Initialization{Kind: Random}, nil
	case "RandomNormal":
		return Initialization{Kind: RandomNormal}, nil
	case "Identity":
		return Initialization{Kind: Identity}, nil
	}
	if arg, ok := strings.CutPrefix(s, "Fixed("); ok {
		if arg, ok := strings.CutSuffix(arg, ")"); ok {
			v, err := strconv.ParseFloat(arg, 32)
			if err != nil {
				return Initialization{}, fmt.Errorf("%w: initialization %q: %w", ErrUnknownValue, s, err)
			}
			return FixedInitialization(float32(v)), nil
		}
	}
	return Initialization{}, fmt.Errorf("%w: initialization %q", ErrUnknownValue, s)
}

// fill populates w (shape (inputSize, outputSize)) and b (shape
// (outputSize)).  Only the random kinds draw from r.
func (in Initialization) fill(w, b *AF32, r *rand.Rand) {
	inputSize := w.Shape[0]
	outputSize := w.Shape[1]
	scale := 1 / math32.Sqrt(float32(inputSize))

	switch in.Kind {
	case Random:
		for i := range w.V {
			w.V[i] = (r.Float32()*2 - 1) * scale
		}
		for i := range b.V {
			b.V[i] = (r.Float32()*2 - 1) * scale
		}
	case RandomNormal:
		for i := range w.V {
			w.V[i] = float32(r.NormFloat64()) * scale
		}
		for i := range b.V {
			b.V[i] = float32(r.NormFloat64()) * scale
		}
	case Fixed:
		for i := range w.V {
			w.V[i] = in.Value
		}
		for i := range b.V {
			b.V[i] = in.Value
		}
	case Identity:
		clear(w.V)
		clear(b.V)
		for i := 0; i < min(inputSize, outputSize); i++ {
			w.Set2(i, i, 1)
		}
	default:
		panic("unhandled initialization kind")
	}
}
