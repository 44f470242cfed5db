package toolbox

import (
	"fmt"

	"github.com/chewxy/math32"
)

type ActivationType int

const (
	Relu ActivationType = iota
	Sigmoid
	Linear
	Tanh
)

var activationNames = [...]string{
	Relu:    "Relu",
	Sigmoid: "Sigmoid",
	Linear:  "Linear",
	Tanh:    "Tanh",
}

func (t ActivationType) String() string {
	if t < 0 || int(t) >= len(activationNames) {
		return fmt.Sprintf("ActivationType(%d)", int(t))
	}
	return activationNames[t]
}

// ParseActivationType is the inverse of ActivationType.String.
func ParseActivationType(s string) (ActivationType, error) {
	for t, name := range activationNames {
		if name == s {
			return ActivationType(t), nil
		}
	}
	return 0, fmt.Errorf("%w: activation %q", ErrUnknownValue, s)
}

// Activate applies the activation to a linear output z.
func (t ActivationType) Activate(z float32) float32 {
	switch t {
	case Relu:
		return math32.Max(z, 0)
	case Sigmoid:
		return 1 / (1 + math32.Exp(-z))
	case Linear:
		return z
	case Tanh:
		return math32.Tanh(z)
	default:
		panic("unhandled activation function")
	}
}

// Derivative returns da/dz expressed in terms of the activated value a, not
// the linear output.
func (t ActivationType) Derivative(a float32) float32 {
	switch t {
	case Relu:
		// Slope at exactly 0 is 0.
		if a > 0 {
			return 1
		}
		return 0
	case Sigmoid:
		return a * (1 - a)
	case Linear:
		return 1
	case Tanh:
		return 1 - a*a
	default:
		panic("unhandled activation function")
	}
}

// activate applies t to z elementwise, in place.
func (t ActivationType) activate(z []float32) {
	if t == Linear {
		return
	}
	for i := range z {
		z[i] = t.Activate(z[i])
	}
}

// derivative fills dadz with the derivative at each activated value in a.
func (t ActivationType) derivative(a, dadz []float32) {
	if len(a) != len(dadz) {
		panic("len(a) != len(dadz)")
	}
	for i := range a {
		dadz[i] = t.Derivative(a[i])
	}
}

// softmaxRows replaces each row of a (shape (batchSize, n)) with its softmax.
func softmaxRows(a *AF32) {
	for k := 0; k < a.Shape[0]; k++ {
		row := a.Row(k)

		// For stability, use the identity softmax(v) = softmax(v - c), and
		// subtract the maximum element of the row first.
		//
		// https://stackoverflow.com/questions/42599498/numerically-stable-softmax
		maxa := math32.Inf(-1)
		for _, v := range row {
			if v > maxa {
				maxa = v
			}
		}

		var sum float32
		for i, v := range row {
			row[i] = math32.Exp(v - maxa)
			sum += row[i]
		}
		for i := range row {
			row[i] /= sum
		}
	}
}
