package toolbox

import (
	"fmt"
)

// AF32 is a dense row-major float32 array.
type AF32 struct {
	V     []float32
	Shape []int
}

func MakeAF32(shape ...int) *AF32 {
	for _, s := range shape {
		if s <= 0 {
			panic(fmt.Sprintf("invalid shape: %v", shape))
		}
	}
	size := 1
	for _, s := range shape {
		size *= s
	}

	return &AF32{
		V:     make([]float32, size),
		Shape: shape,
	}
}

// AF32FromRows copies rows into a (len(rows), width) array.  Every row must
// have length width.
func AF32FromRows(rows [][]float32, width int) *AF32 {
	if len(rows) == 0 {
		panic(fmt.Errorf("%w: no rows", ErrShapeMismatch))
	}
	out := MakeAF32(len(rows), width)
	for k, row := range rows {
		if len(row) != width {
			panic(fmt.Errorf("%w: row %d has length %d, want %d", ErrShapeMismatch, k, len(row), width))
		}
		copy(out.V[k*width:k*width+width], row)
	}
	return out
}

func AF32Transpose(in *AF32, out *AF32) {
	if len(in.Shape) != 2 {
		panic("cannot transpose if len(shape) != 2")
	}
	if len(in.V) != len(out.V) {
		panic("output storage is not correctly sized to store the transpose of the input")
	}
	out.Shape = []int{in.Shape[1], in.Shape[0]}

	for i := 0; i < in.Shape[0]; i++ {
		for j := 0; j < in.Shape[1]; j++ {
			out.Set2(j, i, in.At2(i, j))
		}
	}
}

func (a *AF32) At2(idx0, idx1 int) float32 {
	if len(a.Shape) != 2 {
		panic("At2() invalid for len(shape) != 2")
	}
	return a.V[idx0*a.Shape[1]+idx1]
}

func (a *AF32) Set2(idx0, idx1 int, v float32) {
	if len(a.Shape) != 2 {
		panic("Set2() invalid for len(shape) != 2")
	}
	a.V[idx0*a.Shape[1]+idx1] = v
}

// Row returns row idx of a 2D array.  The returned slice shares storage with
// a.
func (a *AF32) Row(idx int) []float32 {
	if len(a.Shape) != 2 {
		panic("Row() invalid for len(shape) != 2")
	}
	w := a.Shape[1]
	return a.V[idx*w : idx*w+w]
}

// Rows copies a 2D array out into one slice per row.
func (a *AF32) Rows() [][]float32 {
	out := make([][]float32, a.Shape[0])
	for k := range out {
		out[k] = append([]float32(nil), a.Row(k)...)
	}
	return out
}
