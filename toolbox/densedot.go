package toolbox

func denseDot2(x []float32, y []float32) float32 {
	if len(x) != len(y) {
		panic("mismatched length")
	}
	var sum float32
	for i := 0; i < len(x); i++ {
		sum += x[i] * y[i]
	}
	return sum
}

func denseDot3(x, y, z []float32) float32 {
	if len(x) != len(y) || len(x) != len(z) {
		panic("all input slices must have the same length")
	}
	var sum float32
	for i := 0; i < len(x); i++ {
		sum += x[i] * y[i] * z[i]
	}
	return sum
}
