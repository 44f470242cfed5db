package toolbox

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
)

// crossEntropyEpsilon keeps predicted probabilities away from 0 so the
// cross-entropy loss stays finite.
const crossEntropyEpsilon = 1e-7

type Layer struct {
	Activation ActivationType

	// Softmax replaces Activation with a row-wise softmax.  Only set on the
	// output layer of a network in softmax+cross-entropy mode.
	Softmax bool

	W *AF32 // Shape (InputSize, OutputSize)
	B *AF32 // Shape (OutputSize)

	InputSize  int
	OutputSize int
}

// MakeDense returns a layer with zeroed weights and biases.
func MakeDense(activation ActivationType, inputSize, outputSize int) *Layer {
	return &Layer{
		Activation: activation,
		InputSize:  inputSize,
		OutputSize: outputSize,
		W:          MakeAF32(inputSize, outputSize),
		B:          MakeAF32(outputSize),
	}
}

// Apply the layer in the forward direction.
//
// x (input) is the layer input.  Shape (batchSize, lay.InputSize)
// a (output) is the layer's activated output.  Shape (batchSize, lay.OutputSize)
func (lay *Layer) Apply(x, a *AF32) {
	batchSize := x.Shape[0]
	inputSize := lay.InputSize
	outputSize := lay.OutputSize

	if x.Shape[1] != inputSize {
		shapeMismatch("layer input has width %d, want %d", x.Shape[1], inputSize)
	}
	if a.Shape[0] != batchSize || a.Shape[1] != outputSize {
		panic("dimension mismatch")
	}

	// Linear part, equivalent to
	//
	// for k := 0; k < batchSize; k++ {
	// 	for i := 0; i < outputSize; i++ {
	// 		var z float32
	// 		for j := 0; j < inputSize; j++ {
	// 			z += x.At2(k, j) * lay.W.At2(j, i)
	// 		}
	// 		a.Set2(k, i, z+lay.B.V[i])
	// 	}
	// }
	//
	// but walking W row by row.
	for k := 0; k < batchSize; k++ {
		xk := x.Row(k)
		ak := a.Row(k)
		clear(ak)
		for j := 0; j < inputSize; j++ {
			xkj := xk[j]
			wj := lay.W.Row(j)
			for i := range ak {
				ak[i] += xkj * wj[i]
			}
		}
		for i := range ak {
			ak[i] += lay.B.V[i]
		}
	}

	if lay.Softmax {
		softmaxRows(a)
	} else {
		lay.Activation.activate(a.V)
	}
}

// xT (input) is the layer input.  Shape (lay.InputSize, batchSize)
// djdaT (input) is the gradient of the loss wrt a.  Shape (lay.OutputSize, batchSize)
// dadzT (input) is the gradient of a_ki wrt z_ki.  Shape (lay.OutputSize, batchSize)
// djdw (output) is the gradient of the loss wrt lay.W, summed over the batch.  Shape (lay.InputSize, lay.OutputSize)
func (lay *Layer) BackpropDjdw(xT, djdaT, dadzT, djdw *AF32) {
	for j := 0; j < lay.InputSize; j++ {
		for i := 0; i < lay.OutputSize; i++ {
			djdw.Set2(j, i, denseDot3(djdaT.Row(i), dadzT.Row(i), xT.Row(j)))
		}
	}
}

// djdaT (input) is the gradient of the loss wrt a.  Shape (lay.OutputSize, batchSize)
// dadzT (input) is the gradient of a_ki wrt z_ki.  Shape (lay.OutputSize, batchSize)
// djdb (output) is the gradient of the loss wrt lay.B, summed over the batch.  Shape (lay.OutputSize)
func (lay *Layer) BackpropDjdb(djdaT, dadzT, djdb *AF32) {
	for i := 0; i < lay.OutputSize; i++ {
		djdb.V[i] = denseDot2(djdaT.Row(i), dadzT.Row(i))
	}
}

// djda (input) is the gradient of the loss wrt a.  Shape (batchSize, lay.OutputSize)
// dadz (input) is the gradient of a_ki wrt z_ki.  Shape (batchSize, lay.OutputSize)
// djdx (output) is the gradient of the loss wrt x.  Shape (batchSize, lay.InputSize)
func (lay *Layer) BackpropDjdx(djda, dadz, djdx *AF32) {
	batchSize := djda.Shape[0]
	for k := 0; k < batchSize; k++ {
		for j := 0; j < lay.InputSize; j++ {
			djdx.Set2(k, j, denseDot3(djda.Row(k), dadz.Row(k), lay.W.Row(j)))
		}
	}
}

// Network is a fully-connected feedforward network trained by gradient
// descent.  It is not safe for concurrent use.
type Network struct {
	Layers []*Layer

	learningRate        float32
	hiddenActivation    ActivationType
	outputActivation    ActivationType
	softmaxCrossEntropy bool
	regularization      Regularization
	initialization      Initialization

	// rand is only drawn from by random initializations.
	rand *rand.Rand
}

type Option func(*Network)

func WithLearningRate(lr float32) Option {
	return func(n *Network) { n.learningRate = lr }
}

func WithHiddenActivation(t ActivationType) Option {
	return func(n *Network) { n.hiddenActivation = t }
}

func WithOutputActivation(t ActivationType) Option {
	return func(n *Network) { n.outputActivation = t }
}

// WithSoftmaxCrossEntropy switches the output layer to softmax and the loss
// to categorical cross-entropy.  The output activation is ignored.
func WithSoftmaxCrossEntropy() Option {
	return func(n *Network) { n.softmaxCrossEntropy = true }
}

func WithRegularization(reg Regularization) Option {
	return func(n *Network) { n.regularization = reg }
}

func WithInitialization(in Initialization) Option {
	return func(n *Network) { n.initialization = in }
}

// WithRand sets the random source used by random initializations.
func WithRand(r *rand.Rand) Option {
	return func(n *Network) { n.rand = r }
}

// MakeNetwork builds a network with one layer per pair of consecutive
// entries in shape and initializes its weights.
//
// Defaults: Sigmoid hidden layers, Linear output, learning rate 0.01, no
// regularization, Random initialization from rand.NewSource(1).
func MakeNetwork(shape []int, opts ...Option) *Network {
	net := makeNetwork(shape, opts...)
	net.ResetWeights()
	return net
}

func makeNetwork(shape []int, opts ...Option) *Network {
	if len(shape) < 2 {
		shapeMismatch("network needs at least 2 layer sizes, got %v", shape)
	}
	for _, s := range shape {
		if s <= 0 {
			shapeMismatch("invalid layer sizes %v", shape)
		}
	}

	net := &Network{
		learningRate:     0.01,
		hiddenActivation: Sigmoid,
		outputActivation: Linear,
	}
	for _, opt := range opts {
		opt(net)
	}
	if net.rand == nil {
		net.rand = rand.New(rand.NewSource(1))
	}

	net.Layers = make([]*Layer, len(shape)-1)
	for l := range net.Layers {
		activation := net.hiddenActivation
		if l == len(net.Layers)-1 {
			activation = net.outputActivation
		}
		net.Layers[l] = MakeDense(activation, shape[l], shape[l+1])
	}
	net.Layers[len(net.Layers)-1].Softmax = net.softmaxCrossEntropy

	return net
}

// Shape returns the unit count of every layer, input first.
func (net *Network) Shape() []int {
	shape := []int{net.Layers[0].InputSize}
	for _, lay := range net.Layers {
		shape = append(shape, lay.OutputSize)
	}
	return shape
}

func (net *Network) inputSize() int {
	return net.Layers[0].InputSize
}

func (net *Network) outputSize() int {
	return net.Layers[len(net.Layers)-1].OutputSize
}

func (net *Network) LearningRate() float32 { return net.learningRate }

func (net *Network) SetLearningRate(lr float32) { net.learningRate = lr }

func (net *Network) HiddenActivation() ActivationType { return net.hiddenActivation }

func (net *Network) OutputActivation() ActivationType { return net.outputActivation }

func (net *Network) SoftmaxCrossEntropy() bool { return net.softmaxCrossEntropy }

func (net *Network) Regularization() Regularization { return net.regularization }

func (net *Network) Initialization() Initialization { return net.initialization }

// Seed reseeds the network's random source.
func (net *Network) Seed(seed int64) {
	net.rand.Seed(seed)
}

// ResetWeights repopulates every layer using the configured initialization.
func (net *Network) ResetWeights() {
	for _, lay := range net.Layers {
		net.initialization.fill(lay.W, lay.B, net.rand)
	}
}

// Reinitialize stores in as the network's initialization and resets the
// weights with it.
func (net *Network) Reinitialize(in Initialization) {
	net.initialization = in
	net.ResetWeights()
}

// Weights returns every weight and bias as one flat slice: for each layer in
// order, its weights (row-major, shape (InputSize, OutputSize)) followed by
// its biases.
func (net *Network) Weights() []float32 {
	var out []float32
	for _, lay := range net.Layers {
		out = append(out, lay.W.V...)
		out = append(out, lay.B.V...)
	}
	return out
}

func (net *Network) numWeights() int {
	total := 0
	for _, lay := range net.Layers {
		total += len(lay.W.V) + len(lay.B.V)
	}
	return total
}

// SetWeights is the inverse of Weights.
func (net *Network) SetWeights(weights []float32) {
	if len(weights) != net.numWeights() {
		shapeMismatch("got %d weights, network %v has %d", len(weights), net.Shape(), net.numWeights())
	}
	for _, lay := range net.Layers {
		weights = weights[copy(lay.W.V, weights):]
		weights = weights[copy(lay.B.V, weights):]
	}
}

// ForwardBatch applies the network to every row of x.
//
// x (input) Shape (batchSize, inputSize)
//
// The result holds one array per layer, input first: result[0] is x and
// result[l+1] is the activated output of layer l.
func (net *Network) ForwardBatch(x *AF32) []*AF32 {
	if len(x.Shape) != 2 || x.Shape[1] != net.inputSize() {
		shapeMismatch("input shape %v, want (batchSize, %d)", x.Shape, net.inputSize())
	}
	batchSize := x.Shape[0]

	as := make([]*AF32, 0, len(net.Layers)+1)
	as = append(as, x)
	for _, lay := range net.Layers {
		a := MakeAF32(batchSize, lay.OutputSize)
		lay.Apply(as[len(as)-1], a)
		as = append(as, a)
	}
	return as
}

func (net *Network) Forward(input []float32) []float32 {
	if len(input) != net.inputSize() {
		shapeMismatch("input has length %d, want %d", len(input), net.inputSize())
	}
	as := net.ForwardBatch(AF32FromRows([][]float32{input}, net.inputSize()))
	return as[len(as)-1].V
}

// CalcError is the loss of one prediction: half the sum of squared errors,
// or categorical cross-entropy in softmax+cross-entropy mode.
func (net *Network) CalcError(predicted, target []float32) float32 {
	if len(predicted) != len(target) {
		shapeMismatch("prediction has length %d, target %d", len(predicted), len(target))
	}

	var loss float32
	if net.softmaxCrossEntropy {
		for i := range predicted {
			// Clamp to make sure the loss is finite.
			//
			// https://stackoverflow.com/a/70608107
			p := math32.Max(predicted[i], crossEntropyEpsilon)
			loss -= target[i] * math32.Log(p)
		}
		return loss
	}

	for i := range predicted {
		diff := predicted[i] - target[i]
		loss += diff * diff
	}
	return 0.5 * loss
}

func (net *Network) ForwardError(input, target []float32) float32 {
	return net.CalcError(net.Forward(input), target)
}

// ForwardErrors is the summed (not averaged) loss over a batch.
func (net *Network) ForwardErrors(inputs, targets [][]float32) float32 {
	x, y := net.batch(inputs, targets)
	as := net.ForwardBatch(x)
	pred := as[len(as)-1]

	var total float32
	for k := 0; k < x.Shape[0]; k++ {
		total += net.CalcError(pred.Row(k), y.Row(k))
	}
	return total
}

func (net *Network) batch(inputs, targets [][]float32) (x, y *AF32) {
	if len(inputs) != len(targets) {
		shapeMismatch("%d inputs but %d targets", len(inputs), len(targets))
	}
	return AF32FromRows(inputs, net.inputSize()), AF32FromRows(targets, net.outputSize())
}

// FitOne takes one gradient step on a single sample.
func (net *Network) FitOne(input, target []float32) {
	net.FitBatch([][]float32{input}, [][]float32{target})
}

// FitBatch takes one gradient step with the gradients of all samples
// averaged.
func (net *Network) FitBatch(inputs, targets [][]float32) {
	x, y := net.batch(inputs, targets)
	net.Step(x, y)
}

// Fit runs one epoch: FitBatch on consecutive chunks of batchSize samples, in
// order.  The last chunk may be smaller.
func (net *Network) Fit(inputs, targets [][]float32, batchSize int) {
	if batchSize <= 0 {
		panic(fmt.Sprintf("invalid batch size %d", batchSize))
	}
	if len(inputs) != len(targets) {
		shapeMismatch("%d inputs but %d targets", len(inputs), len(targets))
	}
	for start := 0; start < len(inputs); start += batchSize {
		end := min(start+batchSize, len(inputs))
		net.FitBatch(inputs[start:end], targets[start:end])
	}
}

// Step runs forward and backward propagation over one batch and updates the
// weights in place.
//
// x is the input.  Shape (batchSize, inputSize)
// y is the target.  Shape (batchSize, outputSize)
func (net *Network) Step(x, y *AF32) {
	if len(y.Shape) != 2 || y.Shape[0] != x.Shape[0] || y.Shape[1] != net.outputSize() {
		shapeMismatch("target shape %v, want (%d, %d)", y.Shape, x.Shape[0], net.outputSize())
	}
	batchSize := x.Shape[0]
	numLayers := len(net.Layers)

	// as[l] is the input to layer l and as[l+1] is its output.
	as := net.ForwardBatch(x)

	// Output layer.  With softmax and cross-entropy together, dJ/dz collapses
	// to (a - y), so dadz is 1.
	out := as[numLayers]
	djda := MakeAF32(batchSize, net.outputSize())
	dadz := MakeAF32(batchSize, net.outputSize())
	for i := range out.V {
		djda.V[i] = out.V[i] - y.V[i]
	}
	if net.softmaxCrossEntropy {
		for i := range dadz.V {
			dadz.V[i] = 1
		}
	} else {
		net.Layers[numLayers-1].Activation.derivative(out.V, dadz.V)
	}

	scale := net.learningRate / float32(batchSize)

	for l := numLayers - 1; l >= 0; l-- {
		lay := net.Layers[l]

		// Backprop calculations of djdw and djdb want the batch index as the
		// inner dimension.
		xT := MakeAF32(lay.InputSize, batchSize)
		AF32Transpose(as[l], xT)
		djdaT := MakeAF32(lay.OutputSize, batchSize)
		AF32Transpose(djda, djdaT)
		dadzT := MakeAF32(lay.OutputSize, batchSize)
		AF32Transpose(dadz, dadzT)

		djdw := MakeAF32(lay.InputSize, lay.OutputSize)
		djdb := MakeAF32(lay.OutputSize)
		lay.BackpropDjdw(xT, djdaT, dadzT, djdw)
		lay.BackpropDjdb(djdaT, dadzT, djdb)

		// djdx of layer l is the djda of layer l-1.  It has to be taken
		// before this layer's weights move.
		var prevDjda, prevDadz *AF32
		if l > 0 {
			prevDjda = MakeAF32(batchSize, lay.InputSize)
			lay.BackpropDjdx(djda, dadz, prevDjda)
			prevDadz = MakeAF32(batchSize, lay.InputSize)
			net.Layers[l-1].Activation.derivative(as[l].V, prevDadz.V)
		}

		net.regularization.penalize(lay.W.V, djdw.V)
		for i := range lay.W.V {
			lay.W.V[i] -= scale * djdw.V[i]
		}
		for i := range lay.B.V {
			lay.B.V[i] -= scale * djdb.V[i]
		}

		djda, dadz = prevDjda, prevDadz
	}
}
