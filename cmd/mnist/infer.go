package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"

	"github.com/ahmedtd/mlp/toolbox"
	"github.com/chewxy/math32"
	"github.com/google/subcommands"

	_ "image/jpeg"
	_ "image/png"
)

type InferCommand struct {
	weightsFile string
	imageFile   string
}

var _ subcommands.Command = (*InferCommand)(nil)

func (*InferCommand) Name() string {
	return "infer"
}

func (*InferCommand) Synopsis() string {
	return "Infer using the model weights"
}

func (*InferCommand) Usage() string {
	return ``
}

func (c *InferCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.weightsFile, "weights", "mnist.weights", "Path to the weights produced by the train command")
	f.StringVar(&c.imageFile, "image", "", "Path to the 28x28 image to predict")
}

func (c *InferCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *InferCommand) executeErr(ctx context.Context) error {
	net, err := toolbox.Load(c.weightsFile)
	if err != nil {
		return fmt.Errorf("while loading weights: %w", err)
	}
	if shape := net.Shape(); shape[0] != 28*28 || shape[len(shape)-1] != 10 {
		return fmt.Errorf("%w: network %v does not map 28x28 images to 10 digits", toolbox.ErrShapeMismatch, shape)
	}

	x, err := c.loadImage()
	if err != nil {
		return fmt.Errorf("while loading image: %w", err)
	}

	pred := net.Forward(x)

	digit := 0
	score := math32.Inf(-1)
	for i, p := range pred {
		if p > score {
			digit = i
			score = p
		}
	}

	log.Printf("Prediction: %d", digit)
	return nil
}

func (c *InferCommand) loadImage() ([]float32, error) {
	f, err := os.Open(c.imageFile)
	if err != nil {
		return nil, fmt.Errorf("while opening image file: %w", err)
	}
	defer f.Close()

	rawImg, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("while decoding image: %w", err)
	}

	rawBounds := rawImg.Bounds()
	if rawBounds.Dx() != 28 || rawBounds.Dy() != 28 {
		return nil, fmt.Errorf("image is %dx%d, want 28x28", rawBounds.Dx(), rawBounds.Dy())
	}

	// Scaled the same way as dataset.MNIST.
	out := make([]float32, 28*28)
	for y := rawBounds.Min.Y; y < rawBounds.Max.Y; y++ {
		for x := rawBounds.Min.X; x < rawBounds.Max.X; x++ {
			v := float32(color.GrayModel.Convert(rawImg.At(x, y)).(color.Gray).Y) / float32(255)
			out[(y-rawBounds.Min.Y)*28+(x-rawBounds.Min.X)] = v
		}
	}

	return out, nil
}
