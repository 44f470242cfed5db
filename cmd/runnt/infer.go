package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/mlp/toolbox"
	"github.com/google/subcommands"
)

type InferCommand struct {
	weightsFile string
	values      string
}

var _ subcommands.Command = (*InferCommand)(nil)

func (*InferCommand) Name() string {
	return "infer"
}

func (*InferCommand) Synopsis() string {
	return "Run saved weights on one input row"
}

func (*InferCommand) Usage() string {
	return ``
}

func (c *InferCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.weightsFile, "weights", "runnt.weights", "Path to the weights produced by the train command")
	f.StringVar(&c.values, "values", "", "Comma-separated input values")
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

	x, err := parseFloats(c.values)
	if err != nil {
		return fmt.Errorf("while parsing --values: %w", err)
	}
	if len(x) != net.Shape()[0] {
		return fmt.Errorf("%w: got %d values, network %v takes %d", toolbox.ErrShapeMismatch, len(x), net.Shape(), net.Shape()[0])
	}

	log.Printf("Prediction: %v", net.Forward(x))
	return nil
}
