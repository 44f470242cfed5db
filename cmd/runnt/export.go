package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ahmedtd/mlp/toolbox"
	"github.com/google/subcommands"
)

// ExportCommand converts a weights file to safetensors so the parameters can
// be read by other frameworks.
type ExportCommand struct {
	weightsFile string
	outputFile  string
}

var _ subcommands.Command = (*ExportCommand)(nil)

func (*ExportCommand) Name() string {
	return "export"
}

func (*ExportCommand) Synopsis() string {
	return "Write saved weights in safetensors format"
}

func (*ExportCommand) Usage() string {
	return ``
}

func (c *ExportCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.weightsFile, "weights", "runnt.weights", "Path to the weights produced by the train command")
	f.StringVar(&c.outputFile, "out", "runnt.safetensors", "Path to write")
}

func (c *ExportCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *ExportCommand) executeErr(ctx context.Context) error {
	net, err := toolbox.Load(c.weightsFile)
	if err != nil {
		return fmt.Errorf("while loading weights: %w", err)
	}

	f, err := os.Create(c.outputFile)
	if err != nil {
		return fmt.Errorf("while creating output file: %w", err)
	}
	defer f.Close()

	tensors := map[string]*toolbox.AF32{}
	net.DumpTensors(tensors)
	if err := toolbox.WriteSafeTensors(f, tensors); err != nil {
		return fmt.Errorf("while writing tensors: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing output file: %w", err)
	}

	log.Printf("Wrote %d tensors to %s", len(tensors), c.outputFile)
	return nil
}
