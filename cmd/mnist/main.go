// Command mnist implements training and inference on the MNIST dataset.
//
// To train: `go run ./cmd/mnist train --data-file=cmd/mnist/data/mnist.npz`
//
// To infer: `go run ./cmd/mnist infer --weights=mnist.weights --image=cmd/mnist/data/five.png`
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime/pprof"
	"time"

	"github.com/ahmedtd/mlp/dataset"
	"github.com/ahmedtd/mlp/toolbox"
	"github.com/ahmedtd/mlp/train"
	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&TrainCommand{}, "")
	subcommands.Register(&InferCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

type TrainCommand struct {
	dataFile string
	epochs   int

	fromWeightFile   string
	outputWeightFile string

	cpuProfileFile string
}

var _ subcommands.Command = (*TrainCommand)(nil)

func (*TrainCommand) Name() string {
	return "train"
}

func (*TrainCommand) Synopsis() string {
	return "Train the model"
}

func (*TrainCommand) Usage() string {
	return ``
}

func (c *TrainCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dataFile, "data-file", "mnist.npz", "Path to the mnist.npz input file")
	f.IntVar(&c.epochs, "epochs", 19, "Number of passes over the training data")
	f.StringVar(&c.fromWeightFile, "from", "", "Path to initial weights to load for training")
	f.StringVar(&c.outputWeightFile, "out", "mnist.weights", "Path to save trained weights, rewritten after every epoch")

	f.StringVar(&c.cpuProfileFile, "cpu-profile", "", "Write a CPU profile")
}

func (c *TrainCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *TrainCommand) executeErr(ctx context.Context) error {
	if c.cpuProfileFile != "" {
		f, err := os.Create(c.cpuProfileFile)
		if err != nil {
			return fmt.Errorf("while creating CPU profile file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("while starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	set, err := dataset.LoadNPZ(c.dataFile, dataset.MNIST)
	if err != nil {
		return fmt.Errorf("while loading MNIST data set: %w", err)
	}
	log.Printf("Data loaded: %d training and %d test images", len(set.Training()), len(set.Test()))

	r := rand.New(rand.NewSource(1))

	net := toolbox.MakeNetwork([]int{28 * 28, 128, 10},
		toolbox.WithHiddenActivation(toolbox.Sigmoid),
		toolbox.WithOutputActivation(toolbox.Sigmoid),
		toolbox.WithLearningRate(0.15),
		toolbox.WithRand(r),
	)

	if c.fromWeightFile != "" {
		net, err = toolbox.Load(c.fromWeightFile)
		if err != nil {
			return fmt.Errorf("while loading initial weights: %w", err)
		}
	}

	start := time.Now()
	for epoch := 1; epoch <= c.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		set.Shuffle(r)
		inputs, targets := dataset.Columns(set.Training())
		net.Fit(inputs, targets, 10)

		if err := net.Save(c.outputWeightFile); err != nil {
			return fmt.Errorf("while writing weights: %w", err)
		}

		log.Printf("epoch %d training-mse=%f testing-mse=%f training-pct=%.1f testing-pct=%.1f elapsed=%.1fs",
			epoch,
			train.Evaluate(net, set.Training(), train.MSE),
			train.Evaluate(net, set.Test(), train.MSE),
			100*train.Evaluate(net, set.Training(), train.CorrectClassification),
			100*train.Evaluate(net, set.Test(), train.CorrectClassification),
			time.Since(start).Seconds(),
		)
	}

	return nil
}
