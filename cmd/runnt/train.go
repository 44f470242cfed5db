package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"

	"github.com/ahmedtd/mlp/dataset"
	"github.com/ahmedtd/mlp/toolbox"
	"github.com/ahmedtd/mlp/train"
	"github.com/google/subcommands"
)

type TrainCommand struct {
	csvFile    string
	inputCols  string
	targetCols string
	inputConv  string
	targetConv string
	testRatio  float64

	shape          string
	hidden         string
	output         string
	softmax        bool
	learningRate   float64
	regularization string
	initialization string
	seed           int64

	epochs      int
	batchSize   int
	reportEvery int
	metric      string

	fromWeightFile   string
	outputWeightFile string

	// learningRateSet records an explicit --learning-rate, which overrides
	// the rate stored in a --from file.
	learningRateSet bool
}

var _ subcommands.Command = (*TrainCommand)(nil)

func (*TrainCommand) Name() string {
	return "train"
}

func (*TrainCommand) Synopsis() string {
	return "Train a network on CSV data"
}

func (*TrainCommand) Usage() string {
	return ``
}

func (c *TrainCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.csvFile, "csv", "", "Path to the CSV data file; the first row is a header")
	f.StringVar(&c.inputCols, "inputs", "", "Comma-separated input column indices")
	f.StringVar(&c.targetCols, "targets", "", "Comma-separated target column indices")
	f.StringVar(&c.inputConv, "input-conv", "float", "Conversion for input columns: float, normalise, or onehot")
	f.StringVar(&c.targetConv, "target-conv", "float", "Conversion for target columns: float, normalise, or onehot")
	f.Float64Var(&c.testRatio, "test-ratio", 0.2, "Fraction of rows held back as test data")

	f.StringVar(&c.shape, "shape", "", "Comma-separated layer sizes, input first")
	f.StringVar(&c.hidden, "hidden", toolbox.Sigmoid.String(), "Hidden layer activation")
	f.StringVar(&c.output, "output", toolbox.Linear.String(), "Output layer activation")
	f.BoolVar(&c.softmax, "softmax", false, "Use softmax outputs with cross-entropy loss")
	f.Float64Var(&c.learningRate, "learning-rate", 0.01, "Learning rate")
	f.StringVar(&c.regularization, "regularization", "None", "None, L1(a), L2(a), or L1L2(a,b)")
	f.StringVar(&c.initialization, "init", "Random", "Random, RandomNormal, Identity, or Fixed(v)")
	f.Int64Var(&c.seed, "seed", 1, "Seed for weight initialization and shuffling")

	f.IntVar(&c.epochs, "epochs", 100, "Number of passes over the training data")
	f.IntVar(&c.batchSize, "batch", 1, "Samples per gradient step")
	f.IntVar(&c.reportEvery, "report", 10, "Epochs between metric reports")
	f.StringVar(&c.metric, "metric", train.MSE.String(), "Reported metric: mse, r2, or accuracy")

	f.StringVar(&c.fromWeightFile, "from", "", "Path to weights to continue training from; overrides the network flags")
	f.StringVar(&c.outputWeightFile, "out", "runnt.weights", "Path to save trained weights")
}

func (c *TrainCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	f.Visit(func(fl *flag.Flag) {
		if fl.Name == "learning-rate" {
			c.learningRateSet = true
		}
	})
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *TrainCommand) executeErr(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	r := rand.New(rand.NewSource(c.seed))

	set, err := c.loadData(r)
	if err != nil {
		return fmt.Errorf("while loading data: %w", err)
	}
	log.Printf("Loaded %d training and %d test rows", len(set.Training()), len(set.Test()))

	net, err := c.makeNetwork(r)
	if err != nil {
		return fmt.Errorf("while creating network: %w", err)
	}

	metric, err := train.ParseMetric(c.metric)
	if err != nil {
		return err
	}

	_, trainErr := train.Run(ctx, net, set, train.Config{
		Epochs:      c.epochs,
		BatchSize:   c.batchSize,
		ReportEvery: c.reportEvery,
		Metric:      metric,
		Rand:        r,
	})

	// Keep the weights from an interrupted run.
	if err := net.Save(c.outputWeightFile); err != nil {
		return fmt.Errorf("while saving weights: %w", err)
	}
	log.Printf("Wrote weights to %s", c.outputWeightFile)

	return trainErr
}

func (c *TrainCommand) loadData(r *rand.Rand) (*dataset.Set, error) {
	inputCols, err := parseInts(c.inputCols)
	if err != nil {
		return nil, fmt.Errorf("while parsing --inputs: %w", err)
	}
	targetCols, err := parseInts(c.targetCols)
	if err != nil {
		return nil, fmt.Errorf("while parsing --targets: %w", err)
	}
	inputConv, err := parseConversion(c.inputConv)
	if err != nil {
		return nil, err
	}
	targetConv, err := parseConversion(c.targetConv)
	if err != nil {
		return nil, err
	}

	return dataset.NewBuilder().
		ReadCSV(c.csvFile).
		AddInputColumns(inputCols, inputConv).
		AddTargetColumns(targetCols, targetConv).
		AllocateToTestData(c.testRatio).
		WithRand(r).
		Build()
}

func (c *TrainCommand) makeNetwork(r *rand.Rand) (*toolbox.Network, error) {
	if c.fromWeightFile != "" {
		net, err := toolbox.Load(c.fromWeightFile)
		if err != nil {
			return nil, err
		}
		if c.learningRateSet {
			net.SetLearningRate(float32(c.learningRate))
		}
		log.Printf("Loaded network %v from %s", net.Shape(), c.fromWeightFile)
		return net, nil
	}

	shape, err := parseInts(c.shape)
	if err != nil {
		return nil, fmt.Errorf("while parsing --shape: %w", err)
	}
	if len(shape) < 2 {
		return nil, fmt.Errorf("--shape needs at least an input and an output size")
	}
	for _, size := range shape {
		if size <= 0 {
			return nil, fmt.Errorf("--shape %q has a layer of size %d", c.shape, size)
		}
	}
	hidden, err := toolbox.ParseActivationType(c.hidden)
	if err != nil {
		return nil, err
	}
	output, err := toolbox.ParseActivationType(c.output)
	if err != nil {
		return nil, err
	}
	reg, err := toolbox.ParseRegularization(c.regularization)
	if err != nil {
		return nil, err
	}
	in, err := toolbox.ParseInitialization(c.initialization)
	if err != nil {
		return nil, err
	}

	opts := []toolbox.Option{
		toolbox.WithLearningRate(float32(c.learningRate)),
		toolbox.WithHiddenActivation(hidden),
		toolbox.WithOutputActivation(output),
		toolbox.WithRegularization(reg),
		toolbox.WithInitialization(in),
		toolbox.WithRand(r),
	}
	if c.softmax {
		opts = append(opts, toolbox.WithSoftmaxCrossEntropy())
	}
	return toolbox.MakeNetwork(shape, opts...), nil
}
