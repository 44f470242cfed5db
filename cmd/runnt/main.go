// Command runnt trains and runs feedforward networks on CSV data.
//
// To train: `go run ./cmd/runnt train --csv=iris.csv --inputs=0,1,2,3 --targets=4 --target-conv=onehot --shape=4,8,3 --softmax --metric=accuracy`
//
// To infer: `go run ./cmd/runnt infer --weights=runnt.weights --values=5.1,3.5,1.4,0.2`
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&TrainCommand{}, "")
	subcommands.Register(&InferCommand{}, "")
	subcommands.Register(&ExportCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
