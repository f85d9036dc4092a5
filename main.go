package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dshills/nnbench/benchmark"
	"github.com/dshills/nnbench/core"
	"github.com/dshills/nnbench/index"
	"github.com/dshills/nnbench/logging"
)

// Runs the reference comparison: one million uniform points in the unit
// cube, a thousand nearest-point queries against the k-d tree and both
// bucket locators.
func main() {
	logger, err := logging.New(logging.Config{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	runner := benchmark.NewRunner(index.NewDefaultFactory(), core.DefaultRunConfig(),
		benchmark.WithLogger(logger),
		benchmark.WithOutput(os.Stdout))

	report, err := runner.Run(context.Background())
	if err != nil {
		logger.Sugar().Fatalf("benchmark failed: %v", err)
	}

	benchmark.PrintReport(os.Stdout, report)
}
