package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/nnbench/benchmark"
	"github.com/dshills/nnbench/config"
	"github.com/dshills/nnbench/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runFlags holds the values of the run command flags
type runFlags struct {
	points          int
	queries         int
	k               int
	seed            int64
	querySeed       int64
	samples         int
	locators        string
	parallel        int
	concurrent      bool
	verify          bool
	radius          float64
	pointsPerBucket int
	save            bool
	profileDir      string
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the locator benchmark",
		Long: `Generates a uniform point cloud in the unit cube, then builds and
queries every selected locator in turn. Query points are regenerated from
the query seed before each locator so all of them answer the same queries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&f.points, "points", 0, "number of dataset points")
	flags.IntVar(&f.queries, "queries", 0, "number of query points")
	flags.IntVar(&f.k, "k", 0, "neighbours per query")
	flags.Int64Var(&f.seed, "seed", 0, "dataset random seed")
	flags.Int64Var(&f.querySeed, "query-seed", 0, "query random seed")
	flags.IntVar(&f.samples, "samples", 0, "neighbour indices to print per locator")
	flags.StringVar(&f.locators, "locators", "", "comma separated locator names")
	flags.IntVar(&f.parallel, "parallel", 0, "worker count for builds and the concurrent phase")
	flags.BoolVar(&f.concurrent, "concurrent", false, "also time a concurrent query phase")
	flags.BoolVar(&f.verify, "verify", false, "check answers against brute force")
	flags.Float64Var(&f.radius, "radius", 0, "also time radius queries with this radius")
	flags.IntVar(&f.pointsPerBucket, "points-per-bucket", 0, "target bucket occupancy for grid locators")
	flags.BoolVar(&f.save, "save", false, "store the report")
	flags.StringVar(&f.profileDir, "profile-dir", "", "write CPU and heap profiles of the run into this directory")
	return cmd
}

// run applies changed flags over the configured defaults and runs the benchmark
func (a *app) run(cmd *cobra.Command, f runFlags) error {
	cfg := a.cfg.Benchmark
	flags := cmd.Flags()

	if flags.Changed("points") {
		cfg.NumPoints = f.points
	}
	if flags.Changed("queries") {
		cfg.NumQueries = f.queries
	}
	if flags.Changed("k") {
		cfg.K = f.k
	}
	if flags.Changed("seed") {
		cfg.Seed = f.seed
	}
	if flags.Changed("query-seed") {
		cfg.QuerySeed = f.querySeed
	}
	if flags.Changed("samples") {
		cfg.SampleCount = f.samples
	}
	if flags.Changed("locators") {
		cfg.Locators = config.SplitList(f.locators)
	}
	if flags.Changed("parallel") {
		cfg.Parallelism = f.parallel
		cfg.Options.Parallelism = f.parallel
	}
	if flags.Changed("concurrent") {
		cfg.Concurrent = f.concurrent
	}
	if flags.Changed("verify") {
		cfg.Verify = f.verify
	}
	if flags.Changed("radius") {
		cfg.Radius = f.radius
	}
	if flags.Changed("points-per-bucket") {
		cfg.Options.PointsPerBucket = f.pointsPerBucket
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	runner := benchmark.NewRunner(a.factory, cfg,
		benchmark.WithLogger(a.logger),
		benchmark.WithOutput(out))

	var profiler *profile.Profiler
	if f.profileDir != "" {
		var err error
		if profiler, err = profile.New(profile.DefaultConfig(f.profileDir)); err != nil {
			return err
		}
		if err := profiler.Start(); err != nil {
			return err
		}
	}

	report, err := runner.Run(ctx)
	if profiler != nil {
		files, stopErr := profiler.Stop()
		if stopErr != nil {
			a.logger.Error("profiling failed", zap.Error(stopErr))
		}
		for _, file := range files {
			a.logger.Info("profile written", zap.String("path", file))
		}
		a.logger.Info("heap usage", zap.Uint64("peak_heap_bytes", profiler.PeakHeap()))
	}
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	fmt.Fprintln(out)
	benchmark.PrintReport(out, report)

	if !f.save {
		return nil
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveReport(context.WithoutCancel(ctx), *report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	a.logger.Info("report saved", zap.String("run_id", report.ID))
	fmt.Fprintf(out, "Saved report %s\n", report.ID)
	return nil
}
