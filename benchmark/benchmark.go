package benchmark

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/dshills/nnbench/core"
	"github.com/dshills/nnbench/dataset"
	"github.com/dshills/nnbench/index"
	"github.com/dshills/nnbench/profile"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ctxCheckEvery is how many queries run between context checks
const ctxCheckEvery = 256

// agreementTolerance is the relative distance difference still counted as
// the same nearest neighbour
const agreementTolerance = 1e-9

// Runner times locator construction and queries over one synthetic dataset
type Runner struct {
	factory core.LocatorFactory
	config  core.RunConfig
	logger  *zap.Logger
	out     io.Writer
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOutput sets where the per-locator console lines are written
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// NewRunner creates a new benchmark runner
func NewRunner(factory core.LocatorFactory, config core.RunConfig, opts ...Option) *Runner {
	r := &Runner{
		factory: factory,
		config:  config,
		logger:  zap.NewNop(),
		out:     io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run generates the dataset and measures every configured locator in turn
func (r *Runner) Run(ctx context.Context) (*core.Report, error) {
	cfg := r.config
	if err := core.ValidateRunConfig(cfg); err != nil {
		return nil, err
	}

	// Resolve every locator up front so a typo fails before a long run.
	locators := make([]core.Locator, 0, len(cfg.Locators))
	for _, name := range cfg.Locators {
		loc, err := r.factory.CreateLocator(name, cfg.Options)
		if err != nil {
			return nil, err
		}
		locators = append(locators, loc)
	}

	report := &core.Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Config:    cfg,
		Host:      hostInfo(),
	}
	log := r.logger.With(zap.String("run_id", report.ID))

	log.Info("generating dataset",
		zap.Int("points", cfg.NumPoints),
		zap.Int64("seed", cfg.Seed))
	points := dataset.Uniform(cfg.NumPoints, cfg.Seed)

	var oracle []float64
	if cfg.Verify {
		var err error
		oracle, err = r.computeOracle(ctx, points)
		if err != nil {
			return nil, fmt.Errorf("verification oracle failed: %w", err)
		}
	}

	for _, loc := range locators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log.Info("benchmarking locator", zap.String("locator", loc.Type()))
		result, err := r.runLocator(ctx, loc, points, oracle)
		if err != nil {
			return nil, fmt.Errorf("locator %s: %w", loc.Type(), err)
		}
		log.Info("locator finished",
			zap.String("locator", result.Locator),
			zap.Duration("build", result.BuildTime),
			zap.Duration("query", result.QueryTime),
			zap.Int("out_of_range", result.OutOfRange))
		report.Results = append(report.Results, result)

		// Give the next locator a clean heap.
		runtime.GC()
	}

	report.FinishedAt = time.Now()
	return report, nil
}

// runLocator builds one locator and runs the query phases against it
func (r *Runner) runLocator(ctx context.Context, loc core.Locator, points []core.Point, oracle []float64) (core.LocatorResult, error) {
	cfg := r.config
	result := core.LocatorResult{
		Locator: loc.Type(),
		Points:  len(points),
		Queries: cfg.NumQueries,
		Samples: make([]int, 0, min(cfg.SampleCount, cfg.NumQueries)),
	}

	fmt.Fprintln(r.out, index.DisplayName(loc.Type()))
	fmt.Fprintln(r.out, "Building locator.")
	heapBefore := profile.RetainedHeap()
	start := time.Now()
	if err := loc.Build(ctx, points); err != nil {
		return result, fmt.Errorf("build failed: %w", err)
	}
	result.BuildTime = time.Since(start)
	fmt.Fprintf(r.out, "Creating time of %d points in %gs\n", len(points), result.BuildTime.Seconds())
	result.IndexBytes = max(0, int64(profile.RetainedHeap())-int64(heapBefore))

	// Regenerated from the seed so every locator answers the same queries.
	queries := dataset.Queries(cfg.NumQueries, cfg.QuerySeed)
	latencies := make([]time.Duration, 0, len(queries))
	agree := 0

	start = time.Now()
	for i, q := range queries {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}

		opStart := time.Now()
		ns, err := query(loc, q, cfg.K)
		if err != nil {
			return result, fmt.Errorf("query %d failed: %w", i, err)
		}
		latencies = append(latencies, time.Since(opStart))

		if len(ns) == 0 {
			return result, fmt.Errorf("query %d returned no neighbours", i)
		}
		if i < cfg.SampleCount {
			result.Samples = append(result.Samples, ns[0].Index)
			fmt.Fprintln(r.out, ns[0].Index)
		}
		for _, n := range ns {
			if n.Index < 0 || n.Index >= len(points) {
				result.OutOfRange++
			}
		}
		if oracle != nil && sameDistance(ns[0].Distance, oracle[i]) {
			agree++
		}
	}
	result.QueryTime = time.Since(start)
	fmt.Fprintf(r.out, "Searched for %d points in %gs\n", len(queries), result.QueryTime.Seconds())

	result.Latency = computeLatencyStats(latencies)
	result.Throughput = throughput(len(queries), result.QueryTime)

	if oracle != nil && len(queries) > 0 {
		a := float64(agree) / float64(len(queries))
		result.Agreement = &a
	}

	if cfg.Concurrent && len(queries) > 0 {
		elapsed, err := r.concurrentQueries(ctx, loc, queries)
		if err != nil {
			return result, fmt.Errorf("concurrent queries failed: %w", err)
		}
		result.ConcurrentQueryTime = elapsed
		result.ConcurrentThroughput = throughput(len(queries), elapsed)
	}

	if cfg.Radius > 0 && len(queries) > 0 {
		elapsed, hits, err := r.radiusQueries(ctx, loc, queries)
		if err != nil {
			return result, fmt.Errorf("radius queries failed: %w", err)
		}
		result.RadiusQueryTime = elapsed
		result.AvgRadiusHits = float64(hits) / float64(len(queries))
	}

	return result, nil
}

// query answers a single query, using the single-neighbour entry point when
// only one neighbour is wanted
func query(loc core.Locator, q core.Point, k int) ([]core.Neighbor, error) {
	if k == 1 {
		n, err := loc.FindClosestPoint(q)
		if err != nil {
			return nil, err
		}
		return []core.Neighbor{n}, nil
	}
	return loc.FindClosestN(q, k)
}

// concurrentQueries splits the queries across Parallelism workers
func (r *Runner) concurrentQueries(ctx context.Context, loc core.Locator, queries []core.Point) (time.Duration, error) {
	workers := r.config.Parallelism
	chunk := (len(queries) + workers - 1) / workers

	eg, egCtx := errgroup.WithContext(ctx)
	start := time.Now()
	for lo := 0; lo < len(queries); lo += chunk {
		part := queries[lo:min(lo+chunk, len(queries))]
		eg.Go(func() error {
			for i, q := range part {
				if i%ctxCheckEvery == 0 {
					if err := egCtx.Err(); err != nil {
						return err
					}
				}
				if _, err := query(loc, q, r.config.K); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// radiusQueries measures fixed-radius searches and counts the hits
func (r *Runner) radiusQueries(ctx context.Context, loc core.Locator, queries []core.Point) (time.Duration, int, error) {
	hits := 0
	start := time.Now()
	for i, q := range queries {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, 0, err
			}
		}
		ns, err := loc.FindWithinRadius(q, r.config.Radius)
		if err != nil {
			return 0, 0, err
		}
		hits += len(ns)
	}
	return time.Since(start), hits, nil
}

// computeOracle finds the exact nearest distance of every query by brute
// force, spread across Parallelism workers
func (r *Runner) computeOracle(ctx context.Context, points []core.Point) ([]float64, error) {
	cfg := r.config
	queries := dataset.Queries(cfg.NumQueries, cfg.QuerySeed)

	flat := index.NewFlatLocator()
	if err := flat.Build(ctx, points); err != nil {
		return nil, err
	}

	r.logger.Info("computing brute-force oracle", zap.Int("queries", len(queries)))
	dists := make([]float64, len(queries))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Parallelism)
	for i, q := range queries {
		i, q := i, q
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			n, err := flat.FindClosestPoint(q)
			if err != nil {
				return err
			}
			dists[i] = n.Distance
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return dists, nil
}

func sameDistance(got, want float64) bool {
	return math.Abs(got-want) <= agreementTolerance*math.Max(1, math.Abs(want))
}

func throughput(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}

func hostInfo() core.HostInfo {
	hostname, _ := os.Hostname()
	return core.HostInfo{
		Hostname:  hostname,
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}
}
