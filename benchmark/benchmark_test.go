package benchmark

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dshills/nnbench/core"
	"github.com/dshills/nnbench/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func smallConfig() core.RunConfig {
	cfg := core.DefaultRunConfig()
	cfg.NumPoints = 2000
	cfg.NumQueries = 50
	cfg.Parallelism = 2
	return cfg
}

func TestRunnerReferenceLocators(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := smallConfig()
	cfg.Verify = true
	cfg.Concurrent = true

	var out bytes.Buffer
	runner := NewRunner(index.NewDefaultFactory(), cfg,
		WithOutput(&out),
		WithLogger(zaptest.NewLogger(t)))

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
	require.Len(t, report.Results, 3)

	var samples [][]int
	for i, res := range report.Results {
		assert.Equal(t, cfg.Locators[i], res.Locator)
		assert.Equal(t, cfg.NumPoints, res.Points)
		assert.GreaterOrEqual(t, res.BuildTime, time.Duration(0))
		assert.GreaterOrEqual(t, res.QueryTime, time.Duration(0))
		assert.GreaterOrEqual(t, res.ConcurrentQueryTime, time.Duration(0))
		assert.Zero(t, res.OutOfRange)
		require.Len(t, res.Samples, cfg.SampleCount)
		for _, s := range res.Samples {
			assert.True(t, s >= 0 && s < cfg.NumPoints)
		}
		require.NotNil(t, res.Agreement)
		assert.Equal(t, 1.0, *res.Agreement, res.Locator)

		assert.LessOrEqual(t, res.Latency.Min, res.Latency.P50)
		assert.LessOrEqual(t, res.Latency.P50, res.Latency.P95)
		assert.LessOrEqual(t, res.Latency.P95, res.Latency.P99)
		assert.LessOrEqual(t, res.Latency.P99, res.Latency.Max)
		samples = append(samples, res.Samples)
	}

	// Every locator answers the same queries, so exact locators agree.
	assert.Equal(t, samples[0], samples[1])
	assert.Equal(t, samples[0], samples[2])

	text := out.String()
	for _, name := range cfg.Locators {
		assert.Contains(t, text, index.DisplayName(name)+"\nBuilding locator.\nCreating time of 2000 points in ")
	}
	assert.Equal(t, 3, strings.Count(text, "Searched for 50 points in "))
}

func TestRunnerConsoleLayout(t *testing.T) {
	cfg := smallConfig()
	cfg.Locators = []string{"static"}
	cfg.SampleCount = 3

	var out bytes.Buffer
	report, err := NewRunner(index.NewDefaultFactory(), cfg, WithOutput(&out)).Run(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "StaticPointLocator", lines[0])
	assert.Equal(t, "Building locator.", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Creating time of 2000 points in "))
	for i, s := range report.Results[0].Samples {
		assert.Equal(t, strconv.Itoa(s), lines[3+i])
	}
	assert.True(t, strings.HasPrefix(lines[6], "Searched for 50 points in "))
}

func TestRunnerKNearestAndRadius(t *testing.T) {
	cfg := smallConfig()
	cfg.K = 4
	cfg.Radius = 0.05
	cfg.Locators = []string{"kdtree", "vptree", "bucket", "static", "flat"}

	report, err := NewRunner(index.NewDefaultFactory(), cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 5)

	hits := report.Results[0].AvgRadiusHits
	for _, res := range report.Results {
		assert.Nil(t, res.Agreement)
		assert.Greater(t, res.RadiusQueryTime, time.Duration(0))
		assert.Equal(t, hits, res.AvgRadiusHits, res.Locator)
	}
}

func TestRunnerRejectsBadConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.NumPoints = 0
	_, err := NewRunner(index.NewDefaultFactory(), cfg).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	cfg = smallConfig()
	cfg.Locators = []string{"kdtree", "octree"}
	_, err = NewRunner(index.NewDefaultFactory(), cfg).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrUnknownLocator)
}

func TestRunnerCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := smallConfig()
	cfg.Verify = true
	_, err := NewRunner(index.NewDefaultFactory(), cfg).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerZeroQueries(t *testing.T) {
	cfg := smallConfig()
	cfg.NumQueries = 0
	cfg.Concurrent = true

	report, err := NewRunner(index.NewDefaultFactory(), cfg).Run(context.Background())
	require.NoError(t, err)
	for _, res := range report.Results {
		assert.Empty(t, res.Samples)
		assert.Zero(t, res.Throughput)
		assert.Equal(t, core.LatencyStats{}, res.Latency)
	}
}

func TestComputeLatencyStats(t *testing.T) {
	assert.Equal(t, core.LatencyStats{}, computeLatencyStats(nil))

	single := computeLatencyStats([]time.Duration{5 * time.Millisecond})
	assert.Equal(t, 5*time.Millisecond, single.Avg)
	assert.Equal(t, 5*time.Millisecond, single.P99)
	assert.Zero(t, single.StdDev)

	var lat []time.Duration
	for i := 100; i >= 1; i-- {
		lat = append(lat, time.Duration(i)*time.Microsecond)
	}
	s := computeLatencyStats(lat)
	assert.Equal(t, time.Microsecond, s.Min)
	assert.Equal(t, 100*time.Microsecond, s.Max)
	assert.Equal(t, 50*time.Microsecond, s.P50)
	assert.Equal(t, 95*time.Microsecond, s.P95)
	assert.Equal(t, 99*time.Microsecond, s.P99)
	assert.InDelta(t, float64(50500*time.Nanosecond), float64(s.Avg), 1)
	assert.Greater(t, s.StdDev, time.Duration(0))
}

func TestPrintReport(t *testing.T) {
	agreement := 1.0
	report := &core.Report{
		ID:     "run-42",
		Config: core.DefaultRunConfig(),
		Results: []core.LocatorResult{
			{Locator: "kdtree", BuildTime: 2 * time.Second, QueryTime: 3 * time.Millisecond, Throughput: 1000, Agreement: &agreement, IndexBytes: 3 << 20},
			{Locator: "bucket", BuildTime: 500 * time.Microsecond, QueryTime: 800 * time.Nanosecond, OutOfRange: 2},
		},
	}

	var buf bytes.Buffer
	PrintReport(&buf, report)
	text := buf.String()

	assert.Contains(t, text, "Run: run-42")
	assert.Contains(t, text, "2.00s")
	assert.Contains(t, text, "3.0ms")
	assert.Contains(t, text, "500.0µs")
	assert.Contains(t, text, "800ns")
	assert.Contains(t, text, "100.00%")
	assert.Contains(t, text, "bucket: 2 neighbour indices out of range")
	assert.Contains(t, text, "kdtree index memory: 3.0 MiB")
	assert.NotContains(t, text, "bucket index memory")
}
