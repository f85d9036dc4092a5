package benchmark

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dshills/nnbench/core"
	"github.com/dustin/go-humanize"
)

// PrintReport writes the benchmark results as a formatted table
func PrintReport(w io.Writer, report *core.Report) {
	cfg := report.Config
	fmt.Fprintln(w, "\n=== Benchmark Results ===")
	fmt.Fprintf(w, "Run: %s\n", report.ID)
	fmt.Fprintf(w, "Points: %d  Queries: %d  K: %d  Seed: %d  Query seed: %d\n",
		cfg.NumPoints, cfg.NumQueries, cfg.K, cfg.Seed, cfg.QuerySeed)
	fmt.Fprintf(w, "%-10s %10s %10s %10s %10s %10s %10s %14s %10s\n",
		"Locator", "Build", "Query", "Avg", "P50", "P95", "P99", "Throughput", "Agreement")
	fmt.Fprintln(w, strings.Repeat("-", 102))

	for _, r := range report.Results {
		agreement := "-"
		if r.Agreement != nil {
			agreement = fmt.Sprintf("%.2f%%", *r.Agreement*100)
		}
		fmt.Fprintf(w, "%-10s %10s %10s %10s %10s %10s %10s %12.2f/s %10s\n",
			r.Locator,
			formatDuration(r.BuildTime),
			formatDuration(r.QueryTime),
			formatDuration(r.Latency.Avg),
			formatDuration(r.Latency.P50),
			formatDuration(r.Latency.P95),
			formatDuration(r.Latency.P99),
			r.Throughput,
			agreement,
		)
	}

	for _, r := range report.Results {
		if r.ConcurrentQueryTime > 0 {
			fmt.Fprintf(w, "%s concurrent (%d workers): %s, %.2f/s\n",
				r.Locator, cfg.Parallelism, formatDuration(r.ConcurrentQueryTime), r.ConcurrentThroughput)
		}
		if r.RadiusQueryTime > 0 {
			fmt.Fprintf(w, "%s radius %g: %s, %.2f hits per query\n",
				r.Locator, cfg.Radius, formatDuration(r.RadiusQueryTime), r.AvgRadiusHits)
		}
		if r.IndexBytes > 0 {
			fmt.Fprintf(w, "%s index memory: %s\n", r.Locator, humanize.IBytes(uint64(r.IndexBytes)))
		}
		if r.OutOfRange > 0 {
			fmt.Fprintf(w, "%s: %d neighbour indices out of range\n", r.Locator, r.OutOfRange)
		}
	}
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Microsecond {
		return fmt.Sprintf("%dns", d.Nanoseconds())
	} else if d < time.Millisecond {
		return fmt.Sprintf("%.1fµs", float64(d.Nanoseconds())/1000)
	} else if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

