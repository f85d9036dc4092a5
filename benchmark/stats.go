package benchmark

import (
	"sort"
	"time"

	"github.com/dshills/nnbench/core"
	"gonum.org/v1/gonum/stat"
)

// computeLatencyStats summarises latencies. Empty input gives zero stats.
func computeLatencyStats(latencies []time.Duration) core.LatencyStats {
	if len(latencies) == 0 {
		return core.LatencyStats{}
	}

	ns := make([]float64, len(latencies))
	for i, l := range latencies {
		ns[i] = float64(l.Nanoseconds())
	}
	sort.Float64s(ns)

	mean, std := stat.MeanStdDev(ns, nil)
	if len(ns) < 2 {
		std = 0
	}
	quantile := func(p float64) time.Duration {
		return time.Duration(stat.Quantile(p, stat.Empirical, ns, nil))
	}

	return core.LatencyStats{
		Avg:    time.Duration(mean),
		Min:    time.Duration(ns[0]),
		Max:    time.Duration(ns[len(ns)-1]),
		P50:    quantile(0.50),
		P95:    quantile(0.95),
		P99:    quantile(0.99),
		StdDev: time.Duration(std),
	}
}
