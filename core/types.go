package core

import (
	"time"

	"github.com/golang/geo/r3"
)

// Neighbor is a single nearest-neighbour hit
type Neighbor struct {
	Index    int     `json:"index"`    // position of the point in the built dataset
	Distance float64 `json:"distance"` // Euclidean distance to the query
}

// LocatorOptions tunes locator construction
type LocatorOptions struct {
	// PointsPerBucket is the target average bucket occupancy for grid locators
	PointsPerBucket int `json:"points_per_bucket" yaml:"points_per_bucket"`

	// Parallelism bounds the worker count used while building
	Parallelism int `json:"parallelism" yaml:"parallelism"`

	// Bounding makes the k-d tree record bounding boxes on every node
	Bounding bool `json:"bounding" yaml:"bounding"`

	// VPEffort is the vantage point selection effort for the vp-tree
	VPEffort int `json:"vp_effort" yaml:"vp_effort"`
}

// DefaultLocatorOptions returns options matching the reference toolkit defaults
func DefaultLocatorOptions() LocatorOptions {
	return LocatorOptions{
		PointsPerBucket: 3,
		Parallelism:     4,
		VPEffort:        3,
	}
}

// RunConfig describes one benchmark run
type RunConfig struct {
	NumPoints   int            `json:"num_points" yaml:"num_points"`
	NumQueries  int            `json:"num_queries" yaml:"num_queries"`
	K           int            `json:"k" yaml:"k"`
	Seed        int64          `json:"seed" yaml:"seed"`
	QuerySeed   int64          `json:"query_seed" yaml:"query_seed"`
	SampleCount int            `json:"sample_count" yaml:"sample_count"`
	Locators    []string       `json:"locators" yaml:"locators"`
	Parallelism int            `json:"parallelism" yaml:"parallelism"`
	Concurrent  bool           `json:"concurrent" yaml:"concurrent"`
	Verify      bool           `json:"verify" yaml:"verify"`
	Radius      float64        `json:"radius,omitempty" yaml:"radius"` // 0 skips the radius phase
	Options     LocatorOptions `json:"options" yaml:"options"`
}

// DefaultRunConfig mirrors the reference comparison: one million points,
// a thousand single-neighbour queries seeded with 4012.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		NumPoints:   1000000,
		NumQueries:  1000,
		K:           1,
		Seed:        1,
		QuerySeed:   4012,
		SampleCount: 10,
		Locators:    []string{"kdtree", "bucket", "static"},
		Parallelism: 4,
		Options:     DefaultLocatorOptions(),
	}
}

// LatencyStats summarises per-query latencies
type LatencyStats struct {
	Avg    time.Duration `json:"avg"`
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	P50    time.Duration `json:"p50"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	StdDev time.Duration `json:"stddev"`
}

// LocatorResult holds the measurements for one locator
type LocatorResult struct {
	Locator    string        `json:"locator"`
	Points     int           `json:"points"`
	Queries    int           `json:"queries"`
	BuildTime  time.Duration `json:"build_time"`
	QueryTime  time.Duration `json:"query_time"`
	Latency    LatencyStats  `json:"latency"`
	Throughput float64       `json:"throughput"` // queries per second

	// IndexBytes is the live heap the built locator added
	IndexBytes int64 `json:"index_bytes"`

	ConcurrentQueryTime  time.Duration `json:"concurrent_query_time,omitempty"`
	ConcurrentThroughput float64       `json:"concurrent_throughput,omitempty"`

	// Samples holds the first neighbour index of the leading queries
	Samples []int `json:"samples"`

	// Agreement is the fraction of queries whose nearest distance matches the
	// brute-force answer. Nil when verification was not requested.
	Agreement *float64 `json:"agreement,omitempty"`

	OutOfRange int `json:"out_of_range"`

	RadiusQueryTime time.Duration `json:"radius_query_time,omitempty"`
	AvgRadiusHits   float64       `json:"avg_radius_hits,omitempty"`
}

// HostInfo records where a run happened
type HostInfo struct {
	Hostname  string `json:"hostname"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	NumCPU    int    `json:"num_cpu"`
	GoVersion string `json:"go_version"`
}

// Report is the persisted outcome of a benchmark run
type Report struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Config     RunConfig       `json:"config"`
	Host       HostInfo        `json:"host"`
	Results    []LocatorResult `json:"results"`
}

// Result returns the result recorded for the named locator
func (r *Report) Result(locator string) (LocatorResult, bool) {
	for _, res := range r.Results {
		if res.Locator == locator {
			return res, true
		}
	}
	return LocatorResult{}, false
}

// ReportSummary is the listing view of a report
type ReportSummary struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	NumPoints int       `json:"num_points"`
	Locators  []string  `json:"locators"`
}

// Summary returns the listing view of the report
func (r *Report) Summary() ReportSummary {
	names := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		names = append(names, res.Locator)
	}
	return ReportSummary{
		ID:        r.ID,
		StartedAt: r.StartedAt,
		NumPoints: r.Config.NumPoints,
		Locators:  names,
	}
}

// Point is shorthand used in signatures throughout the module
type Point = r3.Vector
