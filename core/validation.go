package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ValidatePoint checks that every coordinate is finite
func ValidatePoint(p Point) error {
	for i, val := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(val) {
			return fmt.Errorf("%w: NaN at coordinate %d", ErrInvalidPoint, i)
		}
		if math.IsInf(val, 0) {
			return fmt.Errorf("%w: infinite value at coordinate %d", ErrInvalidPoint, i)
		}
	}
	return nil
}

// ValidateK checks a neighbour count
func ValidateK(k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidK, k)
	}
	return nil
}

// ValidateRadius checks a search radius
func ValidateRadius(radius float64) error {
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}
	return nil
}

// ValidateRunConfig checks if a run configuration is usable
func ValidateRunConfig(cfg RunConfig) error {
	if cfg.NumPoints <= 0 {
		return fmt.Errorf("%w: num_points must be positive, got %d", ErrInvalidConfig, cfg.NumPoints)
	}
	if cfg.NumQueries < 0 {
		return fmt.Errorf("%w: num_queries cannot be negative, got %d", ErrInvalidConfig, cfg.NumQueries)
	}
	if err := ValidateK(cfg.K); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.K > cfg.NumPoints {
		return fmt.Errorf("%w: k %d exceeds num_points %d", ErrInvalidConfig, cfg.K, cfg.NumPoints)
	}
	if cfg.SampleCount < 0 {
		return fmt.Errorf("%w: sample_count cannot be negative, got %d", ErrInvalidConfig, cfg.SampleCount)
	}
	if cfg.Parallelism <= 0 {
		return fmt.Errorf("%w: parallelism must be positive, got %d", ErrInvalidConfig, cfg.Parallelism)
	}
	if cfg.Radius < 0 || math.IsNaN(cfg.Radius) || math.IsInf(cfg.Radius, 0) {
		return fmt.Errorf("%w: radius must be a finite non-negative number", ErrInvalidConfig)
	}
	if len(cfg.Locators) == 0 {
		return fmt.Errorf("%w: at least one locator is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(cfg.Locators))
	for _, name := range cfg.Locators {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty locator name", ErrInvalidConfig)
		}
		if seen[name] {
			return fmt.Errorf("%w: locator %s listed twice", ErrInvalidConfig, name)
		}
		seen[name] = true
	}

	if cfg.Options.PointsPerBucket < 0 {
		return fmt.Errorf("%w: points_per_bucket cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// ValidateReportID checks that id is usable both as a store key and as a
// file name
func ValidateReportID(id string) error {
	if id == "" {
		return fmt.Errorf("report ID cannot be empty")
	}
	if strings.ContainsAny(id, "/\\:") || id == "." || id == ".." {
		return fmt.Errorf("report ID %q cannot contain path or key separators", id)
	}
	return nil
}

// ValidateReport checks that a report can be stored
func ValidateReport(r Report) error {
	if err := ValidateReportID(r.ID); err != nil {
		return err
	}
	for _, res := range r.Results {
		if res.BuildTime < 0 || res.QueryTime < 0 || res.ConcurrentQueryTime < 0 {
			return fmt.Errorf("report %s: negative timing for locator %s", r.ID, res.Locator)
		}
	}
	return nil
}

// SortNeighbors orders neighbours by ascending distance, breaking ties by index
func SortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Distance != ns[j].Distance {
			return ns[i].Distance < ns[j].Distance
		}
		return ns[i].Index < ns[j].Index
	})
}
