package core

import "context"

// LocatorFactory creates locator instances by name
type LocatorFactory interface {
	CreateLocator(name string, opts LocatorOptions) (Locator, error)
	Names() []string
}

// Locator answers nearest-neighbour queries over a fixed point set
type Locator interface {
	// Build indexes the points. Neighbour indices refer to positions in points.
	Build(ctx context.Context, points []Point) error

	// FindClosestPoint returns the single nearest point
	FindClosestPoint(query Point) (Neighbor, error)

	// FindClosestN returns up to k nearest points ordered by ascending distance
	FindClosestN(query Point, k int) ([]Neighbor, error)

	// FindWithinRadius returns every point within radius, ascending distance
	FindWithinRadius(query Point, radius float64) ([]Neighbor, error)

	// Size returns the number of indexed points
	Size() int

	// Type returns the locator name
	Type() string
}

// ReportStore handles durable storage of benchmark reports
type ReportStore interface {
	SaveReport(ctx context.Context, report Report) error
	LoadReport(ctx context.Context, id string) (Report, error)
	ListReports(ctx context.Context) ([]ReportSummary, error)
	DeleteReport(ctx context.Context, id string) error

	Close() error
}
