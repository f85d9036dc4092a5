package index

import (
	"fmt"

	"github.com/dshills/nnbench/core"
)

// DefaultFactory implements core.LocatorFactory
type DefaultFactory struct{}

// NewDefaultFactory creates a new default locator factory
func NewDefaultFactory() *DefaultFactory {
	return &DefaultFactory{}
}

// CreateLocator creates a locator instance based on name and options
func (f *DefaultFactory) CreateLocator(name string, opts core.LocatorOptions) (core.Locator, error) {
	switch name {
	case TypeKDTree:
		return NewKDTreeLocator(opts.Bounding), nil
	case TypeVPTree:
		return NewVPTreeLocator(opts.VPEffort), nil
	case TypeBucket:
		return NewBucketLocator(opts.PointsPerBucket), nil
	case TypeStatic:
		return NewStaticLocator(opts.PointsPerBucket, opts.Parallelism), nil
	case TypeFlat:
		return NewFlatLocator(), nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownLocator, name)
	}
}

// displayNames are the console headings of the reference comparison
var displayNames = map[string]string{
	TypeKDTree: "KDTree",
	TypeVPTree: "VPTree",
	TypeBucket: "PointLocator",
	TypeStatic: "StaticPointLocator",
	TypeFlat:   "BruteForce",
}

// DisplayName returns the console heading for a locator type. Unknown
// types are returned unchanged.
func DisplayName(name string) string {
	if d, ok := displayNames[name]; ok {
		return d
	}
	return name
}

// Names returns every locator the factory can create
func (f *DefaultFactory) Names() []string {
	return []string{TypeKDTree, TypeVPTree, TypeBucket, TypeStatic, TypeFlat}
}
