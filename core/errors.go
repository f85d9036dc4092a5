package core

import "errors"

// Common errors
var (
	ErrNotBuilt       = errors.New("locator not built")
	ErrEmptyDataset   = errors.New("empty dataset")
	ErrInvalidK       = errors.New("invalid neighbour count")
	ErrInvalidRadius  = errors.New("invalid search radius")
	ErrInvalidPoint   = errors.New("invalid point")
	ErrUnknownLocator = errors.New("unknown locator")
	ErrReportNotFound = errors.New("report not found")
	ErrInvalidConfig  = errors.New("invalid run configuration")
)
