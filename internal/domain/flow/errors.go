package flow

import "errors"

// Sentinel kinds for flow domain errors.
var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidYearMonth = errors.New("invalid year-month")
	ErrNoData           = errors.New("no flow data")
)
