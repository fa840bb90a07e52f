package loader

import "errors"

// Sentinel kinds for loader errors.
var (
	ErrLoadData      = errors.New("load data failed")
	ErrMissingColumn = errors.New("missing csv column")
)
