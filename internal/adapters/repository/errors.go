package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound   = errors.New("nta not found")
	ErrNilDataset = errors.New("nil dataset")
)
