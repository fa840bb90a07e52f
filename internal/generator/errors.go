package generator

import "errors"

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid generator config")
	// ErrVerify marks a generated dataset that does not read back as written.
	ErrVerify = errors.New("dataset verification failed")
)
