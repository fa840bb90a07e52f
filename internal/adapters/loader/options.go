package loader

import (
	"runtime"

	"github.com/okian/bikeflow/pkg/logger"
)

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithWorkers bounds how many files are parsed at once.
func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger sets the logger used for skipped files and rows.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

func defaultWorkers() int { return runtime.NumCPU() }
