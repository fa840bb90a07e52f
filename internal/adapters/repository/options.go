package repository

import "time"

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithReplaceHook registers fn to run after every published dataset.
func WithReplaceHook(fn func(*Dataset)) Option {
	return func(s *MemStore) {
		s.onReplace = fn
	}
}

// WithClock overrides the time source used for snapshot metrics.
func WithClock(now func() time.Time) Option {
	return func(s *MemStore) {
		if now != nil {
			s.now = now
		}
	}
}
