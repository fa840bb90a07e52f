package generator

import (
	"fmt"
	"runtime"

	"github.com/okian/bikeflow/internal/domain/flow"
)

// Config holds configuration for a dataset generation run.
type Config struct {
	OutDir   string         // Directory receiving the YYYYMM_daily.csv files
	NTAFile  string         // Boundary file path; empty skips it
	From     flow.YearMonth // First month, inclusive
	To       flow.YearMonth // Last month, inclusive
	Areas    int            // Number of neighbourhoods per borough
	Pairs    int            // Origin/destination pairs emitted per day
	MaxRides int            // Upper bound of ride_count per row
	Seed     uint64         // Seed; the same seed gives the same files
	Workers  int            // Months written concurrently
}

// DefaultConfig returns a small two-year dataset rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		OutDir:   dir,
		From:     "202301",
		To:       "202412",
		Areas:    4,
		Pairs:    30,
		MaxRides: 40,
		Seed:     522,
		Workers:  runtime.NumCPU(),
	}
}

// Validate checks the configuration before anything is written.
func (c Config) Validate() error {
	if c.OutDir == "" {
		return fmt.Errorf("%w: empty output dir", ErrInvalidConfig)
	}
	from, err := flow.ParseYearMonth(string(c.From))
	if err != nil {
		return fmt.Errorf("%w: from: %w", ErrInvalidConfig, err)
	}
	to, err := flow.ParseYearMonth(string(c.To))
	if err != nil {
		return fmt.Errorf("%w: to: %w", ErrInvalidConfig, err)
	}
	if from > to {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidConfig, from, to)
	}
	if c.Areas <= 0 || c.Areas > maxAreasPerBorough {
		return fmt.Errorf("%w: areas must be within 1..%d", ErrInvalidConfig, maxAreasPerBorough)
	}
	if c.Pairs <= 0 {
		return fmt.Errorf("%w: pairs must be positive", ErrInvalidConfig)
	}
	if c.MaxRides <= 0 {
		return fmt.Errorf("%w: max rides must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats holds the outcome of a run.
type Stats struct {
	Files int
	Rows  int
	Rides int64
	Areas int
}

// Months lists every month from c.From to c.To inclusive.
func (c Config) Months() []flow.YearMonth {
	var out []flow.YearMonth
	for t := c.From.Time(); !t.After(c.To.Time()); t = t.AddDate(0, 1, 0) {
		out = append(out, flow.YearMonthOf(t))
	}
	return out
}
