// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and env vars on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Theme holds the dashboard colours and font.
type Theme struct {
	PrimaryColor             string `koanf:"primary_color"`
	BackgroundColor          string `koanf:"background_color"`
	SecondaryBackgroundColor string `koanf:"secondary_background_color"`
	TextColor                string `koanf:"text_color"`
	Font                     string `koanf:"font"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":8501".
	Addr string `koanf:"addr"`
	// Title is shown in the page header and browser tab.
	Title string `koanf:"title"`
	// DataDir holds the YYYYMM_daily.csv flow files.
	DataDir string `koanf:"data_dir"`
	// NTAFile is the NTA boundary CSV. Optional.
	NTAFile string `koanf:"nta_file"`
	// RequireData fails startup when no flow files are found.
	RequireData bool `koanf:"require_data"`
	// Watch reloads the dataset when files in DataDir change.
	Watch bool `koanf:"watch"`
	// ReloadDebounceMS coalesces bursts of file events.
	ReloadDebounceMS int `koanf:"reload_debounce_ms"`
	// LoadWorkers bounds concurrent file parsing.
	LoadWorkers int `koanf:"load_workers"`
	// Compress enables brotli response compression.
	Compress bool `koanf:"compress"`
	// PrettyHTML indents rendered pages; meant for development.
	PrettyHTML bool `koanf:"pretty_html"`
	// MaxTopN caps the n parameter of top-N queries.
	MaxTopN int `koanf:"max_top_n"`
	// Theme styles the pages.
	Theme Theme `koanf:"theme"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":8501",
		Title:            "NYC Bike Flow Explorer",
		DataDir:          "daily_flows",
		NTAFile:          "NYC_NTAs.csv",
		Watch:            true,
		ReloadDebounceMS: 500,
		LoadWorkers:      runtime.NumCPU(),
		Compress:         true,
		MaxTopN:          50,
		Theme: Theme{
			PrimaryColor:             "#1f77b4",
			BackgroundColor:          "#ffffff",
			SecondaryBackgroundColor: "#f0f2f6",
			TextColor:                "#262730",
			Font:                     "sans serif",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DataDir) == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.MaxTopN < 1:
		return fmt.Errorf("%w: max_top_n must be positive", ErrInvalidConfig)
	case c.ReloadDebounceMS < 0:
		return fmt.Errorf("%w: reload_debounce_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}
