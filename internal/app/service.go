// Package service owns the flow dataset lifecycle: the initial load, reloads
// triggered by the data directory watcher, and the snapshot the HTTP layer
// reads from.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/okian/bikeflow/internal/adapters/loader"
	"github.com/okian/bikeflow/internal/adapters/repository"
	"github.com/okian/bikeflow/internal/adapters/watcher"
	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/okian/bikeflow/pkg/logger"
	"github.com/okian/bikeflow/pkg/metrics"
)

// Reload outcomes recorded in metrics.
const (
	reloadOK    = "ok"
	reloadError = "error"
)

// Service implements the data dependencies of the HTTP layer.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	loader  *loader.Loader
	watcher *watcher.Watcher

	// Configuration
	dataDir     string
	ntaFile     string
	loadWorkers int
	watch       bool
	debounce    time.Duration
	requireData bool
	maxTopN     int

	// State
	started    bool
	reloadMu   sync.Mutex
	lastLoad   time.Time
	lastErr    error
	reloads    int
	loadTimeMs float64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataDir sets the directory holding the YYYYMM_daily.csv files.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// WithNTAFile sets the NTA boundary file. Empty disables the map data.
func WithNTAFile(path string) Option {
	return func(s *Service) { s.ntaFile = path }
}

// WithLoadWorkers bounds concurrent file parsing.
func WithLoadWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.loadWorkers = n
		}
	}
}

// WithWatch enables reloading when the data files change.
func WithWatch(enabled bool) Option {
	return func(s *Service) { s.watch = enabled }
}

// WithDebounce sets the quiet period before a watched change reloads.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithRequireData makes Start fail when the initial load fails or is empty.
func WithRequireData(required bool) Option {
	return func(s *Service) { s.requireData = required }
}

// WithMaxTopN caps top-N query sizes.
func WithMaxTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTopN = n
		}
	}
}

// WithStore replaces the default in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataDir:     "daily_flows",
		ntaFile:     "NYC_NTAs.csv",
		loadWorkers: runtime.NumCPU(),
		debounce:    500 * time.Millisecond,
		maxTopN:     50,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemStore()
	}
	return s
}

// Start performs the initial load and, when enabled, starts watching the
// data directory. A failed load is fatal only with WithRequireData.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.loader = loader.New(
		loader.WithWorkers(s.loadWorkers),
		loader.WithLogger(s.logger),
	)

	s.logger.Info(ctx, "starting flow service...",
		logger.String("dataDir", s.dataDir),
		logger.String("ntaFile", s.ntaFile),
	)

	err := s.Reload(ctx)
	if err == nil && s.requireData && s.store.Snapshot(ctx).Empty() {
		err = fmt.Errorf("%w: %s", flow.ErrNoData, s.dataDir)
	}
	if err != nil {
		if s.requireData {
			return err
		}
		s.logger.Warn(ctx, "serving without data", logger.Error(err))
	}

	if s.watch {
		if err := s.startWatcher(ctx); err != nil {
			s.logger.Warn(ctx, "data directory watch disabled", logger.Error(err))
		}
	}

	s.started = true
	info := s.store.Snapshot(ctx).Info()
	s.logger.Info(ctx, "flow service started",
		logger.Int("records", info.Records),
		logger.Int("files", info.Files),
		logger.Int("ntas", info.NTAs),
		logger.Int64("rides", info.TotalRides),
		logger.Bool("watch", s.watcher != nil),
	)
	return nil
}

func (s *Service) startWatcher(ctx context.Context) error {
	dirs := []string{s.dataDir}
	ntaBase := ""
	if s.ntaFile != "" {
		ntaBase = filepath.Base(s.ntaFile)
		if ntaDir := filepath.Dir(s.ntaFile); filepath.Clean(ntaDir) != filepath.Clean(s.dataDir) {
			dirs = append(dirs, ntaDir)
		}
	}
	w, err := watcher.New(s.onDataChanged, dirs,
		watcher.WithDebounce(s.debounce),
		watcher.WithLogger(s.logger),
		watcher.WithFilter(func(path string) bool {
			base := filepath.Base(path)
			return strings.HasSuffix(base, loader.FileSuffix) || (ntaBase != "" && base == ntaBase)
		}),
	)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return err
	}
	s.watcher = w
	return nil
}

func (s *Service) onDataChanged(ctx context.Context) {
	if err := s.Reload(ctx); err != nil {
		s.logger.Error(ctx, "reload failed, keeping previous dataset", logger.Error(err))
	}
}

// Reload reads the data directory and publishes a new snapshot. On failure
// the current snapshot stays in place.
func (s *Service) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.loader == nil {
		s.loader = loader.New(loader.WithWorkers(s.loadWorkers))
	}

	res, err := s.loader.Load(ctx, s.dataDir, s.ntaFile)
	if err != nil {
		s.lastErr = err
		metrics.RecordDatasetLoadError()
		metrics.RecordReload(reloadError)
		return err
	}

	ms := float64(res.Duration.Microseconds()) / 1000
	metrics.RecordDatasetLoad(res.Files, ms)
	if res.Rejected > 0 {
		metrics.RecordRowsRejected(res.Rejected)
		s.log().Warn(ctx, "skipped malformed rows", logger.Int("rows", res.Rejected))
	}

	d := repository.NewDataset(res.Records, res.Areas, res.Files)
	if err := s.store.Replace(ctx, d); err != nil {
		s.lastErr = err
		metrics.RecordReload(reloadError)
		return err
	}

	s.lastErr = nil
	s.lastLoad = time.Now()
	s.loadTimeMs = ms
	s.reloads++
	metrics.RecordReload(reloadOK)

	s.log().Info(ctx, "dataset loaded",
		logger.Int("files", res.Files),
		logger.Int("records", len(res.Records)),
		logger.Int("areas", len(res.Areas)),
		logger.Int64("rides", d.Info().TotalRides),
		logger.Duration("load", res.Duration),
	)
	return nil
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Get()
	}
	return s.logger
}

// Stop stops the watcher. The last snapshot remains readable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping flow service...")
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn(context.Background(), "watcher stop", logger.Error(err))
		}
		s.watcher = nil
	}
	s.started = false
	s.logger.Info(context.Background(), "flow service stopped")
}

// Snapshot returns the dataset currently served.
func (s *Service) Snapshot(ctx context.Context) *repository.Dataset {
	return s.store.Snapshot(ctx)
}

// MaxTopN is the largest n accepted by top-N queries.
func (s *Service) MaxTopN() int { return s.maxTopN }

// Ranking compares two months of the current snapshot.
func (s *Service) Ranking(ctx context.Context, earlier, later flow.YearMonth, dir flow.Direction) (flow.Ranking, error) {
	return s.store.Snapshot(ctx).Compare(earlier, later, dir)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	watching := s.watcher != nil
	s.mu.RUnlock()

	s.reloadMu.Lock()
	lastLoad, lastErr, reloads, loadMs := s.lastLoad, s.lastErr, s.reloads, s.loadTimeMs
	s.reloadMu.Unlock()

	stats := map[string]interface{}{
		"started":     started,
		"watching":    watching,
		"dataDir":     s.dataDir,
		"ntaFile":     s.ntaFile,
		"loadWorkers": s.loadWorkers,
		"reloads":     reloads,
		"version":     s.store.Version(),
		"dataset":     s.store.Snapshot(context.Background()).Info(),
	}
	if !lastLoad.IsZero() {
		stats["lastLoad"] = lastLoad.UTC().Format(time.RFC3339)
		stats["lastLoadMs"] = loadMs
	}
	if lastErr != nil {
		stats["lastError"] = lastErr.Error()
	}
	return stats
}
