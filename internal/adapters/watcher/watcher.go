// Package watcher reloads the dataset when files in the data directory change.
// Bursts of events (a copy of many month files) collapse into one reload.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/okian/bikeflow/pkg/logger"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("watcher already started")

// Watcher calls onChange once per quiet period after relevant file events.
type Watcher struct {
	fw       *fsnotify.Watcher
	dirs     []string
	onChange func(ctx context.Context)
	filter   func(path string) bool
	debounce time.Duration
	log      logger.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
	exited  chan struct{}
}

// New creates a watcher for the given directories.
func New(onChange func(ctx context.Context), dirs []string, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:       fw,
		dirs:     dirs,
		onChange: onChange,
		filter:   func(string) bool { return true },
		debounce: 500 * time.Millisecond,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start adds the directories and begins delivering events. It returns once
// the watches are registered; the loop runs until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}
	for _, d := range w.dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return err
		}
		if err := w.fw.Add(abs); err != nil {
			return err
		}
	}
	w.started = true
	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.exited)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !relevant(event) || !w.filter(event.Name) {
				continue
			}
			w.debug(ctx, "data file changed",
				logger.String("path", event.Name),
				logger.String("op", event.Op.String()),
			)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.onChange(ctx)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Warn(ctx, "watch error", logger.Error(err))
			}

		case <-ctx.Done():
			return
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) debug(ctx context.Context, msg string, fields ...logger.Field) {
	if w.log != nil {
		w.log.Debug(ctx, msg, fields...)
	}
}

// Stop ends monitoring and waits for the loop to exit. Safe to call
// multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	close(w.done)
	w.mu.Unlock()

	err := w.fw.Close()
	if started {
		<-w.exited
	}
	return err
}

func relevant(e fsnotify.Event) bool {
	return e.Has(fsnotify.Write) || e.Has(fsnotify.Create) ||
		e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename)
}
