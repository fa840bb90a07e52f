// Package site renders the dashboard pages.
package site

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/okian/bikeflow/internal/adapters/http/api"
	"github.com/okian/bikeflow/internal/adapters/repository"
	"github.com/okian/bikeflow/internal/config"
	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/okian/bikeflow/pkg/logger"
	"github.com/okian/bikeflow/pkg/metrics"
	"github.com/yosssi/gohtml"
	g "maragu.dev/gomponents"
)

// ErrRender wraps page rendering failures.
var ErrRender = errors.New("page render failed")

// Dependencies are the data the pages read.
type Dependencies interface {
	Snapshot(ctx context.Context) *repository.Dataset
	Ranking(ctx context.Context, earlier, later flow.YearMonth, dir flow.Direction) (flow.Ranking, error)
}

// Site serves the HTML pages and their static assets.
type Site struct {
	deps     Dependencies
	title    string
	theme    config.Theme
	pretty   bool
	compress bool
	log      logger.Logger
}

// Option configures a Site.
type Option func(*Site)

// WithTitle sets the application title.
func WithTitle(title string) Option {
	return func(s *Site) {
		if title != "" {
			s.title = title
		}
	}
}

// WithTheme sets the page colours and font.
func WithTheme(t config.Theme) Option {
	return func(s *Site) { s.theme = t }
}

// WithPrettyHTML indents rendered pages.
func WithPrettyHTML(enabled bool) Option {
	return func(s *Site) { s.pretty = enabled }
}

// WithCompression enables brotli responses.
func WithCompression(enabled bool) Option {
	return func(s *Site) { s.compress = enabled }
}

// WithLogger sets the logger used for render failures and degraded pages.
func WithLogger(log logger.Logger) Option {
	return func(s *Site) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Site.
func New(deps Dependencies, opts ...Option) *Site {
	s := &Site{
		deps:  deps,
		title: "NYC Bike Flow Explorer",
		theme: config.New().Theme,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches the page routes to mux.
func (s *Site) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	pages := []struct {
		path string
		page string
		fn   http.HandlerFunc
	}{
		{"/", "home", s.HandleHome},
		{"/about", "about", s.HandleAbout},
		{"/explorer", "explorer", s.HandleExplorer},
	}
	for _, p := range pages {
		fn := p.fn
		if s.compress {
			fn = api.Compress(fn)
		}
		mux.HandleFunc(p.path, api.RequestID(api.MetricsMiddleware(fn, p.page)))
	}
	mux.Handle("/static/", http.StripPrefix("/static/", api.MetricsMiddleware(s.HandleStatic, "static")))
}

// render writes node as an HTML document with the given status.
func (s *Site) render(w http.ResponseWriter, r *http.Request, page string, status int, node g.Node) {
	start := time.Now()

	var buf bytes.Buffer
	if err := node.Render(&buf); err != nil {
		if s.log != nil {
			s.log.Error(r.Context(), "render page",
				logger.String("page", page),
				logger.String("requestID", api.RequestIDFrom(r.Context())),
				logger.Error(err))
		}
		http.Error(w, ErrRender.Error(), http.StatusInternalServerError)
		return
	}
	body := buf.Bytes()
	if s.pretty && mimetype.Detect(body).Is("text/html") {
		body = gohtml.FormatBytes(body)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
	metrics.RecordPageRender(page, float64(time.Since(start).Microseconds())/1000)
}

func (s *Site) allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return false
	}
	return true
}
