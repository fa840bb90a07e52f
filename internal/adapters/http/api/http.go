// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/bikeflow/internal/adapters/repository"
	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/okian/bikeflow/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Snapshot returns the dataset currently served. Never nil.
	Snapshot(ctx context.Context) *repository.Dataset
	// MaxTopN caps the n parameter.
	MaxTopN() int
}

// Server wires HTTP routes for the JSON API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	flowsHandler  *FlowsHandler
	compress      bool
	log           logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithCompression enables brotli responses for clients that accept them.
func WithCompression(enabled bool) ServerOption {
	return func(s *Server) { s.compress = enabled }
}

// WithLogger logs rejected and failed requests with their request id.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		flowsHandler:  NewFlowsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.flowsHandler.log = s.log
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// promhttp negotiates its own encoding
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))

	h := s.flowsHandler
	routes := []struct {
		path     string
		endpoint string
		fn       http.HandlerFunc
	}{
		{"/stats", "stats", s.statsHandler.HandleStats},
		{"/api/boroughs", "boroughs", h.HandleBoroughs},
		{"/api/ntas", "ntas", h.HandleNTAs},
		{"/api/periods", "periods", h.HandlePeriods},
		{"/api/series", "series", h.HandleSeries},
		{"/api/top", "top", h.HandleTop},
		{"/api/ranking", "ranking", h.HandleRanking},
		{"/api/borough-flows", "borough_flows", h.HandleBoroughFlows},
		{"/api/flow-matrix", "flow_matrix", h.HandleFlowMatrix},
		{"/api/traffic", "traffic", h.HandleTraffic},
		{"/api/monthly-totals", "monthly_totals", h.HandleMonthlyTotals},
		{"/api/geojson", "geojson", h.HandleGeoJSON},
		{"/api/summary", "summary", h.HandleSummary},
	}
	for _, rt := range routes {
		fn := rt.fn
		if s.compress {
			fn = Compress(fn)
		}
		mux.HandleFunc(rt.path, RequestID(MetricsMiddleware(fn, rt.endpoint)))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeErr translates domain errors to a status and code, returning the status.
func writeErr(w http.ResponseWriter, err error) int {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrMissingParam),
		errors.Is(err, flow.ErrInvalidDirection), errors.Is(err, flow.ErrInvalidYearMonth):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, flow.ErrNoData):
		status, code = http.StatusServiceUnavailable, "no_data"
	}
	writeError(w, status, code, err)
	return status
}
