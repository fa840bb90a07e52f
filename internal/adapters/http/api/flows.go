package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/okian/bikeflow/internal/adapters/repository"
	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/okian/bikeflow/pkg/logger"
	"github.com/paulmach/orb/geojson"
)

// FlowsHandler serves the read-only dataset queries.
type FlowsHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewFlowsHandler creates a new flows handler.
func NewFlowsHandler(deps Dependencies) *FlowsHandler {
	return &FlowsHandler{deps: deps}
}

// fail writes err and logs it: server errors at error level, rejected
// requests at debug.
func (h *FlowsHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := writeErr(w, err)
	if h.log == nil {
		return
	}
	fields := []logger.Field{
		logger.String("path", r.URL.Path),
		logger.Int("status", status),
		logger.String("requestID", RequestIDFrom(r.Context())),
		logger.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", fields...)
		return
	}
	h.log.Debug(r.Context(), "request rejected", fields...)
}

type periodView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func viewOf(p flow.Period) periodView { return periodView{Value: p.Value(), Label: p.Label()} }

type boroughsResponse struct {
	Boroughs []string `json:"boroughs"`
}

type ntasResponse struct {
	Borough string   `json:"borough"`
	NTAs    []string `json:"ntas"`
}

type periodsResponse struct {
	Periods    []periodView `json:"periods"`
	Years      []int        `json:"years"`
	From       time.Time    `json:"from"`
	To         time.Time    `json:"to"`
	Comparison *comparison  `json:"comparison,omitempty"`
}

type comparison struct {
	Earlier flow.YearMonth `json:"earlier"`
	Later   flow.YearMonth `json:"later"`
}

type seriesResponse struct {
	NTA       string              `json:"nta"`
	Borough   string              `json:"borough"`
	Direction flow.Direction      `json:"direction"`
	Daily     []flow.DailyPoint   `json:"daily,omitempty"`
	Monthly   []flow.MonthlyPoint `json:"monthly,omitempty"`
}

type totalsResponse struct {
	NTA       string         `json:"nta,omitempty"`
	Direction flow.Direction `json:"direction"`
	Period    periodView     `json:"period"`
	Totals    []flow.Total   `json:"totals"`
}

type rankingResponse struct {
	flow.Ranking
	Summary *flow.RankingSummary `json:"summary,omitempty"`
	Text    string               `json:"text,omitempty"`
}

type matrixResponse struct {
	Period periodView `json:"period"`
	flow.Matrix
}

type monthlyTotalsResponse struct {
	Direction flow.Direction      `json:"direction"`
	Totals    []flow.MonthlyTotal `json:"totals"`
}

type summaryResponse struct {
	repository.Info
	TimeRange string `json:"time_range"`
}

// allowGet rejects anything but GET and HEAD.
func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return false
	}
	return true
}

// HandleBoroughs handles GET /api/boroughs.
func (h *FlowsHandler) HandleBoroughs(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	d := h.deps.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, boroughsResponse{Boroughs: nonNil(d.Boroughs())})
}

// HandleNTAs handles GET /api/ntas?borough=&q=.
func (h *FlowsHandler) HandleNTAs(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	d := h.deps.Snapshot(r.Context())
	borough := param(r, "borough")
	var ntas []string
	if q := param(r, "q"); q != "" {
		ntas = d.SearchNTAs(q)
	} else {
		ntas = d.NTAs(borough)
	}
	if borough == "" {
		borough = flow.AllBoroughs
	}
	writeJSON(w, http.StatusOK, ntasResponse{Borough: borough, NTAs: nonNil(ntas)})
}

// HandlePeriods handles GET /api/periods.
func (h *FlowsHandler) HandlePeriods(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	d := h.deps.Snapshot(r.Context())
	yms := d.YearMonths()
	resp := periodsResponse{
		Periods: []periodView{viewOf(flow.AllTime)},
		Years:   nonNil(d.Years()),
	}
	for _, ym := range yms {
		resp.Periods = append(resp.Periods, viewOf(flow.Period{YearMonth: ym}))
	}
	resp.From, resp.To = d.DateRange()
	if e, l, err := flow.ComparisonPeriods(yms); err == nil {
		resp.Comparison = &comparison{Earlier: e, Later: l}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSeries handles GET /api/series?nta=&direction=&granularity=daily|monthly.
func (h *FlowsHandler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	d := h.deps.Snapshot(r.Context())
	nta, err := ntaParam(r, d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dir, err := directionParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := seriesResponse{NTA: nta, Borough: d.BoroughOf(nta), Direction: dir}
	switch param(r, "granularity") {
	case "", "monthly":
		resp.Monthly = d.MonthlySeries(nta, dir)
	case "daily":
		resp.Daily = d.DailySeries(nta, dir)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleTop handles GET /api/top?nta=&direction=&n=&period=. Outgoing lists
// destinations, incoming lists origins.
func (h *FlowsHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	d := h.deps.Snapshot(r.Context())
	nta, err := ntaParam(r, d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dir, p, n, err := h.commonParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsResponse{
		NTA:       nta,
		Direction: dir,
		Period:    viewOf(p),
		Totals:    nonNil(d.Top(nta, dir, n, p)),
	})
}

// HandleTraffic handles GET /api/traffic?direction=&period=[&nta=][&n=].
// With nta it returns that NTA's traffic to every peer; otherwise totals
// for every NTA, limited to n when given.
func (h *FlowsHandler) HandleTraffic(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	d := h.deps.Snapshot(r.Context())
	dir, p, n, err := h.commonParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := totalsResponse{Direction: dir, Period: viewOf(p)}
	switch {
	case param(r, "nta") != "":
		nta, err := ntaParam(r, d)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resp.NTA = nta
		resp.Totals = d.TrafficFrom(nta, p, dir)
	case param(r, "n") != "":
		resp.Totals = d.TopTraffic(p, dir, n)
	default:
		resp.Totals = d.Traffic(p, dir)
	}
	resp.Totals = nonNil(resp.Totals)
	writeJSON(w, http.StatusOK, resp)
}

// HandleRanking handles GET /api/ranking?direction=&from=&to=[&nta=].
func (h *FlowsHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	dir, err := directionParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	from, err := yearMonthParam(r, "from")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := yearMonthParam(r, "to")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d := h.deps.Snapshot(r.Context())
	ranking, err := d.Compare(from, to, dir)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := rankingResponse{Ranking: ranking}
	if resp.Rows == nil {
		resp.Rows = []flow.RankingRow{}
	}
	if nta := param(r, "nta"); nta != "" {
		if !d.HasNTA(nta) {
			h.fail(w, r, fmt.Errorf("%w: %s", repository.ErrNotFound, nta))
			return
		}
		sum := flow.Summarize(nta, ranking)
		resp.Summary = &sum
		resp.Text = sum.Text()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleBoroughFlows handles GET /api/borough-flows?period=.
func (h *FlowsHandler) HandleBoroughFlows(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	p, err := periodParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d := h.deps.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, matrixResponse{Period: viewOf(p), Matrix: d.BoroughMatrix(p)})
}

// HandleFlowMatrix handles GET /api/flow-matrix?period=&n=.
func (h *FlowsHandler) HandleFlowMatrix(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	_, p, n, err := h.commonParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d := h.deps.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, matrixResponse{Period: viewOf(p), Matrix: d.FlowMatrix(p, n)})
}

// HandleMonthlyTotals handles GET /api/monthly-totals?direction=[&nta=].
func (h *FlowsHandler) HandleMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	dir, err := directionParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d := h.deps.Snapshot(r.Context())
	totals := d.TotalsByMonth(dir)
	if param(r, "nta") != "" {
		nta, err := ntaParam(r, d)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		kept := totals[:0:0]
		for _, t := range totals {
			if t.NTA == nta {
				kept = append(kept, t)
			}
		}
		totals = kept
	}
	writeJSON(w, http.StatusOK, monthlyTotalsResponse{Direction: dir, Totals: nonNil(totals)})
}

// HandleGeoJSON handles GET /api/geojson.
func (h *FlowsHandler) HandleGeoJSON(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	fc := h.deps.Snapshot(r.Context()).GeoJSON()
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	body, err := fc.MarshalJSON()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// HandleSummary handles GET /api/summary.
func (h *FlowsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	d := h.deps.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, summaryResponse{Info: d.Info(), TimeRange: d.TimeRangeLabel()})
}

func (h *FlowsHandler) commonParams(r *http.Request) (flow.Direction, flow.Period, int, error) {
	dir, err := directionParam(r)
	if err != nil {
		return "", flow.Period{}, 0, err
	}
	p, err := periodParam(r)
	if err != nil {
		return "", flow.Period{}, 0, err
	}
	n, err := topNParam(r, h.deps.MaxTopN())
	if err != nil {
		return "", flow.Period{}, 0, err
	}
	return dir, p, n, nil
}

// nonNil keeps empty lists as [] rather than null in responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
