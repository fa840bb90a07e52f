package site

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/okian/bikeflow/internal/adapters/http/api"
	"github.com/okian/bikeflow/internal/adapters/repository"
	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/okian/bikeflow/pkg/logger"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// Chart sizes shown by the explorer.
const (
	flowTopN     = 10
	heatTopN     = 15
	overviewTopN = 20
	matrixTopN   = 10
)

// selection is the explorer state decoded from the query string. Invalid
// values fall back to defaults rather than failing the page.
type selection struct {
	Borough    string
	NTAs       []string
	NTA        string
	Direction  flow.Direction
	Period     flow.Period
	Earlier    flow.YearMonth
	Later      flow.YearMonth
	YearMonths []flow.YearMonth
}

func parseSelection(q url.Values, d *repository.Dataset) selection {
	sel := selection{
		Borough:    q.Get("borough"),
		Direction:  flow.Outgoing,
		Period:     flow.AllTime,
		YearMonths: d.YearMonths(),
	}
	if sel.Borough == "" || !slices.Contains(d.Boroughs(), sel.Borough) {
		sel.Borough = flow.AllBoroughs
	}
	sel.NTAs = d.NTAs(sel.Borough)
	sel.NTA = q.Get("nta")
	if !slices.Contains(sel.NTAs, sel.NTA) {
		sel.NTA = ""
		if len(sel.NTAs) > 0 {
			sel.NTA = sel.NTAs[min(flow.DefaultNTAIndex(sel.Borough), len(sel.NTAs)-1)]
		}
	}
	if dir, err := flow.ParseDirection(q.Get("direction")); err == nil {
		sel.Direction = dir
	}
	if p, err := flow.ParsePeriod(q.Get("period")); err == nil && (p.IsAllTime() || slices.Contains(sel.YearMonths, p.YearMonth)) {
		sel.Period = p
	}

	sel.Earlier, sel.Later, _ = flow.ComparisonPeriods(sel.YearMonths)
	if ym, err := flow.ParseYearMonth(q.Get("from")); err == nil && slices.Contains(sel.YearMonths, ym) {
		sel.Earlier = ym
	}
	if ym, err := flow.ParseYearMonth(q.Get("to")); err == nil && slices.Contains(sel.YearMonths, ym) {
		sel.Later = ym
	}
	return sel
}

// HandleExplorer handles GET /explorer.
func (s *Site) HandleExplorer(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}
	d := s.deps.Snapshot(r.Context())
	sel := parseSelection(r.URL.Query(), d)

	content := g.Group{
		h.H1(g.Text("🚴 " + s.title)),
		h.P(h.Class("lead"), g.Text(
			"This app lets you explore bike ride patterns between NYC neighborhoods (Neighborhood Tabulation Areas or NTAs). "+
				"Discover which neighborhoods have the most bike traffic, where riders are coming from and going to, "+
				"and how patterns have changed over time.")),
	}
	if d.Empty() {
		content = append(content,
			h.Div(h.Class("notice"), g.Text("No ride data is loaded. Add YYYYMM_daily.csv files to the data directory; the page updates on the next load.")),
			aboutSection(d),
		)
		s.render(w, r, "explorer", http.StatusOK, s.layout("Explorer", "explorer", content...))
		return
	}

	ranking, err := s.deps.Ranking(r.Context(), sel.Earlier, sel.Later, sel.Direction)
	if err != nil {
		if s.log != nil {
			s.log.Warn(r.Context(), "ranking unavailable",
				logger.String("requestID", api.RequestIDFrom(r.Context())),
				logger.Error(err))
		}
		ranking = flow.Ranking{Earlier: sel.Earlier, Later: sel.Later, Direction: sel.Direction}
	}

	content = append(content,
		controls(d, sel),
		h.Nav(h.Class("tabs"),
			h.A(h.Href("#trends"), g.Text("📈 Trends")),
			h.A(h.Href("#flows"), g.Text("🔀 Flows")),
			h.A(h.Href("#heatmap"), g.Text("🔥 Heat Map")),
			h.A(h.Href("#rankings"), g.Text("🔍 Rankings")),
			h.A(h.Href("#overview"), g.Text("🗺️ Overview")),
			h.A(h.Href("#about"), g.Text("ℹ️ About")),
		),
		trendsSection(d, sel),
		flowsSection(d, sel),
		heatSection(d, sel),
		rankingsSection(sel, ranking),
		overviewSection(d, sel),
		aboutSection(d),
	)
	s.render(w, r, "explorer", http.StatusOK, s.layout("Explorer", "explorer", content...))
}

func controls(d *repository.Dataset, sel selection) g.Node {
	boroughs := append([]string{flow.AllBoroughs}, d.Boroughs()...)
	periods := append([]flow.Period{flow.AllTime}, periodsOf(sel.YearMonths)...)
	return g.El("form", h.Class("controls"), h.Method("get"), h.Action("/explorer"),
		field("Borough:", selectBox("borough", sel.Borough, boroughs, func(b string) (string, string) { return b, b })),
		field("Neighborhood (NTA):", selectBox("nta", sel.NTA, sel.NTAs, func(n string) (string, string) { return n, n })),
		field("Direction:", selectBox("direction", string(sel.Direction), []flow.Direction{flow.Outgoing, flow.Incoming},
			func(dir flow.Direction) (string, string) { return string(dir), dir.Describe() })),
		field("Period:", selectBox("period", sel.Period.Value(), periods,
			func(p flow.Period) (string, string) { return p.Value(), p.Label() })),
		field("Earlier Period:", selectBox("from", string(sel.Earlier), sel.YearMonths, monthOption)),
		field("Later Period:", selectBox("to", string(sel.Later), sel.YearMonths, monthOption)),
		h.Div(h.Button(h.Type("submit"), g.Text("Update"))),
	)
}

func monthOption(ym flow.YearMonth) (string, string) { return string(ym), ym.Format() }

func periodsOf(yms []flow.YearMonth) []flow.Period {
	out := make([]flow.Period, len(yms))
	for i, ym := range yms {
		out[i] = flow.Period{YearMonth: ym}
	}
	return out
}

func field(label string, control g.Node) g.Node {
	return h.Div(g.El("label", g.Text(label), control))
}

// selectBox renders a select whose options come from items via opt, which
// returns the value and the visible text.
func selectBox[T any](name, selected string, items []T, opt func(T) (string, string)) g.Node {
	return h.Select(h.Name(name), g.Map(items, func(it T) g.Node {
		value, text := opt(it)
		return h.Option(h.Value(value), g.If(value == selected, g.Attr("selected")), g.Text(text))
	}))
}

func section(id, title string, children ...g.Node) g.Node {
	return h.Section(h.ID(id), h.Class("tab"), h.H2(g.Text(title)), g.Group(children))
}

func trendsSection(d *repository.Dataset, sel selection) g.Node {
	monthly := d.MonthlySeries(sel.NTA, sel.Direction)
	return section("trends", "Ride Trends Over Time",
		h.Div(h.Class("grid2"),
			h.Div(
				h.H3(g.Text("Monthly Time Series")),
				barChart(barsFromMonthly(monthly)),
				h.P(h.Class("caption"), g.Textf("Monthly %s ride totals for %s.", sel.Direction, sel.NTA)),
			),
			h.Div(
				h.H3(g.Text("Year-over-Year Comparison")),
				yearOverYear(monthly),
				h.P(h.Class("caption"), g.Text("Compare the same months across different years.")),
			),
		),
	)
}

func flowsSection(d *repository.Dataset, sel selection) g.Node {
	title := "Top Destinations from " + sel.NTA
	if sel.Direction == flow.Incoming {
		title = "Top Origins to " + sel.NTA
	}
	top := d.Top(sel.NTA, sel.Direction, flowTopN, sel.Period)
	return section("flows", "Ride Flow Patterns",
		h.P(g.Textf("Period: %s", sel.Period.Label())),
		h.Div(h.Class("grid2"),
			h.Div(
				h.H3(g.Text(title)),
				barChart(barsFromTotals(top)),
			),
			h.Div(
				h.H3(g.Text("Flow Diagram")),
				flowDiagram(sel.NTA, sel.Direction, top),
			),
		),
		h.H3(g.Text("Borough-to-Borough Flow")),
		heatTable(d.BoroughMatrix(sel.Period), "From \\ To"),
		h.P(h.Class("caption"), g.Text("Total rides between each pair of boroughs.")),
	)
}

func heatSection(d *repository.Dataset, sel selection) g.Node {
	traffic := d.TrafficFrom(sel.NTA, sel.Period, sel.Direction)
	verb, peers := "going to", "destinations from"
	title := "Top Destinations"
	if sel.Direction == flow.Incoming {
		verb, peers = "coming from", "origins to"
		title = "Top Origins"
	}
	view := choropleth(d.GeoJSON(), traffic, sel.NTA)
	note := h.Div(h.Class("info"), g.Textf("🔵 The selected neighborhood (%s) is highlighted with a blue border.", sel.NTA))
	if view == nil {
		note = h.Div(h.Class("info"), g.Textf("No boundary data is loaded, so traffic for %s is listed instead. Raw data: ", sel.NTA),
			h.A(h.Href(trafficURL(sel)), g.Text("/api/traffic")), g.Text("."))
		view = trafficTable(d, traffic)
	}
	return section("heatmap", "Geographic Traffic Heat Map",
		h.P(g.Textf("Showing %s %s (%s). Darker shades indicate higher traffic volume.", peers, sel.NTA, sel.Period.Label())),
		note,
		view,
		h.P(h.Class("caption"), g.Textf("Darker shades indicate more rides %s each neighborhood.", verb)),
		h.H3(g.Text(title+" for "+sel.NTA)),
		barChart(barsFromTotals(d.Top(sel.NTA, sel.Direction, heatTopN, sel.Period))),
	)
}

// trafficTable is the heat map fallback when no boundaries are loaded.
func trafficTable(d *repository.Dataset, traffic []flow.Total) g.Node {
	var hi int64
	for _, t := range traffic {
		hi = max(hi, t.Rides)
	}
	rows := make(g.Group, len(traffic))
	for i, t := range traffic {
		rows[i] = h.Tr(h.Td(g.Text(t.Name)), h.Td(g.Text(d.BoroughOf(t.Name))),
			h.Td(g.Attr("style", heatStyle(t.Rides, hi)), g.Text(humanize.Comma(t.Rides))))
	}
	return h.Div(h.Class("scroll"), h.Table(h.Class("data"),
		h.THead(h.Tr(h.Th(g.Text("NTA")), h.Th(g.Text("Borough")), h.Th(g.Text("Rides")))),
		h.TBody(rows),
	))
}

func trafficURL(sel selection) string {
	q := url.Values{}
	q.Set("nta", sel.NTA)
	q.Set("direction", string(sel.Direction))
	q.Set("period", sel.Period.Value())
	return "/api/traffic?" + q.Encode()
}

func rankingsSection(sel selection, r flow.Ranking) g.Node {
	summary := flow.Summarize(sel.NTA, r)
	rows := make(g.Group, len(r.Rows))
	for i, row := range r.Rows {
		cls := "down"
		if row.PercentChange >= 0 {
			cls = "up"
		}
		rows[i] = h.Tr(g.If(row.NTA == sel.NTA, h.Class("selected")),
			h.Td(g.Text(strconv.Itoa(row.Rank))),
			h.Td(g.Text(row.NTA)),
			h.Td(g.Text(humanize.Comma(row.Earlier))),
			h.Td(g.Text(humanize.Comma(row.Later))),
			h.Td(g.Text(humanize.Comma(row.Change))),
			h.Td(h.Class(cls), g.Text(formatPercent(row.PercentChange))),
		)
	}
	return section("rankings", "Neighborhood Rankings",
		h.P(g.Text("Compare how ride counts have changed between two time periods.")),
		h.P(g.Textf("This table shows the percent change in %s rides for all NTAs between %s and %s.",
			r.Direction, r.Earlier.Format(), r.Later.Format())),
		h.P(h.Strong(g.Text(summary.Text()))),
		h.Div(h.Class("scroll"), h.Table(h.Class("data"),
			h.THead(h.Tr(
				h.Th(g.Text("Rank")), h.Th(g.Text("NTA")),
				h.Th(g.Text(r.Earlier.Format())), h.Th(g.Text(r.Later.Format())),
				h.Th(g.Text("Change")), h.Th(g.Text("% Change")),
			)),
			h.TBody(rows),
		)),
		h.P(h.Class("caption"), g.Text("NTAs with no rides in the earlier period are not ranked.")),
		h.H3(g.Text("Distribution of Changes Across All NTAs")),
		stripPlot(r, sel.NTA),
		h.P(h.Class("caption"), g.Text("Each dot represents an NTA. The highlighted dot (if visible) is your selected neighborhood.")),
	)
}

func overviewSection(d *repository.Dataset, sel selection) g.Node {
	label := "Outgoing Rides"
	if sel.Direction == flow.Incoming {
		label = "Incoming Rides"
	}
	return section("overview", "Neighborhood Overview",
		h.P(g.Textf("%s, %s.", label, sel.Period.Label())),
		h.H3(g.Text("Top Neighborhoods by Ride Volume")),
		barChart(barsFromTotals(d.TopTraffic(sel.Period, sel.Direction, overviewTopN))),
		h.P(h.Class("caption"), g.Textf("The top %d neighborhoods ranked by total ride count.", overviewTopN)),
		h.H3(g.Textf("Flows Between the %d Busiest Origins", matrixTopN)),
		heatTable(d.FlowMatrix(sel.Period, matrixTopN), "From \\ To"),
		h.H3(g.Text("Rides by Borough")),
		barChart(barsFromTotals(d.BoroughTraffic(sel.Period, sel.Direction))),
	)
}

func aboutSection(d *repository.Dataset) g.Node {
	timeRange := d.TimeRangeLabel()
	if timeRange == "" {
		timeRange = "-"
	}
	return section("about", "About This App",
		h.H3(g.Text("Data Source")),
		h.P(g.Text("This app uses bike ride flow data from the "), h.Code(g.Text("daily_flows")),
			g.Text(" directory, which contains daily ride counts between NYC Neighborhood Tabulation Areas (NTAs).")),
		h.H3(g.Text("What are NTAs?")),
		h.P(g.Text("Neighborhood Tabulation Areas (NTAs) are geographic units defined by the NYC Department of City Planning. "+
			"They are designed to be meaningful geographic areas that roughly correspond to neighborhoods.")),
		h.H3(g.Text("Features")),
		h.Ul(
			h.Li(h.Strong(g.Text("📈 Trends")), g.Text(": view time series of ride counts for any neighborhood")),
			h.Li(h.Strong(g.Text("🔀 Flows")), g.Text(": explore where riders go to and come from")),
			h.Li(h.Strong(g.Text("🔍 Rankings")), g.Text(": compare growth rates across neighborhoods")),
			h.Li(h.Strong(g.Text("🗺️ Overview")), g.Text(": see which neighborhoods have the most bike traffic")),
		),
		h.H3(g.Text("How to Use")),
		h.Ol(
			h.Li(h.Strong(g.Text("Select a Borough")), g.Text(" to filter the list of neighborhoods")),
			h.Li(h.Strong(g.Text("Select a Neighborhood (NTA)")), g.Text(" to focus your analysis")),
			h.Li(h.Strong(g.Text("Choose Direction")), g.Text(": outgoing counts rides that start in the neighborhood, incoming counts rides that end there")),
			h.Li(h.Strong(g.Text("Explore the sections")), g.Text(" to see different views")),
		),
		h.H3(g.Text("Technical Details")),
		h.Ul(
			h.Li(g.Text("Data is stored as CSV files with columns: "),
				h.Code(g.Text("started_date, start_NTA, end_NTA, start_Boro, end_Boro, ride_count"))),
			h.Li(g.Text("Geographic boundaries come from "), h.Code(g.Text("NYC_NTAs.csv")),
				g.Text(" with MULTIPOLYGON geometries and are served as GeoJSON at "), h.A(h.Href("/api/geojson"), g.Text("/api/geojson"))),
			h.Li(g.Text("Every chart is also available as JSON; see "), h.A(h.Href("/api-docs"), g.Text("the API reference"))),
		),
		h.H3(g.Text("Data Summary")),
		h.Div(h.Class("cards"),
			metric("Total NTAs", humanize.Comma(int64(len(d.AllNTAs())))),
			metric("Time Range", timeRange),
			metric("Boroughs", strconv.Itoa(len(d.Boroughs()))),
		),
	)
}
