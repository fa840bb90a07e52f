package site

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/okian/bikeflow/internal/domain/flow"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// bar is one labelled value of a bar chart.
type bar struct {
	Label string
	Value int64
}

func barsFromTotals(ts []flow.Total) []bar {
	out := make([]bar, len(ts))
	for i, t := range ts {
		out[i] = bar{Label: t.Name, Value: t.Rides}
	}
	return out
}

func barsFromMonthly(ps []flow.MonthlyPoint) []bar {
	out := make([]bar, len(ps))
	for i, p := range ps {
		out[i] = bar{Label: p.YearMonth.Format(), Value: p.Rides}
	}
	return out
}

// barChart draws horizontal bars scaled to the largest value.
func barChart(bars []bar) g.Node {
	if len(bars) == 0 {
		return h.P(h.Class("caption"), g.Text("No rides for this selection."))
	}
	var hi int64
	for _, b := range bars {
		hi = max(hi, b.Value)
	}
	rows := make(g.Group, 0, len(bars)*3)
	for _, b := range bars {
		rows = append(rows,
			h.Span(g.Text(b.Label)),
			h.Div(h.Class("track"),
				h.Div(h.Class("fill"), g.Attr("style", "width:"+percentOf(b.Value, hi)+"%")),
			),
			h.Span(h.Class("num"), g.Text(humanize.Comma(b.Value))),
		)
	}
	return h.Div(h.Class("bars"), rows)
}

// percentOf returns v/hi as a CSS percentage with one decimal.
func percentOf(v, hi int64) string {
	if hi <= 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(v)/float64(hi)*100, 'f', 1, 64)
}

// heatTable renders a matrix with cell shading proportional to its value.
func heatTable(m flow.Matrix, corner string) g.Node {
	if len(m.Rows) == 0 {
		return h.P(h.Class("caption"), g.Text("No rides for this selection."))
	}
	hi := m.Max()
	head := h.Tr(h.Th(g.Text(corner)), g.Map(m.Cols, func(c string) g.Node { return h.Th(g.Text(c)) }))
	body := make(g.Group, len(m.Rows))
	for i, row := range m.Rows {
		cells := make(g.Group, len(m.Cols))
		for j, v := range m.Values[i] {
			cells[j] = h.Td(g.Attr("style", heatStyle(v, hi)), g.Text(humanize.Comma(v)))
		}
		body[i] = h.Tr(h.Th(g.Text(row)), cells)
	}
	return h.Div(h.Class("scroll"), h.Table(h.Class("data"), h.THead(head), h.TBody(body)))
}

func heatStyle(v, hi int64) string {
	return "background:color-mix(in srgb, var(--primary) " + percentOf(v, hi) + "%, transparent)"
}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// yearOverYear lays monthly points out as month rows by year columns.
func yearOverYear(ps []flow.MonthlyPoint) g.Node {
	if len(ps) == 0 {
		return h.P(h.Class("caption"), g.Text("No rides for this selection."))
	}
	var years []int
	cells := make(map[[2]int]int64)
	for _, p := range ps {
		if len(years) == 0 || years[len(years)-1] != p.Year {
			years = append(years, p.Year)
		}
		cells[[2]int{p.Year, p.Month}] = p.Rides
	}
	head := h.Tr(h.Th(g.Text("Month")), g.Map(years, func(y int) g.Node { return h.Th(g.Text(strconv.Itoa(y))) }))
	rows := make(g.Group, 0, len(monthNames))
	for m, name := range monthNames {
		tds := g.Group{h.Td(g.Text(name))}
		for _, y := range years {
			v, ok := cells[[2]int{y, m + 1}]
			text := "-"
			if ok {
				text = humanize.Comma(v)
			}
			tds = append(tds, h.Td(g.Text(text)))
		}
		rows = append(rows, h.Tr(tds))
	}
	return h.Table(h.Class("data"), h.THead(head), h.TBody(rows))
}

func metric(label, value string) g.Node {
	return h.Div(h.Class("card metric"),
		h.Div(h.Class("label"), g.Text(label)),
		h.Div(h.Class("value"), g.Text(value)),
	)
}

func formatPercent(p float64) string { return fmt.Sprintf("%+.1f%%", p) }
