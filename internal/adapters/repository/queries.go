package repository

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/paulmach/orb/geojson"
)

// Boroughs returns the sorted origin boroughs.
func (d *Dataset) Boroughs() []string { return d.boroughs }

// NTAs returns origin NTAs, limited to borough unless it is empty or
// flow.AllBoroughs.
func (d *Dataset) NTAs(borough string) []string {
	if borough == "" || borough == flow.AllBoroughs {
		return d.startNTAs
	}
	return d.ntasByBoro[borough]
}

// AllNTAs returns every NTA seen at either end of a ride.
func (d *Dataset) AllNTAs() []string { return d.allNTAs }

// HasNTA reports whether nta appears at either end of any ride.
func (d *Dataset) HasNTA(nta string) bool {
	_, start := d.byStart[nta]
	_, end := d.byEnd[nta]
	return start || end
}

// DateRange returns the first and last ride dates.
func (d *Dataset) DateRange() (time.Time, time.Time) { return d.minDate, d.maxDate }

// YearMonths returns the loaded months, oldest first.
func (d *Dataset) YearMonths() []flow.YearMonth { return d.yearMonths }

// Years returns the loaded years, ascending.
func (d *Dataset) Years() []int { return d.years }

// GeoJSON returns the NTA boundaries.
func (d *Dataset) GeoJSON() *geojson.FeatureCollection { return d.featureCache }

// BoroughOf returns the borough an NTA was seen departing from.
func (d *Dataset) BoroughOf(nta string) string {
	if idx := d.byStart[nta]; len(idx) > 0 {
		return d.records[idx[0]].StartBoro
	}
	if idx := d.byEnd[nta]; len(idx) > 0 {
		return d.records[idx[0]].EndBoro
	}
	return ""
}

func (d *Dataset) index(nta string, dir flow.Direction) []int {
	if dir == flow.Incoming {
		return d.byEnd[nta]
	}
	return d.byStart[nta]
}

// DailySeries returns rides per day for nta, ordered by date.
func (d *Dataset) DailySeries(nta string, dir flow.Direction) []flow.DailyPoint {
	sums := make(map[time.Time]int64)
	for _, i := range d.index(nta, dir) {
		sums[d.records[i].Date] += d.records[i].Rides
	}
	out := make([]flow.DailyPoint, 0, len(sums))
	for day, rides := range sums {
		out = append(out, flow.DailyPoint{Date: day, Rides: rides})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// MonthlySeries returns rides per month for nta, oldest first.
func (d *Dataset) MonthlySeries(nta string, dir flow.Direction) []flow.MonthlyPoint {
	sums := make(map[flow.YearMonth]int64)
	for _, i := range d.index(nta, dir) {
		sums[d.records[i].YearMonth] += d.records[i].Rides
	}
	out := make([]flow.MonthlyPoint, 0, len(sums))
	for ym, rides := range sums {
		out = append(out, flow.MonthlyPoint{YearMonth: ym, Year: ym.Year(), Month: ym.Month(), Rides: rides})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YearMonth < out[j].YearMonth })
	return out
}

// TopDestinations returns where rides starting in nta went, busiest first.
func (d *Dataset) TopDestinations(nta string, n int, p flow.Period) []flow.Total {
	return limit(d.TrafficFrom(nta, p, flow.Outgoing), n)
}

// TopOrigins returns where rides ending in nta came from, busiest first.
func (d *Dataset) TopOrigins(nta string, n int, p flow.Period) []flow.Total {
	return limit(d.TrafficFrom(nta, p, flow.Incoming), n)
}

// Top returns TopDestinations or TopOrigins depending on dir.
func (d *Dataset) Top(nta string, dir flow.Direction, n int, p flow.Period) []flow.Total {
	if dir == flow.Incoming {
		return d.TopOrigins(nta, n, p)
	}
	return d.TopDestinations(nta, n, p)
}

// TrafficFrom returns ride totals between nta and every NTA it connects to.
// Outgoing counts rides from nta, incoming counts rides into it.
func (d *Dataset) TrafficFrom(nta string, p flow.Period, dir flow.Direction) []flow.Total {
	sums := make(map[string]int64)
	for _, i := range d.index(nta, dir) {
		r := d.records[i]
		if p.Contains(r.YearMonth) {
			sums[r.Peer(dir)] += r.Rides
		}
	}
	return totalsFromMap(sums)
}

// Traffic returns ride totals for every NTA, busiest first.
func (d *Dataset) Traffic(p flow.Period, dir flow.Direction) []flow.Total {
	sums := make(map[string]int64)
	for _, r := range d.records {
		if p.Contains(r.YearMonth) {
			sums[r.NTA(dir)] += r.Rides
		}
	}
	return totalsFromMap(sums)
}

// TopTraffic returns the n busiest NTAs.
func (d *Dataset) TopTraffic(p flow.Period, dir flow.Direction, n int) []flow.Total {
	return limit(d.Traffic(p, dir), n)
}

// BoroughTraffic returns ride totals per borough.
func (d *Dataset) BoroughTraffic(p flow.Period, dir flow.Direction) []flow.Total {
	sums := make(map[string]int64)
	for _, r := range d.records {
		if !p.Contains(r.YearMonth) {
			continue
		}
		boro := r.StartBoro
		if dir == flow.Incoming {
			boro = r.EndBoro
		}
		sums[boro] += r.Rides
	}
	return totalsFromMap(sums)
}

// TotalsByMonth returns rides per NTA per month, ordered by NTA then month.
func (d *Dataset) TotalsByMonth(dir flow.Direction) []flow.MonthlyTotal {
	type key struct {
		nta string
		ym  flow.YearMonth
	}
	sums := make(map[key]int64)
	for _, r := range d.records {
		sums[key{r.NTA(dir), r.YearMonth}] += r.Rides
	}
	out := make([]flow.MonthlyTotal, 0, len(sums))
	for k, rides := range sums {
		out = append(out, flow.MonthlyTotal{NTA: k.nta, YearMonth: k.ym, Rides: rides})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NTA != out[j].NTA {
			return out[i].NTA < out[j].NTA
		}
		return out[i].YearMonth < out[j].YearMonth
	})
	return out
}

// Ranking compares per-NTA totals between two months. NTAs missing from a
// month count as zero there; NTAs with no rides in the earlier month have no
// defined growth and are left out. Rows are ordered by percent change
// descending and ranked from 1.
func (d *Dataset) Ranking(earlier, later flow.YearMonth, dir flow.Direction) flow.Ranking {
	before := make(map[string]int64)
	after := make(map[string]int64)
	for _, r := range d.records {
		if r.YearMonth == earlier {
			before[r.NTA(dir)] += r.Rides
		}
		if r.YearMonth == later {
			after[r.NTA(dir)] += r.Rides
		}
	}

	rows := make([]flow.RankingRow, 0, len(before))
	for nta, b := range before {
		a := after[nta]
		pct, ok := flow.PercentChange(b, a)
		if !ok {
			continue
		}
		rows = append(rows, flow.RankingRow{
			NTA:           nta,
			Earlier:       b,
			Later:         a,
			Change:        a - b,
			PercentChange: pct,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PercentChange != rows[j].PercentChange {
			return rows[i].PercentChange > rows[j].PercentChange
		}
		return rows[i].NTA < rows[j].NTA
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return flow.Ranking{Earlier: earlier, Later: later, Direction: dir, Rows: rows}
}

// Compare ranks two months of this snapshot. Empty months default to
// flow.ComparisonPeriods over the loaded months.
func (d *Dataset) Compare(earlier, later flow.YearMonth, dir flow.Direction) (flow.Ranking, error) {
	if d.Empty() {
		return flow.Ranking{}, flow.ErrNoData
	}
	if earlier == "" || later == "" {
		e, l, err := flow.ComparisonPeriods(d.YearMonths())
		if err != nil {
			return flow.Ranking{}, err
		}
		if earlier == "" {
			earlier = e
		}
		if later == "" {
			later = l
		}
	}
	return d.Ranking(earlier, later, dir), nil
}

// BoroughMatrix returns origin x destination borough totals.
func (d *Dataset) BoroughMatrix(p flow.Period) flow.Matrix {
	rowSet := make(map[string]struct{})
	colSet := make(map[string]struct{})
	cells := make(map[[2]string]int64)
	for _, r := range d.records {
		if !p.Contains(r.YearMonth) {
			continue
		}
		rowSet[r.StartBoro] = struct{}{}
		colSet[r.EndBoro] = struct{}{}
		cells[[2]string{r.StartBoro, r.EndBoro}] += r.Rides
	}
	return buildMatrix(sortedKeys(rowSet), sortedKeys(colSet), cells)
}

// FlowMatrix returns NTA x NTA totals restricted to the topN NTAs by
// outgoing rides, in that order on both axes.
func (d *Dataset) FlowMatrix(p flow.Period, topN int) flow.Matrix {
	top := limit(d.Traffic(p, flow.Outgoing), topN)
	names := make([]string, len(top))
	keep := make(map[string]struct{}, len(top))
	for i, t := range top {
		names[i] = t.Name
		keep[t.Name] = struct{}{}
	}
	cells := make(map[[2]string]int64)
	for _, r := range d.records {
		if !p.Contains(r.YearMonth) {
			continue
		}
		if _, ok := keep[r.StartNTA]; !ok {
			continue
		}
		if _, ok := keep[r.EndNTA]; !ok {
			continue
		}
		cells[[2]string{r.StartNTA, r.EndNTA}] += r.Rides
	}
	return buildMatrix(names, names, cells)
}

// SearchNTAs returns NTAs whose name contains q, case-insensitively.
func (d *Dataset) SearchNTAs(q string) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return d.allNTAs
	}
	var out []string
	for _, n := range d.allNTAs {
		if strings.Contains(strings.ToLower(n), q) {
			out = append(out, n)
		}
	}
	return out
}

func buildMatrix(rows, cols []string, cells map[[2]string]int64) flow.Matrix {
	m := flow.Matrix{Rows: rows, Cols: cols, Values: make([][]int64, len(rows))}
	for i, row := range rows {
		m.Values[i] = make([]int64, len(cols))
		for j, col := range cols {
			m.Values[i][j] = cells[[2]string{row, col}]
		}
	}
	return m
}

func limit(ts []flow.Total, n int) []flow.Total {
	if n >= 0 && len(ts) > n {
		return ts[:n]
	}
	return ts
}

// TimeRangeLabel renders DateRange as "Jan 2023 - Dec 2025", or "" when empty.
func (d *Dataset) TimeRangeLabel() string {
	if d.Empty() {
		return ""
	}
	return d.minDate.Format("Jan 2006") + " - " + d.maxDate.Format("Jan 2006")
}
