// Package repository holds the in-memory flow dataset and the queries the
// dashboard runs against it.
package repository

import (
	"sort"
	"time"

	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/okian/bikeflow/internal/domain/geo"
	"github.com/paulmach/orb/geojson"
)

// Dataset is an immutable, indexed view of all loaded flow records. It is
// safe for concurrent reads; reloads build a new Dataset.
type Dataset struct {
	records []flow.Record

	// record indexes by start and end NTA
	byStart map[string][]int
	byEnd   map[string][]int

	boroughs     []string
	ntasByBoro   map[string][]string
	startNTAs    []string
	allNTAs      []string
	yearMonths   []flow.YearMonth
	years        []int
	minDate      time.Time
	maxDate      time.Time
	totalRides   int64
	sourceFiles  int
	loadedAt     time.Time
	areas        []geo.Area
	featureCache *geojson.FeatureCollection
}

// Info summarises a dataset for stats and the About tab.
type Info struct {
	Records    int       `json:"records"`
	Files      int       `json:"files"`
	TotalRides int64     `json:"total_rides"`
	NTAs       int       `json:"ntas"`
	Boroughs   int       `json:"boroughs"`
	Months     int       `json:"months"`
	Areas      int       `json:"areas"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// NewDataset indexes records and areas. sourceFiles is informational.
func NewDataset(records []flow.Record, areas []geo.Area, sourceFiles int) *Dataset {
	d := &Dataset{
		records:     records,
		byStart:     make(map[string][]int),
		byEnd:       make(map[string][]int),
		ntasByBoro:  make(map[string][]string),
		sourceFiles: sourceFiles,
		loadedAt:    time.Now(),
		areas:       areas,
	}

	boroSet := make(map[string]struct{})
	boroNTAs := make(map[string]map[string]struct{})
	allSet := make(map[string]struct{})
	ymSet := make(map[flow.YearMonth]struct{})
	yearSet := make(map[int]struct{})

	for i, r := range records {
		d.byStart[r.StartNTA] = append(d.byStart[r.StartNTA], i)
		d.byEnd[r.EndNTA] = append(d.byEnd[r.EndNTA], i)

		boroSet[r.StartBoro] = struct{}{}
		if boroNTAs[r.StartBoro] == nil {
			boroNTAs[r.StartBoro] = make(map[string]struct{})
		}
		boroNTAs[r.StartBoro][r.StartNTA] = struct{}{}
		allSet[r.StartNTA] = struct{}{}
		allSet[r.EndNTA] = struct{}{}
		ymSet[r.YearMonth] = struct{}{}
		yearSet[r.YearMonth.Year()] = struct{}{}

		if d.minDate.IsZero() || r.Date.Before(d.minDate) {
			d.minDate = r.Date
		}
		if r.Date.After(d.maxDate) {
			d.maxDate = r.Date
		}
		d.totalRides += r.Rides
	}

	d.boroughs = sortedKeys(boroSet)
	for boro, set := range boroNTAs {
		d.ntasByBoro[boro] = sortedKeys(set)
	}
	d.startNTAs = sortedKeys(indexKeys(d.byStart))
	d.allNTAs = sortedKeys(allSet)
	for ym := range ymSet {
		d.yearMonths = append(d.yearMonths, ym)
	}
	flow.SortYearMonths(d.yearMonths)
	for y := range yearSet {
		d.years = append(d.years, y)
	}
	sort.Ints(d.years)

	d.featureCache = geo.FeatureCollection(areas)
	return d
}

// Empty reports whether the dataset has no records.
func (d *Dataset) Empty() bool { return d == nil || len(d.records) == 0 }

// Info returns summary counts.
func (d *Dataset) Info() Info {
	return Info{
		Records:    len(d.records),
		Files:      d.sourceFiles,
		TotalRides: d.totalRides,
		NTAs:       len(d.allNTAs),
		Boroughs:   len(d.boroughs),
		Months:     len(d.yearMonths),
		Areas:      len(d.featureCache.Features),
		From:       d.minDate,
		To:         d.maxDate,
		LoadedAt:   d.loadedAt,
	}
}

func indexKeys(m map[string][]int) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// sortTotals orders by rides descending, then name ascending.
func sortTotals(ts []flow.Total) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Rides != ts[j].Rides {
			return ts[i].Rides > ts[j].Rides
		}
		return ts[i].Name < ts[j].Name
	})
}

func totalsFromMap(m map[string]int64) []flow.Total {
	out := make([]flow.Total, 0, len(m))
	for name, rides := range m {
		out = append(out, flow.Total{Name: name, Rides: rides})
	}
	sortTotals(out)
	return out
}
