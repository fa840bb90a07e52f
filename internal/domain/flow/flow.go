// Package flow defines the bike ride flow model shared by the loader,
// the repository and the HTTP layer.
package flow

import (
	"fmt"
	"strings"
	"time"
)

// AllBoroughs is the pseudo-borough that disables borough filtering.
const AllBoroughs = "All Boroughs"

// Direction selects which end of a ride an NTA is matched against.
type Direction string

const (
	// Outgoing matches rides that start in the NTA.
	Outgoing Direction = "outgoing"
	// Incoming matches rides that end in the NTA.
	Incoming Direction = "incoming"
)

// ParseDirection parses a direction; the empty string means Outgoing.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", Outgoing:
		return Outgoing, nil
	case Incoming:
		return Incoming, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Label returns the capitalised direction name used in titles.
func (d Direction) Label() string {
	if d == Incoming {
		return "Incoming"
	}
	return "Outgoing"
}

// Describe returns the long form shown in direction pickers.
func (d Direction) Describe() string {
	if d == Incoming {
		return "Incoming (rides ending here)"
	}
	return "Outgoing (rides starting here)"
}

// Record is one row of a daily flow file: the number of rides between two
// NTAs on a single day.
type Record struct {
	Date      time.Time
	StartNTA  string
	EndNTA    string
	StartBoro string
	EndBoro   string
	Rides     int64
	// YearMonth comes from the file name, not from Date.
	YearMonth YearMonth
}

// NTA returns the NTA the record is grouped under for d.
func (r Record) NTA(d Direction) string {
	if d == Incoming {
		return r.EndNTA
	}
	return r.StartNTA
}

// Peer returns the NTA at the other end of the ride for d.
func (r Record) Peer(d Direction) string {
	if d == Incoming {
		return r.StartNTA
	}
	return r.EndNTA
}

// Total is a named ride count.
type Total struct {
	Name  string `json:"name"`
	Rides int64  `json:"rides"`
}

// DailyPoint is the ride count for one day.
type DailyPoint struct {
	Date  time.Time `json:"date"`
	Rides int64     `json:"rides"`
}

// MonthlyPoint is the ride count for one year-month.
type MonthlyPoint struct {
	YearMonth YearMonth `json:"year_month"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Rides     int64     `json:"rides"`
}

// MonthlyTotal is an NTA's ride count in one year-month.
type MonthlyTotal struct {
	NTA       string    `json:"nta"`
	YearMonth YearMonth `json:"year_month"`
	Rides     int64     `json:"rides"`
}

// Matrix is a dense origin x destination count table.
type Matrix struct {
	Rows   []string  `json:"rows"`
	Cols   []string  `json:"cols"`
	Values [][]int64 `json:"values"`
}

// Max returns the largest cell value.
func (m Matrix) Max() int64 {
	var hi int64
	for _, row := range m.Values {
		for _, v := range row {
			if v > hi {
				hi = v
			}
		}
	}
	return hi
}

// DefaultNTAIndex returns the preselected NTA index for a borough. Every
// borough currently defaults to its first NTA alphabetically.
func DefaultNTAIndex(_ string) int {
	return 0
}
