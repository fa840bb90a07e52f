package flow

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// YearMonth is a calendar month written as YYYYMM, e.g. "202301".
type YearMonth string

// ParseYearMonth validates s as a YYYYMM value.
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	if len(s) != 6 || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	month, err := strconv.Atoi(s[4:])
	if err != nil || month < 1 || month > 12 || year < 1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	return YearMonth(s), nil
}

// YearMonthOf returns the YearMonth containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth(t.Format("200601"))
}

// Year returns the four digit year.
func (ym YearMonth) Year() int {
	y, _ := strconv.Atoi(string(ym[:4]))
	return y
}

// Month returns the month number, 1-12.
func (ym YearMonth) Month() int {
	m, _ := strconv.Atoi(string(ym[4:]))
	return m
}

// Time returns the first instant of the month in UTC.
func (ym YearMonth) Time() time.Time {
	return time.Date(ym.Year(), time.Month(ym.Month()), 1, 0, 0, 0, 0, time.UTC)
}

// Format renders the month as "Jan 2023".
func (ym YearMonth) Format() string {
	return ym.Time().Format("Jan 2006")
}

// PreviousYear returns the same month one year earlier.
func (ym YearMonth) PreviousYear() YearMonth {
	return YearMonth(fmt.Sprintf("%04d%02d", ym.Year()-1, ym.Month()))
}

// SortYearMonths sorts in place, oldest first.
func SortYearMonths(yms []YearMonth) {
	sort.Slice(yms, func(i, j int) bool { return yms[i] < yms[j] })
}

// ComparisonPeriods picks the default (earlier, later) months for the
// ranking view: the latest month against the same month a year before when
// available, otherwise the last two months. With a single month both values
// are that month.
func ComparisonPeriods(yms []YearMonth) (YearMonth, YearMonth, error) {
	if len(yms) == 0 {
		return "", "", ErrNoData
	}
	sorted := append([]YearMonth(nil), yms...)
	SortYearMonths(sorted)
	if len(sorted) < 2 {
		return sorted[0], sorted[0], nil
	}

	latest := sorted[len(sorted)-1]
	prev := latest.PreviousYear()
	idx := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= prev })
	if idx < len(sorted) && sorted[idx] == prev {
		return prev, latest, nil
	}
	return sorted[len(sorted)-2], latest, nil
}

// Period filters records to one month, or to all of them when zero.
type Period struct {
	YearMonth YearMonth
}

// AllTime is the unfiltered period.
var AllTime = Period{}

// ParsePeriod accepts "", "all" and "All Time" for AllTime, otherwise YYYYMM.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "all time":
		return AllTime, nil
	}
	ym, err := ParseYearMonth(s)
	if err != nil {
		return Period{}, err
	}
	return Period{YearMonth: ym}, nil
}

// IsAllTime reports whether p is unfiltered.
func (p Period) IsAllTime() bool { return p.YearMonth == "" }

// Contains reports whether a record from ym falls inside p.
func (p Period) Contains(ym YearMonth) bool {
	return p.IsAllTime() || p.YearMonth == ym
}

// Label is the human form, "All Time" or "Jan 2023".
func (p Period) Label() string {
	if p.IsAllTime() {
		return "All Time"
	}
	return p.YearMonth.Format()
}

// Value is the query-string form of p.
func (p Period) Value() string {
	if p.IsAllTime() {
		return "all"
	}
	return string(p.YearMonth)
}
