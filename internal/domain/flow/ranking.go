package flow

import (
	"fmt"
	"math"
)

// RankingRow compares one NTA's ride totals across two months.
type RankingRow struct {
	Rank          int     `json:"rank"`
	NTA           string  `json:"nta"`
	Earlier       int64   `json:"earlier"`
	Later         int64   `json:"later"`
	Change        int64   `json:"change"`
	PercentChange float64 `json:"percent_change"`
}

// Ranking orders NTAs by percent change between Earlier and Later.
type Ranking struct {
	Earlier   YearMonth    `json:"earlier"`
	Later     YearMonth    `json:"later"`
	Direction Direction    `json:"direction"`
	Rows      []RankingRow `json:"rows"`
}

// Find returns the row for nta.
func (r Ranking) Find(nta string) (RankingRow, bool) {
	for _, row := range r.Rows {
		if row.NTA == nta {
			return row, true
		}
	}
	return RankingRow{}, false
}

// PercentChange returns (later-earlier)/earlier*100 rounded to one decimal.
// ok is false when earlier is zero.
func PercentChange(earlier, later int64) (float64, bool) {
	if earlier == 0 {
		return 0, false
	}
	pct := float64(later-earlier) / float64(earlier) * 100
	return math.RoundToEven(pct*10) / 10, true
}

// RankingSummary locates one NTA inside a Ranking.
type RankingSummary struct {
	NTA        string    `json:"nta"`
	Direction  Direction `json:"direction"`
	Found      bool      `json:"found"`
	Rank       int       `json:"rank,omitempty"`
	Total      int       `json:"total,omitempty"`
	Percentile int       `json:"percentile,omitempty"`
}

// Summarize builds the RankingSummary for nta.
func Summarize(nta string, r Ranking) RankingSummary {
	s := RankingSummary{NTA: nta, Direction: r.Direction}
	row, ok := r.Find(nta)
	if !ok {
		return s
	}
	s.Found = true
	s.Rank = row.Rank
	s.Total = len(r.Rows)
	if s.Total > 1 {
		s.Percentile = int(math.RoundToEven(float64(s.Rank-1) / float64(s.Total-1) * 100))
	}
	return s
}

// Text renders the summary as a plain sentence.
func (s RankingSummary) Text() string {
	if !s.Found {
		return fmt.Sprintf("%s does not have a ranking for this comparison.", s.NTA)
	}
	return fmt.Sprintf("%s ranks %d of %d NTAs for %s ride growth (the %d%s percentile).",
		s.NTA, s.Rank, s.Total, s.Direction, s.Percentile, OrdinalSuffix(s.Percentile))
}

// OrdinalSuffix returns "st", "nd", "rd" or "th" for n.
func OrdinalSuffix(n int) string {
	if mod := n % 100; mod >= 11 && mod <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
