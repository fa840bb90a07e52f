package flow

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseDirection(t *testing.T) {
	Convey("Given direction strings", t, func() {
		Convey("Then known values parse", func() {
			d, err := ParseDirection("incoming")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, Incoming)

			d, err = ParseDirection(" OUTGOING ")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, Outgoing)
		})

		Convey("And the empty string defaults to outgoing", func() {
			d, err := ParseDirection("")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, Outgoing)
		})

		Convey("And unknown values fail", func() {
			_, err := ParseDirection("sideways")
			So(errors.Is(err, ErrInvalidDirection), ShouldBeTrue)
		})
	})
}

func TestRecordDirection(t *testing.T) {
	Convey("Given a record", t, func() {
		r := Record{StartNTA: "A", EndNTA: "B"}

		Convey("Then outgoing groups by the start NTA", func() {
			So(r.NTA(Outgoing), ShouldEqual, "A")
			So(r.Peer(Outgoing), ShouldEqual, "B")
		})

		Convey("And incoming groups by the end NTA", func() {
			So(r.NTA(Incoming), ShouldEqual, "B")
			So(r.Peer(Incoming), ShouldEqual, "A")
		})
	})
}

func TestYearMonth(t *testing.T) {
	Convey("Given year-month values", t, func() {
		Convey("Then valid values parse and format", func() {
			ym, err := ParseYearMonth("202301")
			So(err, ShouldBeNil)
			So(ym.Year(), ShouldEqual, 2023)
			So(ym.Month(), ShouldEqual, 1)
			So(ym.Format(), ShouldEqual, "Jan 2023")
			So(YearMonth("202412").Format(), ShouldEqual, "Dec 2024")
		})

		Convey("And invalid values fail", func() {
			for _, s := range []string{"", "2023", "202313", "202300", "abcdef", "2023-01", "2023+1", "+20201", "-20201", " 2023 1"} {
				_, err := ParseYearMonth(s)
				So(errors.Is(err, ErrInvalidYearMonth), ShouldBeTrue)
			}
		})

		Convey("And the previous year keeps the month", func() {
			So(YearMonth("202503").PreviousYear(), ShouldEqual, YearMonth("202403"))
		})
	})
}

func TestComparisonPeriods(t *testing.T) {
	Convey("Given available months", t, func() {
		Convey("When the same month a year earlier exists", func() {
			a, b, err := ComparisonPeriods([]YearMonth{"202403", "202301", "202303", "202402"})

			Convey("Then it is compared year over year", func() {
				So(err, ShouldBeNil)
				So(a, ShouldEqual, YearMonth("202303"))
				So(b, ShouldEqual, YearMonth("202403"))
			})
		})

		Convey("When it does not", func() {
			a, b, err := ComparisonPeriods([]YearMonth{"202402", "202401", "202403"})

			Convey("Then the last two months are used", func() {
				So(err, ShouldBeNil)
				So(a, ShouldEqual, YearMonth("202402"))
				So(b, ShouldEqual, YearMonth("202403"))
			})
		})

		Convey("When there is a single month", func() {
			a, b, err := ComparisonPeriods([]YearMonth{"202401"})

			Convey("Then both sides are that month", func() {
				So(err, ShouldBeNil)
				So(a, ShouldEqual, b)
			})
		})

		Convey("When there are none", func() {
			_, _, err := ComparisonPeriods(nil)

			Convey("Then ErrNoData is returned", func() {
				So(err, ShouldEqual, ErrNoData)
			})
		})
	})
}

func TestPeriod(t *testing.T) {
	Convey("Given period strings", t, func() {
		Convey("Then all-time aliases parse to AllTime", func() {
			for _, s := range []string{"", "all", "All Time"} {
				p, err := ParsePeriod(s)
				So(err, ShouldBeNil)
				So(p.IsAllTime(), ShouldBeTrue)
				So(p.Label(), ShouldEqual, "All Time")
			}
		})

		Convey("And a month parses to a filter", func() {
			p, err := ParsePeriod("202305")
			So(err, ShouldBeNil)
			So(p.Contains("202305"), ShouldBeTrue)
			So(p.Contains("202306"), ShouldBeFalse)
			So(p.Label(), ShouldEqual, "May 2023")
			So(p.Value(), ShouldEqual, "202305")
		})

		Convey("And AllTime contains every month", func() {
			So(AllTime.Contains("199901"), ShouldBeTrue)
		})
	})
}

func TestRankingSummary(t *testing.T) {
	Convey("Given a ranking", t, func() {
		r := Ranking{Direction: Outgoing}
		for i, name := range []string{"A", "B", "C", "D", "E"} {
			r.Rows = append(r.Rows, RankingRow{Rank: i + 1, NTA: name})
		}

		Convey("When summarising a ranked NTA", func() {
			s := Summarize("B", r)

			Convey("Then rank and percentile are reported", func() {
				So(s.Found, ShouldBeTrue)
				So(s.Rank, ShouldEqual, 2)
				So(s.Total, ShouldEqual, 5)
				So(s.Percentile, ShouldEqual, 25)
				So(s.Text(), ShouldEqual, "B ranks 2 of 5 NTAs for outgoing ride growth (the 25th percentile).")
			})
		})

		Convey("When summarising an unknown NTA", func() {
			s := Summarize("Z", r)

			Convey("Then the sentence says so", func() {
				So(s.Found, ShouldBeFalse)
				So(s.Text(), ShouldEqual, "Z does not have a ranking for this comparison.")
			})
		})

		Convey("When there is only one NTA", func() {
			s := Summarize("A", Ranking{Rows: []RankingRow{{Rank: 1, NTA: "A"}}})

			Convey("Then the percentile is zero", func() {
				So(s.Percentile, ShouldEqual, 0)
			})
		})
	})
}

func TestOrdinalSuffix(t *testing.T) {
	Convey("Given numbers", t, func() {
		cases := map[int]string{0: "th", 1: "st", 2: "nd", 3: "rd", 4: "th", 11: "th", 12: "th", 13: "th", 21: "st", 22: "nd", 23: "rd", 100: "th"}
		for n, want := range cases {
			So(OrdinalSuffix(n), ShouldEqual, want)
		}
	})
}

func TestPercentChange(t *testing.T) {
	Convey("Given two totals", t, func() {
		pct, ok := PercentChange(200, 250)
		So(ok, ShouldBeTrue)
		So(pct, ShouldEqual, 25.0)

		pct, ok = PercentChange(3, 2)
		So(ok, ShouldBeTrue)
		So(pct, ShouldEqual, -33.3)

		_, ok = PercentChange(0, 10)
		So(ok, ShouldBeFalse)
	})
}
