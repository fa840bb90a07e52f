package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/okian/bikeflow/internal/domain/geo"
	. "github.com/smartystreets/goconvey/convey"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rec(date, from, to, fromBoro, toBoro string, rides int64) flow.Record {
	d := day(date)
	return flow.Record{
		Date:      d,
		StartNTA:  from,
		EndNTA:    to,
		StartBoro: fromBoro,
		EndBoro:   toBoro,
		Rides:     rides,
		YearMonth: flow.YearMonthOf(d),
	}
}

func fixture() *Dataset {
	records := []flow.Record{
		rec("2023-01-01", "Astoria", "Midtown", "Queens", "Manhattan", 10),
		rec("2023-01-02", "Astoria", "Midtown", "Queens", "Manhattan", 5),
		rec("2023-01-02", "Astoria", "Harlem", "Queens", "Manhattan", 3),
		rec("2023-01-05", "Midtown", "Astoria", "Manhattan", "Queens", 8),
		rec("2023-01-05", "Harlem", "Midtown", "Manhattan", "Manhattan", 4),
		rec("2024-01-03", "Astoria", "Midtown", "Queens", "Manhattan", 30),
		rec("2024-01-03", "Midtown", "Astoria", "Manhattan", "Queens", 4),
		rec("2024-01-04", "Harlem", "Midtown", "Manhattan", "Manhattan", 4),
		rec("2024-01-04", "Greenpoint", "Midtown", "Brooklyn", "Manhattan", 9),
	}
	areas := []geo.Area{
		{Name: "Astoria", Borough: "Queens", Code: "QN0101", WKT: "MULTIPOLYGON (((0 0, 1 0, 1 1, 0 0)))"},
	}
	return NewDataset(records, areas, 2)
}

func TestDatasetIndexes(t *testing.T) {
	Convey("Given a dataset", t, func() {
		d := fixture()

		Convey("Then boroughs are the sorted origin boroughs", func() {
			So(d.Boroughs(), ShouldResemble, []string{"Brooklyn", "Manhattan", "Queens"})
		})

		Convey("And NTAs can be filtered by borough", func() {
			So(d.NTAs(""), ShouldResemble, []string{"Astoria", "Greenpoint", "Harlem", "Midtown"})
			So(d.NTAs(flow.AllBoroughs), ShouldResemble, []string{"Astoria", "Greenpoint", "Harlem", "Midtown"})
			So(d.NTAs("Manhattan"), ShouldResemble, []string{"Harlem", "Midtown"})
			So(d.NTAs("Staten Island"), ShouldBeEmpty)
		})

		Convey("And months, years and dates are collected", func() {
			So(d.YearMonths(), ShouldResemble, []flow.YearMonth{"202301", "202401"})
			So(d.Years(), ShouldResemble, []int{2023, 2024})
			from, to := d.DateRange()
			So(from, ShouldEqual, day("2023-01-01"))
			So(to, ShouldEqual, day("2024-01-04"))
		})

		Convey("And info summarises the load", func() {
			info := d.Info()
			So(info.Records, ShouldEqual, 9)
			So(info.Files, ShouldEqual, 2)
			So(info.TotalRides, ShouldEqual, 77)
			So(info.NTAs, ShouldEqual, 4)
			So(info.Areas, ShouldEqual, 1)
		})

		Convey("And lookups know every NTA", func() {
			So(d.HasNTA("Midtown"), ShouldBeTrue)
			So(d.HasNTA("Nowhere"), ShouldBeFalse)
			So(d.BoroughOf("Greenpoint"), ShouldEqual, "Brooklyn")
			So(d.SearchNTAs("TOW"), ShouldResemble, []string{"Midtown"})
		})
	})
}

func TestDatasetSeries(t *testing.T) {
	Convey("Given a dataset", t, func() {
		d := fixture()

		Convey("When asking for the monthly series", func() {
			out := d.MonthlySeries("Astoria", flow.Outgoing)
			in := d.MonthlySeries("Astoria", flow.Incoming)

			Convey("Then rides are summed per month", func() {
				So(len(out), ShouldEqual, 2)
				So(out[0].Rides, ShouldEqual, 18)
				So(out[0].Year, ShouldEqual, 2023)
				So(out[0].Month, ShouldEqual, 1)
				So(out[1].Rides, ShouldEqual, 30)
				So(in[0].Rides, ShouldEqual, 8)
				So(in[1].Rides, ShouldEqual, 4)
			})
		})

		Convey("When asking for the daily series", func() {
			pts := d.DailySeries("Astoria", flow.Outgoing)

			Convey("Then days are ordered and summed", func() {
				So(len(pts), ShouldEqual, 3)
				So(pts[1].Date, ShouldEqual, day("2023-01-02"))
				So(pts[1].Rides, ShouldEqual, 8)
			})
		})

		Convey("When the NTA is unknown", func() {
			So(d.MonthlySeries("Nowhere", flow.Outgoing), ShouldBeEmpty)
		})
	})
}

func TestDatasetTop(t *testing.T) {
	Convey("Given a dataset", t, func() {
		d := fixture()

		Convey("Then destinations are ranked by rides", func() {
			top := d.TopDestinations("Astoria", 10, flow.AllTime)
			So(top, ShouldResemble, []flow.Total{{Name: "Midtown", Rides: 45}, {Name: "Harlem", Rides: 3}})
		})

		Convey("And the period filter applies", func() {
			top := d.TopDestinations("Astoria", 10, flow.Period{YearMonth: "202301"})
			So(top[0], ShouldResemble, flow.Total{Name: "Midtown", Rides: 15})
		})

		Convey("And n limits the result", func() {
			So(len(d.TopDestinations("Astoria", 1, flow.AllTime)), ShouldEqual, 1)
		})

		Convey("And origins break ties by name", func() {
			top := d.TopOrigins("Midtown", 10, flow.Period{YearMonth: "202401"})
			So(top, ShouldResemble, []flow.Total{
				{Name: "Astoria", Rides: 30},
				{Name: "Greenpoint", Rides: 9},
				{Name: "Harlem", Rides: 4},
			})
			So(d.Top("Midtown", flow.Incoming, 1, flow.AllTime)[0].Name, ShouldEqual, "Astoria")
		})

		Convey("And overall traffic covers all NTAs", func() {
			tr := d.Traffic(flow.AllTime, flow.Incoming)
			So(tr[0], ShouldResemble, flow.Total{Name: "Midtown", Rides: 62})
			So(len(d.TopTraffic(flow.AllTime, flow.Outgoing, 2)), ShouldEqual, 2)
		})

		Convey("And borough traffic sums per borough", func() {
			bt := d.BoroughTraffic(flow.AllTime, flow.Outgoing)
			So(bt[0], ShouldResemble, flow.Total{Name: "Queens", Rides: 48})
		})
	})
}

func TestDatasetRanking(t *testing.T) {
	Convey("Given a dataset spanning two Januaries", t, func() {
		d := fixture()

		Convey("When ranking outgoing growth", func() {
			r := d.Ranking("202301", "202401", flow.Outgoing)

			Convey("Then rows are ordered by percent change", func() {
				So(len(r.Rows), ShouldEqual, 3)
				So(r.Rows[0].NTA, ShouldEqual, "Astoria")
				So(r.Rows[0].Earlier, ShouldEqual, 18)
				So(r.Rows[0].Later, ShouldEqual, 30)
				So(r.Rows[0].Change, ShouldEqual, 12)
				So(r.Rows[0].PercentChange, ShouldEqual, 66.7)
				So(r.Rows[0].Rank, ShouldEqual, 1)
				So(r.Rows[1].NTA, ShouldEqual, "Harlem")
				So(r.Rows[1].PercentChange, ShouldEqual, 0.0)
				So(r.Rows[2].NTA, ShouldEqual, "Midtown")
				So(r.Rows[2].PercentChange, ShouldEqual, -50.0)
			})

			Convey("And NTAs new in the later month are excluded", func() {
				_, ok := r.Find("Greenpoint")
				So(ok, ShouldBeFalse)
			})

			Convey("And the summary places the NTA", func() {
				s := flow.Summarize("Harlem", r)
				So(s.Rank, ShouldEqual, 2)
				So(s.Percentile, ShouldEqual, 50)
			})
		})
	})
}

func TestDatasetCompare(t *testing.T) {
	Convey("Given a dataset spanning two Januaries", t, func() {
		d := fixture()

		Convey("Empty months default to the standard comparison", func() {
			e, l, err := flow.ComparisonPeriods(d.YearMonths())
			So(err, ShouldBeNil)
			r, err := d.Compare("", "", flow.Outgoing)
			So(err, ShouldBeNil)
			So(r.Earlier, ShouldEqual, e)
			So(r.Later, ShouldEqual, l)
			So(r.Rows, ShouldResemble, d.Ranking(e, l, flow.Outgoing).Rows)
		})

		Convey("Explicit months are kept", func() {
			r, err := d.Compare("202301", "202401", flow.Outgoing)
			So(err, ShouldBeNil)
			So(r.Earlier, ShouldEqual, flow.YearMonth("202301"))
			So(r.Later, ShouldEqual, flow.YearMonth("202401"))
			So(r.Rows[0].NTA, ShouldEqual, "Astoria")
		})
	})

	Convey("An empty dataset has no data to compare", t, func() {
		var d *Dataset
		_, err := d.Compare("", "", flow.Outgoing)
		So(errors.Is(err, flow.ErrNoData), ShouldBeTrue)
		_, err = NewDataset(nil, nil, 0).Compare("202301", "202401", flow.Outgoing)
		So(errors.Is(err, flow.ErrNoData), ShouldBeTrue)
	})
}

func TestDatasetMatrices(t *testing.T) {
	Convey("Given a dataset", t, func() {
		d := fixture()

		Convey("When building the borough matrix", func() {
			m := d.BoroughMatrix(flow.AllTime)

			Convey("Then cells hold origin to destination totals", func() {
				So(m.Rows, ShouldResemble, []string{"Brooklyn", "Manhattan", "Queens"})
				So(m.Cols, ShouldResemble, []string{"Manhattan", "Queens"})
				So(m.Values[2][0], ShouldEqual, 48)
				So(m.Values[0][1], ShouldEqual, 0)
				So(m.Max(), ShouldEqual, 48)
			})
		})

		Convey("When building the NTA flow matrix", func() {
			m := d.FlowMatrix(flow.AllTime, 2)

			Convey("Then only the top origins appear on both axes", func() {
				So(m.Rows, ShouldResemble, []string{"Astoria", "Midtown"})
				So(m.Cols, ShouldResemble, m.Rows)
				So(m.Values[0][1], ShouldEqual, 45)
				So(m.Values[1][0], ShouldEqual, 12)
			})
		})

		Convey("When listing totals by month", func() {
			ts := d.TotalsByMonth(flow.Outgoing)

			Convey("Then they are ordered by NTA then month", func() {
				So(ts[0], ShouldResemble, flow.MonthlyTotal{NTA: "Astoria", YearMonth: "202301", Rides: 18})
				So(ts[1], ShouldResemble, flow.MonthlyTotal{NTA: "Astoria", YearMonth: "202401", Rides: 30})
			})
		})
	})
}

func TestMemStore(t *testing.T) {
	Convey("Given a new store", t, func() {
		ctx := context.Background()
		var (
			published *Dataset
			ticks     int
		)
		s := NewMemStore(
			WithReplaceHook(func(d *Dataset) { published = d }),
			WithClock(func() time.Time { ticks++; return day("2024-02-01") }),
		)

		Convey("Then it serves an empty dataset", func() {
			So(s.Snapshot(ctx), ShouldNotBeNil)
			So(s.Snapshot(ctx).Empty(), ShouldBeTrue)
			So(s.Version(), ShouldEqual, 0)
		})

		Convey("When a dataset is published", func() {
			d := fixture()
			err := s.Replace(ctx, d)

			Convey("Then readers see it", func() {
				So(err, ShouldBeNil)
				So(s.Snapshot(ctx), ShouldEqual, d)
				So(s.Version(), ShouldEqual, 1)
				So(published, ShouldEqual, d)
				So(ticks, ShouldEqual, 1)
			})
		})

		Convey("When nil is published", func() {
			err := s.Replace(ctx, nil)

			Convey("Then it is rejected", func() {
				So(err, ShouldEqual, ErrNilDataset)
				So(s.Version(), ShouldEqual, 0)
			})
		})
	})
}
