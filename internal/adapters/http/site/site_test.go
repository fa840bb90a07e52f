package site

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/bikeflow/internal/adapters/http/api"
	"github.com/okian/bikeflow/internal/adapters/repository"
	"github.com/okian/bikeflow/internal/config"
	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/okian/bikeflow/internal/domain/geo"
	"github.com/okian/bikeflow/pkg/logger"
	"github.com/paulmach/orb"
	. "github.com/smartystreets/goconvey/convey"
	g "maragu.dev/gomponents"
)

type fakeDeps struct {
	data *repository.Dataset
}

func (f *fakeDeps) Snapshot(context.Context) *repository.Dataset { return f.data }

func (f *fakeDeps) Ranking(_ context.Context, earlier, later flow.YearMonth, dir flow.Direction) (flow.Ranking, error) {
	return f.data.Ranking(earlier, later, dir), nil
}

type failingRanking struct{ fakeDeps }

func (f *failingRanking) Ranking(context.Context, flow.YearMonth, flow.YearMonth, flow.Direction) (flow.Ranking, error) {
	return flow.Ranking{}, flow.ErrNoData
}

func rec(date, from, to, fromBoro, toBoro string, rides int64) flow.Record {
	d, _ := time.Parse("2006-01-02", date)
	return flow.Record{
		Date: d, StartNTA: from, EndNTA: to, StartBoro: fromBoro, EndBoro: toBoro,
		Rides: rides, YearMonth: flow.YearMonthOf(d),
	}
}

func fixture() *repository.Dataset {
	return repository.NewDataset(fixtureRecords(), nil, 2)
}

func fixtureRecords() []flow.Record {
	return []flow.Record{
		rec("2023-01-05", "Astoria", "Midtown", "Queens", "Manhattan", 1200),
		rec("2023-01-06", "Midtown", "Astoria", "Manhattan", "Queens", 20),
		rec("2024-01-05", "Astoria", "Midtown", "Queens", "Manhattan", 1500),
		rec("2024-01-06", "Midtown", "Astoria", "Manhattan", "Queens", 10),
	}
}

func fixtureWithAreas() *repository.Dataset {
	return repository.NewDataset(fixtureRecords(), []geo.Area{
		{Name: "Astoria", Borough: "Queens", Code: "QN0101",
			WKT: "MULTIPOLYGON (((-73.93 40.76, -73.91 40.76, -73.91 40.78, -73.93 40.78, -73.93 40.76)))"},
		{Name: "Midtown", Borough: "Manhattan", Code: "MN0502",
			WKT: "MULTIPOLYGON (((-73.99 40.75, -73.97 40.75, -73.97 40.76, -73.99 40.76, -73.99 40.75)))"},
	}, 2)
}

func serve(s *Site, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	s.Register(context.Background(), mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestPages(t *testing.T) {
	Convey("Given a site with data", t, func() {
		s := New(&fakeDeps{data: fixture()})

		Convey("The entry page welcomes the user", func() {
			w := serve(s, "/")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "Welcome to the NYC Bike Flow Explorer")
			So(w.Body.String(), ShouldContainSubstring, `href="/about"`)
			So(w.Body.String(), ShouldContainSubstring, "2,730 rides")
		})

		Convey("The about page shows the credits", func() {
			w := serve(s, "/about")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := w.Body.String()
			So(body, ShouldContainSubstring, "<h1>About</h1>")
			So(body, ShouldContainSubstring, "Made as part of our group project for CET 522")
			So(body, ShouldContainSubstring, "Created by Danyel Redd, Dave Carpenter and Sophie De Rosa")
		})

		Convey("Unknown paths are not found", func() {
			w := serve(s, "/nope")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "Page not found")
		})

		Convey("Pages reject writes", func() {
			mux := http.NewServeMux()
			s.Register(context.Background(), mux)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/about", nil))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	Convey("Given a site with a custom title and theme", t, func() {
		theme := config.New().Theme
		theme.PrimaryColor = "#ff0000"
		s := New(&fakeDeps{data: fixture()}, WithTitle("Citi Flows"), WithTheme(theme))
		body := serve(s, "/").Body.String()
		So(body, ShouldContainSubstring, "<title>Citi Flows</title>")
		So(body, ShouldContainSubstring, "--primary:#ff0000")
	})
}

func TestExplorer(t *testing.T) {
	Convey("Given the explorer with data", t, func() {
		s := New(&fakeDeps{data: fixture()})

		Convey("Defaults pick the first NTA and every section renders", func() {
			w := serve(s, "/explorer")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := w.Body.String()
			So(body, ShouldContainSubstring, `<option value="Astoria" selected>Astoria</option>`)
			for _, id := range []string{"trends", "flows", "heatmap", "rankings", "overview", "about"} {
				So(body, ShouldContainSubstring, `id="`+id+`"`)
			}
			So(body, ShouldContainSubstring, "Top Destinations from Astoria")
			So(body, ShouldContainSubstring, "Astoria ranks 1 of 2 NTAs for outgoing ride growth (the 0th percentile).")
			So(body, ShouldContainSubstring, "Jan 2023 - Jan 2024")
		})

		Convey("The query string selects the view", func() {
			body := serve(s, "/explorer?borough=Manhattan&nta=Midtown&direction=incoming&period=202401").Body.String()
			So(body, ShouldContainSubstring, `<option value="Midtown" selected>Midtown</option>`)
			So(body, ShouldContainSubstring, "Top Origins to Midtown")
			So(body, ShouldContainSubstring, "Incoming Rides, Jan 2024.")
			So(body, ShouldNotContainSubstring, `<option value="Astoria"`)
		})

		Convey("Invalid values fall back to defaults", func() {
			body := serve(s, "/explorer?direction=sideways&period=209901&nta=Nowhere").Body.String()
			So(body, ShouldContainSubstring, `<option value="outgoing" selected>`)
			So(body, ShouldContainSubstring, `<option value="all" selected>All Time</option>`)
			So(body, ShouldContainSubstring, "Top Destinations from Astoria")
		})
	})

	Convey("Given the explorer with NTA boundaries", t, func() {
		s := New(&fakeDeps{data: fixtureWithAreas()})
		body := serve(s, "/explorer?nta=Astoria").Body.String()

		Convey("The heat map is drawn as shaded boundaries", func() {
			So(body, ShouldContainSubstring, `class="map"`)
			So(body, ShouldContainSubstring, `data-nta="Midtown"`)
			So(body, ShouldContainSubstring, `fill="rgb(189,0,38)"`)
			So(body, ShouldContainSubstring, "Midtown\nRides: 2,700")
		})

		Convey("The selected NTA is outlined", func() {
			So(body, ShouldContainSubstring, `stroke="#1f77b4"`)
			So(body, ShouldContainSubstring, "is highlighted with a blue border")
		})

		Convey("The flow diagram links the NTA to its peers", func() {
			So(body, ShouldContainSubstring, "Flow Diagram")
			So(body, ShouldContainSubstring, `class="flow"`)
			So(body, ShouldContainSubstring, "Astoria → Midtown: 2,700")
		})

		Convey("The change distribution highlights the selected NTA", func() {
			So(body, ShouldContainSubstring, "Distribution of Changes Across All NTAs")
			So(body, ShouldContainSubstring, `class="strip"`)
			So(body, ShouldContainSubstring, `fill="#FF4500"`)
			So(body, ShouldContainSubstring, "Astoria: +25.0%")
			So(body, ShouldContainSubstring, "Midtown: -50.0%")
		})
	})

	Convey("Given a ranking failure on a tagged request", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.WithWriter(&buf)), ShouldBeNil)
		s := New(&failingRanking{fakeDeps{data: fixture()}}, WithLogger(logger.Get()))

		mux := http.NewServeMux()
		s.Register(context.Background(), mux)
		req := httptest.NewRequest(http.MethodGet, "/explorer", nil)
		req.Header.Set(api.HeaderRequestID, "req-42")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		Convey("The page still renders and the warning carries the request id", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			So(buf.String(), ShouldContainSubstring, "ranking unavailable")
			So(buf.String(), ShouldContainSubstring, "requestID=req-42")
		})
	})

	Convey("Given the explorer without boundaries", t, func() {
		body := serve(New(&fakeDeps{data: fixture()}), "/explorer").Body.String()

		Convey("The heat map falls back to a table", func() {
			So(body, ShouldContainSubstring, "No boundary data is loaded")
			So(body, ShouldNotContainSubstring, `class="map"`)
		})
	})

	Convey("Given the explorer without data", t, func() {
		s := New(&fakeDeps{data: repository.NewDataset(nil, nil, 0)})
		w := serve(s, "/explorer")
		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Body.String(), ShouldContainSubstring, "No ride data is loaded")
		So(w.Body.String(), ShouldContainSubstring, "Data Summary")
	})
}

func TestStatic(t *testing.T) {
	Convey("Given the embedded assets", t, func() {
		s := New(&fakeDeps{data: fixture()})

		Convey("CSS is served with its content type", func() {
			w := serve(s, "/static/app.css")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/css")
			So(w.Body.String(), ShouldContainSubstring, "var(--primary)")
		})

		Convey("The icon is SVG", func() {
			w := serve(s, "/static/favicon.svg")
			So(w.Header().Get("Content-Type"), ShouldStartWith, "image/svg+xml")
		})

		Convey("Content is sniffed before the extension is trusted", func() {
			png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
			So(contentType("logo", png), ShouldEqual, "image/png")
			So(contentType("page.txt", []byte("<!DOCTYPE html><html><body>hi</body></html>")), ShouldStartWith, "text/html")
			So(contentType("app.css", []byte("body { margin: 0; }")), ShouldStartWith, "text/css")
			So(contentType("notes", []byte("plain words")), ShouldStartWith, "text/plain")
		})

		Convey("Missing assets are not found", func() {
			So(serve(s, "/static/missing.js").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRenderOptions(t *testing.T) {
	Convey("Pretty HTML is indented", t, func() {
		s := New(&fakeDeps{data: fixture()}, WithPrettyHTML(true))
		body := serve(s, "/about").Body.String()
		So(strings.Count(body, "\n"), ShouldBeGreaterThan, 5)
		So(body, ShouldContainSubstring, "CET 522")
	})

	Convey("Compressed pages use brotli", t, func() {
		s := New(&fakeDeps{data: fixture()}, WithCompression(true))
		mux := http.NewServeMux()
		s.Register(context.Background(), mux)
		req := httptest.NewRequest(http.MethodGet, "/about", nil)
		req.Header.Set("Accept-Encoding", "br")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		So(w.Header().Get("Content-Encoding"), ShouldEqual, "br")
	})
}

func TestThemeCSS(t *testing.T) {
	Convey("Theme values cannot break out of the style element", t, func() {
		css := themeCSS(config.Theme{PrimaryColor: "red;}</style><script>", Font: "serif"})
		So(css, ShouldNotContainSubstring, "</style>")
		So(css, ShouldContainSubstring, "--primary:red/stylescript")
		So(css, ShouldContainSubstring, "Georgia")
	})

	Convey("Empty values use defaults", t, func() {
		css := themeCSS(config.Theme{})
		So(css, ShouldContainSubstring, "--bg:#ffffff")
		So(css, ShouldContainSubstring, "sans-serif")
	})
}

func TestCharts(t *testing.T) {
	Convey("The colour ramp runs light to dark and clamps", t, func() {
		So(rampColor(0), ShouldEqual, "rgb(255,255,178)")
		So(rampColor(1), ShouldEqual, "rgb(189,0,38)")
		So(rampColor(2), ShouldEqual, rampColor(1))
		So(rampColor(-1), ShouldEqual, rampColor(0))
	})

	Convey("The projection keeps north at the top", t, func() {
		p := newProjection(orb.Bound{Min: orb.Point{-74, 40.5}, Max: orb.Point{-73.7, 40.9}})
		x0, yTop := p.point(orb.Point{-74, 40.9})
		x1, yBottom := p.point(orb.Point{-73.7, 40.5})
		So(x0, ShouldEqual, 0.0)
		So(yTop, ShouldEqual, 0.0)
		So(x1, ShouldAlmostEqual, svgWidth, 0.001)
		So(yBottom, ShouldAlmostEqual, p.height, 0.001)
	})

	Convey("Empty inputs render placeholders", t, func() {
		So(choropleth(nil, nil, "Astoria"), ShouldBeNil)
		So(renderNode(flowDiagram("Astoria", flow.Outgoing, nil)), ShouldContainSubstring, "No flow data available.")
		So(renderNode(stripPlot(flow.Ranking{}, "Astoria")), ShouldContainSubstring, "No data available for comparison.")
	})
}

func renderNode(n g.Node) string {
	var b strings.Builder
	_ = n.Render(&b)
	return b.String()
}
