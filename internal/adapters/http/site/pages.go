package site

import (
	"net/http"

	"github.com/dustin/go-humanize"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// HandleHome handles GET / and renders 404 for any unknown path.
func (s *Site) HandleHome(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}
	if r.URL.Path != "/" {
		s.render(w, r, "not_found", http.StatusNotFound, s.layout("Not found", "",
			h.H1(g.Text("Page not found")),
			h.P(g.Text("There is nothing at "), h.Code(g.Text(r.URL.Path)), g.Text(".")),
			h.P(h.A(h.Href("/"), g.Text("Back to the home page"))),
		))
		return
	}

	info := s.deps.Snapshot(r.Context()).Info()
	s.render(w, r, "home", http.StatusOK, s.layout("", "home",
		h.H1(g.Text("Welcome to the "+s.title)),
		h.P(h.Class("lead"),
			g.Text("Explore bike ride patterns between NYC neighborhoods. See which areas have the most bike traffic, "+
				"where riders come from and go to, and how those patterns change over time."),
		),
		h.Div(h.Class("cards"),
			h.Div(h.Class("card"),
				h.H3(g.Text("Bike Flow Explorer")),
				h.P(g.Text("Trends, flows, heat maps and rankings for any Neighborhood Tabulation Area.")),
				h.A(h.Href("/explorer"), g.Text("Open the explorer →")),
			),
			h.Div(h.Class("card"),
				h.H3(g.Text("About")),
				h.P(g.Text("Who built this and why.")),
				h.A(h.Href("/about"), g.Text("Read more →")),
			),
		),
		g.If(info.Records > 0,
			h.P(h.Class("caption"),
				g.Textf("%s rides across %s NTAs loaded from %d files.",
					humanize.Comma(info.TotalRides), humanize.Comma(int64(info.NTAs)), info.Files),
			),
		),
		g.If(info.Records == 0,
			h.Div(h.Class("notice"), g.Text("No ride data is loaded yet. Add YYYYMM_daily.csv files to the data directory.")),
		),
	))
}

// HandleAbout handles GET /about.
func (s *Site) HandleAbout(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}
	s.render(w, r, "about", http.StatusOK, s.layout("About", "about",
		h.H1(g.Text("About")),
		h.P(g.Text("Made as part of our group project for CET 522")),
		h.P(g.Text("Created by Danyel Redd, Dave Carpenter and Sophie De Rosa")),
	))
}
