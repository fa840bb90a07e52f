package site

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// Drawing sizes, in SVG user units.
const (
	svgWidth      = 640.0
	flowNodeWidth = 14.0
	flowGap       = 6.0
	flowMinBand   = 2.0
	flowLabelPad  = 150.0
	stripHeight   = 170.0
	stripMargin   = 30.0
	stripRadius   = 4.0
	stripHiRadius = 7.0
	highlightFill = "#FF4500"
	selectedEdge  = "#1f77b4"
)

// ylOrRd is the colour ramp used by the traffic map, light to dark.
var ylOrRd = [][3]float64{
	{255, 255, 178},
	{254, 204, 92},
	{253, 141, 60},
	{240, 59, 32},
	{189, 0, 38},
}

func svg(viewW, viewH float64, class string, children ...g.Node) g.Node {
	return g.El("svg",
		g.Attr("xmlns", "http://www.w3.org/2000/svg"),
		g.Attr("viewBox", "0 0 "+num(viewW)+" "+num(viewH)),
		g.Attr("class", class),
		g.Attr("role", "img"),
		g.Group(children),
	)
}

func svgTitle(text string) g.Node { return g.El("title", g.Text(text)) }

func num(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) }

// rampColor maps t in [0,1] onto ylOrRd.
func rampColor(t float64) string {
	t = min(max(t, 0), 1)
	pos := t * float64(len(ylOrRd)-1)
	i := min(int(pos), len(ylOrRd)-2)
	frac := pos - float64(i)
	var rgb [3]string
	for c := range rgb {
		v := ylOrRd[i][c] + (ylOrRd[i+1][c]-ylOrRd[i][c])*frac
		rgb[c] = strconv.Itoa(int(math.Round(v)))
	}
	return "rgb(" + strings.Join(rgb[:], ",") + ")"
}

// projection maps lon/lat onto the SVG plane, scaling longitude by the
// cosine of the middle latitude so shapes keep their proportions.
type projection struct {
	bound  orb.Bound
	scale  float64
	kx     float64
	height float64
}

func newProjection(b orb.Bound) projection {
	kx := math.Cos((b.Min[1] + b.Max[1]) / 2 * math.Pi / 180)
	w := (b.Max[0] - b.Min[0]) * kx
	p := projection{bound: b, kx: kx, scale: 1, height: svgWidth}
	if w > 0 {
		p.scale = svgWidth / w
		p.height = max((b.Max[1]-b.Min[1])*p.scale, 1)
	}
	return p
}

func (p projection) point(pt orb.Point) (float64, float64) {
	return (pt[0] - p.bound.Min[0]) * p.kx * p.scale, (p.bound.Max[1] - pt[1]) * p.scale
}

// pathData renders polygons as one SVG path; holes use the evenodd rule.
func (p projection) pathData(polys orb.MultiPolygon) string {
	var b strings.Builder
	for _, poly := range polys {
		for _, ring := range poly {
			for i, pt := range ring {
				x, y := p.point(pt)
				if i == 0 {
					b.WriteString("M")
				} else {
					b.WriteString("L")
				}
				b.WriteString(num(x) + " " + num(y))
			}
			b.WriteString("Z")
		}
	}
	return b.String()
}

func multiPolygon(geom orb.Geometry) orb.MultiPolygon {
	switch v := geom.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}
	case orb.MultiPolygon:
		return v
	}
	return nil
}

// choropleth shades every boundary by its ride count using a square root
// scale so quiet neighbourhoods stay visible. The selected NTA gets a blue
// outline. It returns nil when there is no geometry.
func choropleth(fc *geojson.FeatureCollection, traffic []flow.Total, selected string) g.Node {
	if fc == nil || len(fc.Features) == 0 {
		return nil
	}
	rides := make(map[string]int64, len(traffic))
	var hi int64
	for _, t := range traffic {
		rides[t.Name] = t.Rides
		hi = max(hi, t.Rides)
	}

	bound := fc.Features[0].Geometry.Bound()
	for _, f := range fc.Features[1:] {
		bound = bound.Union(f.Geometry.Bound())
	}
	proj := newProjection(bound)

	shapes := make(g.Group, 0, len(fc.Features)+1)
	var outline g.Node
	for _, f := range fc.Features {
		name, _ := f.ID.(string)
		n := rides[name]
		fill := "#eeeeee"
		if hi > 0 && n > 0 {
			fill = rampColor(math.Sqrt(float64(n)) / math.Sqrt(float64(hi)))
		}
		path := g.El("path",
			g.Attr("d", proj.pathData(multiPolygon(f.Geometry))),
			g.Attr("fill", fill),
			g.Attr("fill-rule", "evenodd"),
			g.Attr("stroke", "#ffffff"),
			g.Attr("stroke-width", "0.5"),
			g.Attr("data-nta", name),
			svgTitle(name+"\nRides: "+humanize.Comma(n)),
		)
		if name == selected {
			outline = g.El("path",
				g.Attr("d", proj.pathData(multiPolygon(f.Geometry))),
				g.Attr("fill", "none"),
				g.Attr("stroke", selectedEdge),
				g.Attr("stroke-width", "2.5"),
				g.Attr("class", "selected"),
			)
		}
		shapes = append(shapes, path)
	}
	if outline != nil {
		shapes = append(shapes, outline)
	}
	return h.Div(h.Class("chart"),
		svg(svgWidth, proj.height, "map", shapes),
		mapLegend(hi),
	)
}

// mapLegend labels the colour ramp with ride counts at the square root
// positions of 0, 10, 25, 50 and 100 percent of the maximum.
func mapLegend(hi int64) g.Node {
	fractions := []float64{0, 0.1, 0.25, 0.5, 1}
	items := make(g.Group, len(fractions))
	for i, f := range fractions {
		v := int64(float64(hi) * f)
		items[i] = h.Span(
			h.Span(h.Class("swatch"), g.Attr("style", "background:"+rampColor(math.Sqrt(f)))),
			g.Text(humanize.Comma(v)),
		)
	}
	return h.Div(h.Class("legend"), items)
}

// flowDiagram draws bands between the selected NTA and its busiest peers,
// each band as wide as its ride count. Outgoing flows run left to right
// from the NTA, incoming flows run into it.
func flowDiagram(nta string, dir flow.Direction, peers []flow.Total) g.Node {
	if len(peers) == 0 {
		return h.P(h.Class("caption"), g.Text("No flow data available."))
	}
	var total int64
	for _, p := range peers {
		total += p.Rides
	}
	height := 320.0
	usable := height - flowGap*float64(len(peers)-1)
	band := func(v int64) float64 { return max(float64(v)/float64(total)*usable, flowMinBand) }

	hubX, peerX := flowLabelPad, svgWidth-flowLabelPad-flowNodeWidth
	if dir == flow.Incoming {
		hubX, peerX = peerX, hubX
	}
	var hubSpan float64
	for _, p := range peers {
		hubSpan += band(p.Rides)
	}
	hubTop := (height - hubSpan) / 2

	nodes := make(g.Group, 0, len(peers)*3+2)
	links := make(g.Group, 0, len(peers))
	hubY, peerY := hubTop, 0.0
	for _, p := range peers {
		w := band(p.Rides)
		links = append(links, g.El("path",
			g.Attr("d", bandPath(hubX, hubY, peerX, peerY, w, dir)),
			g.Attr("class", "link"),
			svgTitle(linkLabel(nta, p, dir)),
		))
		nodes = append(nodes,
			g.El("rect", g.Attr("x", num(peerX)), g.Attr("y", num(peerY)),
				g.Attr("width", num(flowNodeWidth)), g.Attr("height", num(w)), g.Attr("class", "node")),
			nodeLabel(peerX, peerY+w/2, p.Name, dir == flow.Outgoing),
		)
		hubY += w
		peerY += w + flowGap
	}
	nodes = append(nodes,
		g.El("rect", g.Attr("x", num(hubX)), g.Attr("y", num(hubTop)),
			g.Attr("width", num(flowNodeWidth)), g.Attr("height", num(hubSpan)), g.Attr("class", "node hub")),
		nodeLabel(hubX, hubTop+hubSpan/2, nta, dir == flow.Incoming),
	)
	return h.Div(h.Class("chart"), svg(svgWidth, height, "flow", links, nodes))
}

// bandPath is a filled cubic band of width w between the node edges.
func bandPath(hubX, hubY, peerX, peerY, w float64, dir flow.Direction) string {
	x0, y0, x1, y1 := hubX+flowNodeWidth, hubY, peerX, peerY
	if dir == flow.Incoming {
		x0, y0, x1, y1 = peerX+flowNodeWidth, peerY, hubX, hubY
	}
	mid := (x0 + x1) / 2
	return "M" + num(x0) + " " + num(y0) +
		"C" + num(mid) + " " + num(y0) + " " + num(mid) + " " + num(y1) + " " + num(x1) + " " + num(y1) +
		"L" + num(x1) + " " + num(y1+w) +
		"C" + num(mid) + " " + num(y1+w) + " " + num(mid) + " " + num(y0+w) + " " + num(x0) + " " + num(y0+w) + "Z"
}

func linkLabel(nta string, p flow.Total, dir flow.Direction) string {
	if dir == flow.Incoming {
		return p.Name + " → " + nta + ": " + humanize.Comma(p.Rides)
	}
	return nta + " → " + p.Name + ": " + humanize.Comma(p.Rides)
}

// nodeLabel places text beside a node, to its right or left.
func nodeLabel(x, y float64, text string, right bool) g.Node {
	anchor, tx := "end", x-4
	if right {
		anchor, tx = "start", x+flowNodeWidth+4
	}
	return g.El("text", g.Attr("x", num(tx)), g.Attr("y", num(y)),
		g.Attr("text-anchor", anchor), g.Attr("dominant-baseline", "middle"), g.Text(text))
}

// stripPlot places one dot per ranked NTA along a percent change axis.
// Dots that would overlap are stacked above and below the axis line and the
// selected NTA is drawn last, larger and in orange.
func stripPlot(r flow.Ranking, selected string) g.Node {
	if len(r.Rows) == 0 {
		return h.P(h.Class("caption"), g.Text("No data available for comparison."))
	}
	rows := make([]flow.RankingRow, len(r.Rows))
	copy(rows, r.Rows)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].PercentChange < rows[j].PercentChange })

	lo, hi := min(rows[0].PercentChange, 0), max(rows[len(rows)-1].PercentChange, 0)
	if hi == lo {
		hi = lo + 1
	}
	plotW := svgWidth - 2*stripMargin
	x := func(v float64) float64 { return stripMargin + (v-lo)/(hi-lo)*plotW }
	axisY := (stripHeight - stripMargin) / 2

	dots := make(g.Group, 0, len(rows)+1)
	var mark g.Node
	stacks := make(map[int]int)
	for _, row := range rows {
		cx := x(row.PercentChange)
		bucket := int(cx / (2 * stripRadius))
		k := stacks[bucket]
		stacks[bucket]++
		offset := float64((k+1)/2) * 2 * stripRadius
		if k%2 == 1 {
			offset = -offset
		}
		cy := min(max(axisY+offset, stripRadius), stripHeight-stripMargin-stripRadius)
		label := svgTitle(row.NTA + ": " + formatPercent(row.PercentChange))
		if row.NTA == selected {
			mark = g.El("circle", g.Attr("cx", num(cx)), g.Attr("cy", num(cy)), g.Attr("r", num(stripHiRadius)),
				g.Attr("fill", highlightFill), g.Attr("class", "selected"), label)
			continue
		}
		dots = append(dots, g.El("circle", g.Attr("cx", num(cx)), g.Attr("cy", num(cy)), g.Attr("r", num(stripRadius)),
			g.Attr("fill", "#000000"), g.Attr("fill-opacity", "0.3"), label))
	}
	if mark != nil {
		dots = append(dots, mark)
	}

	baseY := stripHeight - stripMargin
	axis := g.Group{
		g.El("line", g.Attr("x1", num(stripMargin)), g.Attr("x2", num(stripMargin+plotW)),
			g.Attr("y1", num(baseY)), g.Attr("y2", num(baseY)), g.Attr("class", "axis")),
		g.El("line", g.Attr("x1", num(x(0))), g.Attr("x2", num(x(0))),
			g.Attr("y1", "0"), g.Attr("y2", num(baseY)), g.Attr("class", "zero")),
	}
	for i := range 5 {
		v := lo + (hi-lo)*float64(i)/4
		axis = append(axis, g.El("text", g.Attr("x", num(x(v))), g.Attr("y", num(baseY+18)),
			g.Attr("text-anchor", "middle"), g.Text(formatPercent(v))))
	}
	return h.Div(h.Class("chart"), svg(svgWidth, stripHeight, "strip", axis, dots))
}
