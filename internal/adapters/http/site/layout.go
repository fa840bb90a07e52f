package site

import (
	"fmt"
	"strings"

	"github.com/okian/bikeflow/internal/config"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

var navLinks = []struct {
	href, label, page string
}{
	{"/", "Home", "home"},
	{"/explorer", "Bike Flow Explorer", "explorer"},
	{"/about", "About", "about"},
}

// layout wraps body in the shared document shell.
func (s *Site) layout(title, active string, body ...g.Node) g.Node {
	docTitle := s.title
	if title != "" {
		docTitle = title + " · " + s.title
	}
	return h.Doctype(
		h.HTML(h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
				g.El("title", g.Text(docTitle)),
				h.Link(h.Rel("icon"), h.Type("image/svg+xml"), h.Href("/static/favicon.svg")),
				h.Link(h.Rel("stylesheet"), h.Href("/static/app.css")),
				g.El("style", g.Raw(themeCSS(s.theme))),
			),
			h.Body(
				h.Header(h.Class("top"),
					h.A(h.Class("brand"), h.Href("/"), g.Text("🚴 "+s.title)),
					h.Nav(g.Map(navLinks, func(l struct{ href, label, page string }) g.Node {
						return h.A(h.Href(l.href), g.If(l.page == active, h.Class("active")), g.Text(l.label))
					})),
				),
				h.Main(body...),
				h.Footer(g.Text("Ride data aggregated by Neighborhood Tabulation Area.")),
			),
		),
	)
}

// themeCSS renders the configured theme as CSS custom properties.
func themeCSS(t config.Theme) string {
	return fmt.Sprintf(":root{--primary:%s;--bg:%s;--bg2:%s;--text:%s;--font:%s;}",
		cssValue(t.PrimaryColor, "#1f77b4"),
		cssValue(t.BackgroundColor, "#ffffff"),
		cssValue(t.SecondaryBackgroundColor, "#f0f2f6"),
		cssValue(t.TextColor, "#262730"),
		fontStack(t.Font),
	)
}

// cssValue drops characters that could end the declaration or the style element.
func cssValue(v, fallback string) string {
	v = strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '"', '\'', '\\':
			return -1
		}
		return r
	}, strings.TrimSpace(v))
	if v == "" {
		return fallback
	}
	return v
}

func fontStack(font string) string {
	switch strings.ToLower(strings.TrimSpace(font)) {
	case "serif":
		return `Georgia, "Times New Roman", serif`
	case "monospace":
		return `ui-monospace, SFMono-Regular, Menlo, Consolas, monospace`
	default:
		return `system-ui, -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif`
	}
}
