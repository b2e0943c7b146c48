package topics

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// GlamourRenderer renders markdown topics with glamour
type GlamourRenderer struct {
	Style string // "auto", "notty", a glamour style name or a path to a JSON style
	Width int    // word wrap, 0 for glamour's default
}

// NewGlamourRenderer creates a markdown renderer that picks a style from the
// terminal, or the plain "notty" style when plain is set.
func NewGlamourRenderer(plain bool) *GlamourRenderer {
	if plain {
		return &GlamourRenderer{Style: styles.NoTTYStyle}
	}
	return &GlamourRenderer{Style: styles.AutoStyle}
}

// Render converts markdown to terminal output. Other formats, and markdown
// glamour fails on, are returned unchanged.
func (r *GlamourRenderer) Render(content string, format string) string {
	if format != ".md" {
		return content
	}

	var options []glamour.TermRendererOption
	switch r.Style {
	case "", styles.AutoStyle:
		options = append(options, glamour.WithAutoStyle())
	default:
		options = append(options, glamour.WithStylePath(r.Style))
	}
	if r.Width > 0 {
		options = append(options, glamour.WithWordWrap(r.Width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
