// Package format renders catalogue results as human-readable text.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robert-malhotra/copernicus-cli/pkg/stac"
)

// Renderer turns features into fixed multi-line blocks. The zero value
// renders plain text.
type Renderer struct {
	styled  bool
	label   lipgloss.Style
	value   lipgloss.Style
	id      lipgloss.Style
	missing lipgloss.Style
}

// NewStyledRenderer returns a Renderer that colours labels and values for a
// terminal.
func NewStyledRenderer() *Renderer {
	return &Renderer{
		styled:  true,
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7F6DFF")),
		value:   lipgloss.NewStyle(),
		id:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#42E7FF")),
		missing: lipgloss.NewStyle().Faint(true),
	}
}

// Render renders fc as plain text.
func Render(fc *stac.FeatureCollection) string {
	var r Renderer
	return r.Render(fc)
}

// Render renders every feature of fc, separating features by a blank line.
func (r *Renderer) Render(fc *stac.FeatureCollection) string {
	if fc == nil {
		return ""
	}
	blocks := make([]string, 0, len(fc.Features))
	for _, f := range fc.Features {
		blocks = append(blocks, r.RenderFeature(f))
	}
	return strings.Join(blocks, "\n")
}

// RenderFeature renders a single feature. Missing values show as N/A.
func (r *Renderer) RenderFeature(f *stac.Feature) string {
	id, ok := f.DisplayID()
	if !ok {
		id = stac.NotAvailable
	}
	quicklook, ok := f.QuicklookHref()
	if !ok {
		quicklook = stac.NotAvailable
	}
	product, ok := f.ProductHref()
	if !ok {
		product = stac.NotAvailable
	}

	var b strings.Builder
	r.line(&b, "id", r.paint(r.id, id))
	r.line(&b, "platform", r.text(property(f, "platformShortName"))+" "+r.text(property(f, "platformSerialIdentifier")))
	r.line(&b, "product type", r.text(property(f, "productType")))
	r.line(&b, "cloud cover", r.text(property(f, "cloudCover")))
	r.line(&b, "datetime", r.text(property(f, "datetime")))
	r.line(&b, "bbox", r.text(formatBbox(f.Bbox)))
	r.line(&b, "quicklook", r.text(quicklook))
	r.line(&b, "product", r.text(product))
	return b.String()
}

func (r *Renderer) line(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", r.paint(r.label, label+":"), value)
}

func (r *Renderer) text(s string) string {
	if s == stac.NotAvailable {
		return r.paint(r.missing, s)
	}
	return r.paint(r.value, s)
}

func (r *Renderer) paint(style lipgloss.Style, s string) string {
	if r == nil || !r.styled {
		return s
	}
	return style.Render(s)
}

func property(f *stac.Feature, name string) string {
	return stac.Display(f.Property(name))
}

func formatBbox(bbox []float64) string {
	if len(bbox) == 0 {
		return stac.NotAvailable
	}
	parts := make([]string, len(bbox))
	for i, v := range bbox {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}
