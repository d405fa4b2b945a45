// Package render turns annotations and region summaries into map payloads.
package render

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"

	"github.com/woozymasta/geopro/internal/aggregate"
	"github.com/woozymasta/geopro/internal/annotation"
	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/geo"
)

// Placer resolves a point to a place name. It never fails.
type Placer interface {
	Place(ctx context.Context, lat, lon float64) string
}

// Style is the Leaflet path style of a rendered shape.
type Style struct {
	Color       string  `json:"color"`
	Weight      int     `json:"weight,omitempty"`
	FillOpacity float64 `json:"fillOpacity,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
}

// MarkerView is a rendered marker.
type MarkerView struct {
	ID        string  `json:"id,omitempty"`
	Label     string  `json:"label"`
	Category  string  `json:"icon_name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	IconURL   string  `json:"icon_url"`
	PopupHTML string  `json:"popup_html"`

	// Identity is sent back to delete the marker.
	Identity annotation.Identity `json:"identity"`
}

// ShapeView is a rendered shape. Summary is set for regions only.
type ShapeView struct {
	Key       string             `json:"key"`
	Feature   geo.Feature        `json:"feature"`
	Style     Style              `json:"style"`
	PopupHTML string             `json:"popup_html,omitempty"`
	Summary   *aggregate.Summary `json:"summary,omitempty"`
}

// Renderer builds payloads for the map widget.
type Renderer struct {
	placer  Placer
	drawing config.Drawing
	m       *minify.M
}

// New creates a renderer. Colors left empty in drawing use the defaults.
func New(placer Placer, drawing config.Drawing) *Renderer {
	if drawing.RegionColor == "" {
		drawing.RegionColor = config.DefaultRegionColor
	}
	if drawing.LineColor == "" {
		drawing.LineColor = config.DefaultLineColor
	}

	m := minify.New()
	m.AddFunc("text/html", html.Minify)

	return &Renderer{placer: placer, drawing: drawing, m: m}
}

// Marker renders a marker with its resolved place name.
func (r *Renderer) Marker(ctx context.Context, mk annotation.Marker) MarkerView {
	place := r.placer.Place(ctx, mk.Lat, mk.Lon)

	return MarkerView{
		ID:        mk.ID,
		Label:     mk.Label(),
		Category:  mk.Category,
		Lat:       mk.Lat,
		Lon:       mk.Lon,
		IconURL:   mk.IconURL,
		PopupHTML: r.minify(MarkerPopup(mk, place)),
		Identity:  annotation.IdentityOf(mk),
	}
}

// Markers renders markers in order.
func (r *Renderer) Markers(ctx context.Context, markers []annotation.Marker) []MarkerView {
	out := make([]MarkerView, 0, len(markers))
	for _, m := range markers {
		out = append(out, r.Marker(ctx, m))
	}
	return out
}

// Shape renders a feature. Regions take their popup from summary, lines from
// their description.
func (r *Renderer) Shape(key string, f geo.Feature, summary *aggregate.Summary) ShapeView {
	v := ShapeView{Key: key, Feature: f, Style: r.StyleFor(f)}

	switch f.Geometry.Type.Kind() {
	case geo.Region:
		if summary != nil {
			v.Summary = summary
			v.PopupHTML = r.minify(RegionPopup(*summary))
		}
	case geo.Line:
		v.PopupHTML = r.minify(f.Properties.Description)
	}

	return v
}

// StyleFor returns the path style of a feature.
func (r *Renderer) StyleFor(f geo.Feature) Style {
	if f.Geometry.Type.Kind() == geo.Line {
		return Style{Color: r.drawing.LineColor}
	}

	color := f.Properties.Color
	if color == "" {
		color = r.drawing.RegionColor
	}
	return Style{Color: color, Weight: 2, FillOpacity: 0.05, Opacity: 0.3}
}

func (r *Renderer) minify(s string) string {
	if s == "" {
		return s
	}
	out, err := r.m.String("text/html", s)
	if err != nil {
		log.Debug().Err(err).Msg("Popup minification failed, using raw HTML")
		return s
	}
	return out
}

// MarkerPopup builds the popup HTML of a marker.
func MarkerPopup(m annotation.Marker, place string) string {
	return fmt.Sprintf("<b>%s</b><br>%s<br>%s<br>Cordinates: %s, %s",
		m.Category, m.PopupText, place,
		strconv.FormatFloat(m.Lat, 'f', -1, 64),
		strconv.FormatFloat(m.Lon, 'f', -1, 64),
	)
}

// RegionPopup builds the popup HTML of a region summary: one count line per
// category in configured order followed by the Location details block.
// An empty summary yields an empty popup.
func RegionPopup(s aggregate.Summary) string {
	var b strings.Builder
	for _, name := range s.Order {
		fmt.Fprintf(&b, "%s: %d<br>", name, s.Counts[name])
	}
	if len(s.LocationDetails) > 0 {
		b.WriteString("<br>Location Details:<br>")
		b.WriteString(strings.Join(s.LocationDetails, "<br>"))
	}
	return b.String()
}
