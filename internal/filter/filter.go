// Package filter narrows annotations to the labels selected for display.
//
// Markers are selected by category and shapes by geometry label. Both label
// spaces share one selector, so a selection may hold either kind.
package filter

import (
	"github.com/woozymasta/geopro/internal/annotation"
	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/geo"
)

// Selection is a set of selected labels.
type Selection map[string]struct{}

// Select builds a selection from labels.
func Select(labels ...string) Selection {
	s := make(Selection, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

// Has reports whether label is selected.
func (s Selection) Has(label string) bool {
	_, ok := s[label]
	return ok
}

// Options lists every selectable label: shape types first, then categories.
func Options(icons config.IconSet) []string {
	return append([]string{string(geo.Region), string(geo.Line)}, icons.Names()...)
}

// All selects every option.
func All(icons config.IconSet) Selection {
	return Select(Options(icons)...)
}

// ShapeLabel is the label a feature is filtered by: Region or Line, or the
// stored type for unrecognised geometries.
func ShapeLabel(f geo.Feature) string {
	if kind := f.Geometry.Type.Kind(); kind != "" {
		return string(kind)
	}
	return string(f.Geometry.Type)
}

// VisibleMarkers returns the markers whose category is selected, in order.
// The input slice is not modified.
func VisibleMarkers(markers []annotation.Marker, sel Selection) []annotation.Marker {
	out := make([]annotation.Marker, 0, len(markers))
	for _, m := range markers {
		if sel.Has(m.Category) {
			out = append(out, m)
		}
	}
	return out
}

// VisibleShapes returns the features whose geometry label is selected, in order.
// The input slice is not modified.
func VisibleShapes(shapes []geo.Feature, sel Selection) []geo.Feature {
	out := make([]geo.Feature, 0, len(shapes))
	for _, f := range shapes {
		if sel.Has(ShapeLabel(f)) {
			out = append(out, f)
		}
	}
	return out
}
