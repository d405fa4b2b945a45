// Package aggregate summarises the markers contained in Region shapes.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/woozymasta/geopro/internal/annotation"
	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/geo"
	"github.com/woozymasta/geopro/internal/metrics"

	"github.com/rs/zerolog/log"
)

// ErrNotRegion is returned when a Line or unknown shape is aggregated.
var ErrNotRegion = errors.New("shape is not a region")

// Summary is the per-region result.
type Summary struct {
	ShapeID string `json:"id"`
	// Counts only holds categories with at least one contained marker.
	Counts map[string]int `json:"counts"`
	// Order lists the keys of Counts in configured category order.
	Order []string `json:"order"`
	// LocationDetails holds popup texts of contained Location markers in
	// marker order. It is never nil.
	LocationDetails []string `json:"location_details"`
}

// Engine aggregates markers by configured category.
type Engine struct {
	icons config.IconSet
}

// NewEngine creates an engine for the configured categories.
func NewEngine(icons config.IconSet) *Engine {
	return &Engine{icons: icons}
}

// Aggregate counts markers inside the outer ring of region.
//
// Location markers contribute their popup text to LocationDetails instead of
// a count. Markers with unconfigured categories are skipped. The markers are
// used as given; callers pass the already filtered set.
func (e *Engine) Aggregate(markers []annotation.Marker, region geo.Feature) (Summary, error) {
	if region.Geometry.Type.Kind() != geo.Region {
		return Summary{}, fmt.Errorf("%w: %s has type %q", ErrNotRegion, region.ID, region.Geometry.Type)
	}
	if len(region.Geometry.Rings) == 0 {
		return Summary{}, fmt.Errorf("region %s: %w: no rings", region.ID, geo.ErrInvalidGeometry)
	}
	if err := geo.ValidateRing(region.Geometry.Rings[0]); err != nil {
		return Summary{}, fmt.Errorf("region %s: %w", region.ID, err)
	}

	s := Summary{
		ShapeID:         region.ID,
		Counts:          make(map[string]int),
		LocationDetails: []string{},
	}

	for _, m := range markers {
		inside, err := geo.Contains(m.Point(), region.Geometry.Rings)
		if err != nil {
			return Summary{}, fmt.Errorf("region %s, marker %s: %w", region.ID, m.Label(), err)
		}
		if !inside {
			continue
		}

		if m.Category == config.LocationCategory {
			s.LocationDetails = append(s.LocationDetails, m.PopupText)
			continue
		}
		if !e.icons.Has(m.Category) {
			continue
		}
		s.Counts[m.Category]++
	}

	s.Order = make([]string, 0, len(s.Counts))
	for _, name := range e.icons.Names() {
		if s.Counts[name] > 0 {
			s.Order = append(s.Order, name)
		}
	}

	metrics.AggregationsTotal.Inc()
	log.Trace().
		Str("region", region.ID).
		Int("categories", len(s.Counts)).
		Int("locations", len(s.LocationDetails)).
		Msg("Region aggregated")

	return s, nil
}

// AggregateAll aggregates every Region in shapes. The result is aligned
// with shapes; Lines and unknown shapes have a nil summary.
func (e *Engine) AggregateAll(markers []annotation.Marker, shapes []geo.Feature) ([]*Summary, error) {
	out := make([]*Summary, len(shapes))
	for i, f := range shapes {
		if f.Geometry.Type.Kind() != geo.Region {
			continue
		}

		s, err := e.Aggregate(markers, f)
		if err != nil {
			return nil, err
		}
		out[i] = &s
	}

	return out, nil
}
