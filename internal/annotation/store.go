package annotation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"sync"

	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/geo"
	"github.com/woozymasta/geopro/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Collection is a point-in-time copy of all annotations.
type Collection struct {
	Markers []Marker
	Shapes  geo.FeatureCollection
}

// Store keeps markers and shapes in memory and writes the affected record
// after every mutation. The in-memory state only changes once the write
// succeeded.
type Store struct {
	mu      sync.Mutex
	backend Backend
	icons   config.IconSet
	newID   func() string

	markers []Marker
	shapes  geo.FeatureCollection
}

// Open creates a store over backend and loads both records.
func Open(backend Backend, icons config.IconSet) (*Store, error) {
	s := &Store{
		backend: backend,
		icons:   icons,
		newID:   uuid.NewString,
	}

	if _, err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Load re-reads both records from storage. Absent records are created
// empty and persisted right away.
func (s *Store) Load() (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	markers, err := s.readMarkers()
	if err != nil {
		return Collection{}, err
	}
	shapes, err := s.readShapes()
	if err != nil {
		return Collection{}, err
	}

	unknown := 0
	for _, m := range markers {
		if !s.icons.Has(m.Category) {
			unknown++
		}
	}
	if unknown > 0 {
		log.Warn().
			Int("markers", unknown).
			Msg("Markers with unconfigured categories kept but excluded from aggregation")
	}

	s.markers, s.shapes = markers, shapes

	log.Info().
		Int("markers", len(markers)).
		Int("shapes", len(shapes.Features)).
		Msg("Annotations loaded")

	return s.snapshot(), nil
}

// Snapshot returns a copy of the current annotations.
func (s *Store) Snapshot() Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

// Markers returns a copy of the marker sequence.
func (s *Store) Markers() []Marker {
	return s.Snapshot().Markers
}

// Shapes returns a copy of the shape collection.
func (s *Store) Shapes() geo.FeatureCollection {
	return s.Snapshot().Shapes
}

func (s *Store) snapshot() Collection {
	shapes := geo.FeatureCollection{
		Type:     s.shapes.Type,
		Features: slices.Clone(s.shapes.Features),
	}
	if shapes.Features == nil {
		shapes.Features = []geo.Feature{}
	}

	markers := slices.Clone(s.markers)
	if markers == nil {
		markers = []Marker{}
	}

	return Collection{Markers: markers, Shapes: shapes}
}

// AddMarker appends a marker with a fresh id and persists the markers record.
// The icon reference defaults to the configured one for the category.
func (s *Store) AddMarker(m Marker) (Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.icons.Has(m.Category) {
		return Marker{}, fmt.Errorf("%w: %q", ErrUnknownCategory, m.Category)
	}
	if !validCoordinates(m.Lat, m.Lon) {
		return Marker{}, fmt.Errorf("%w: lat %v, lon %v", ErrInvalidCoordinates, m.Lat, m.Lon)
	}
	if m.IconURL == "" {
		m.IconURL, _ = s.icons.URL(m.Category)
	}
	m.ID = s.newID()

	next := append(slices.Clone(s.markers), m)
	if err := s.write(MarkersRecord, next); err != nil {
		return Marker{}, err
	}
	s.markers = next

	metrics.MutationsTotal.WithLabelValues("add_marker").Inc()
	log.Info().
		Str("id", m.ID).
		Str("category", m.Category).
		Float64("lat", m.Lat).
		Float64("lon", m.Lon).
		Msg("Marker added")

	return m, nil
}

// DeleteMarker removes the first marker matching id. It reports whether a
// marker was removed; a missing marker is not an error and writes nothing.
func (s *Store) DeleteMarker(id Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.markers, id.Matches)
	if idx < 0 {
		log.Debug().
			Str("id", id.ID).
			Str("category", id.Category).
			Msg("Marker to delete not found")
		return false, nil
	}

	next := slices.Delete(slices.Clone(s.markers), idx, idx+1)
	if err := s.write(MarkersRecord, next); err != nil {
		return false, err
	}
	removed := s.markers[idx]
	s.markers = next

	metrics.MutationsTotal.WithLabelValues("delete_marker").Inc()
	log.Info().
		Str("id", removed.ID).
		Str("marker", removed.Label()).
		Msg("Marker deleted")

	return true, nil
}

// AddShapes appends a batch of drawn shapes and persists them in one write.
//
// Every shape gets a fresh id. Draw labels such as Polygon or LineString are
// stored as Region and Line. Regions without a color take activeColor.
// An empty batch is a no-op.
func (s *Store) AddShapes(batch []geo.Feature, activeColor string) ([]geo.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(batch) == 0 {
		return nil, nil
	}
	if activeColor == "" {
		activeColor = config.DefaultRegionColor
	}

	taken := make(map[string]struct{}, len(s.shapes.Features)+len(batch))
	for _, f := range s.shapes.Features {
		if f.ID != "" {
			taken[f.ID] = struct{}{}
		}
	}

	added := make([]geo.Feature, 0, len(batch))
	for i, f := range batch {
		if err := normalizeDrawn(&f, activeColor); err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}

		f.ID = s.newID()
		for {
			if _, dup := taken[f.ID]; !dup {
				break
			}
			f.ID = s.newID()
		}
		taken[f.ID] = struct{}{}

		added = append(added, f)
	}

	next := s.shapes
	next.Features = append(slices.Clone(s.shapes.Features), added...)
	if err := s.write(ShapesRecord, next); err != nil {
		return nil, err
	}
	s.shapes = next

	metrics.MutationsTotal.WithLabelValues("add_shapes").Add(float64(len(added)))
	log.Info().
		Int("count", len(added)).
		Int("total", len(next.Features)).
		Msg("Shapes added")

	return slices.Clone(added), nil
}

func normalizeDrawn(f *geo.Feature, activeColor string) error {
	drawn := geo.NewFeature(f.Geometry, f.Properties)
	drawn.Extra = f.Extra
	*f = drawn

	switch f.Geometry.Type.Kind() {
	case geo.Region:
		f.Geometry.Type = geo.Region
		if len(f.Geometry.Rings) == 0 {
			return fmt.Errorf("%w: region has no rings", geo.ErrInvalidGeometry)
		}
		if err := geo.ValidateRing(f.Geometry.Rings[0]); err != nil {
			return err
		}
		if f.Properties.Color == "" {
			f.Properties.Color = activeColor
		}

	case geo.Line:
		f.Geometry.Type = geo.Line
		if len(f.Geometry.Path) < 2 {
			return fmt.Errorf("%w: line needs at least 2 vertices, got %d", geo.ErrInvalidGeometry, len(f.Geometry.Path))
		}

	default:
		return fmt.Errorf("%w: unsupported geometry type %q", geo.ErrInvalidGeometry, f.Geometry.Type)
	}

	return nil
}

// ShapeKey returns the key used to address a feature for deletion: its id,
// or its index for older features without one.
func ShapeKey(index int, f geo.Feature) string {
	if f.ID != "" {
		return f.ID
	}
	return strconv.Itoa(index)
}

// DeleteShape removes the feature addressed by key. It reports whether a
// feature was removed; a missing feature is not an error and writes nothing.
func (s *Store) DeleteShape(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.shapes.Features, func(f geo.Feature) bool {
		return f.ID != "" && f.ID == key
	})
	if idx < 0 {
		if n, err := strconv.Atoi(key); err == nil && n >= 0 && n < len(s.shapes.Features) && s.shapes.Features[n].ID == "" {
			idx = n
		}
	}
	if idx < 0 {
		log.Debug().Str("id", key).Msg("Shape to delete not found")
		return false, nil
	}

	next := s.shapes
	next.Features = slices.Delete(slices.Clone(s.shapes.Features), idx, idx+1)
	if err := s.write(ShapesRecord, next); err != nil {
		return false, err
	}
	s.shapes = next

	metrics.MutationsTotal.WithLabelValues("delete_shape").Inc()
	log.Info().Str("id", key).Msg("Shape deleted")

	return true, nil
}

func (s *Store) readMarkers() ([]Marker, error) {
	data, err := s.backend.Read(MarkersRecord)
	if errors.Is(err, fs.ErrNotExist) {
		markers := []Marker{}
		if err := s.write(MarkersRecord, markers); err != nil {
			return nil, err
		}
		log.Info().Str("record", MarkersRecord).Msg("Record missing, initialized empty")
		return markers, nil
	}
	if err != nil {
		return nil, s.fail("read", MarkersRecord, err)
	}

	var markers []Marker
	if err := json.Unmarshal(data, &markers); err != nil {
		return nil, s.fail("decode", MarkersRecord, err)
	}
	if markers == nil {
		markers = []Marker{}
	}

	return markers, nil
}

func (s *Store) readShapes() (geo.FeatureCollection, error) {
	data, err := s.backend.Read(ShapesRecord)
	if errors.Is(err, fs.ErrNotExist) {
		shapes := geo.NewFeatureCollection()
		if err := s.write(ShapesRecord, shapes); err != nil {
			return geo.FeatureCollection{}, err
		}
		log.Info().Str("record", ShapesRecord).Msg("Record missing, initialized empty")
		return shapes, nil
	}
	if err != nil {
		return geo.FeatureCollection{}, s.fail("read", ShapesRecord, err)
	}

	var shapes geo.FeatureCollection
	if err := json.Unmarshal(data, &shapes); err != nil {
		return geo.FeatureCollection{}, s.fail("decode", ShapesRecord, err)
	}
	if shapes.Type != "FeatureCollection" {
		return geo.FeatureCollection{}, s.fail("decode", ShapesRecord,
			fmt.Errorf("expected FeatureCollection, got %q", shapes.Type))
	}
	if shapes.Features == nil {
		shapes.Features = []geo.Feature{}
	}

	return shapes, nil
}

func (s *Store) write(record string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return s.fail("encode", record, err)
	}
	if err := s.backend.Write(record, data); err != nil {
		return s.fail("write", record, err)
	}

	metrics.StorageWritesTotal.WithLabelValues(record).Inc()
	log.Debug().
		Str("record", record).
		Int("bytes", len(data)).
		Msg("Record persisted")

	return nil
}

func (s *Store) fail(op, record string, err error) error {
	metrics.StorageErrorsTotal.WithLabelValues(record, op).Inc()
	log.Error().
		Err(err).
		Str("record", record).
		Str("op", op).
		Msg("Storage operation failed")

	return &StorageError{Op: op, Record: record, Err: err}
}

// Encode renders a record as pretty-printed JSON with non-ASCII and HTML
// characters kept literal.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
