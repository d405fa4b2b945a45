package processor

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/geopro/internal/annotation"
	"github.com/woozymasta/geopro/internal/geo"
)

func testCollection() annotation.Collection {
	fc := geo.NewFeatureCollection()
	fc.Features = []geo.Feature{
		{ID: "r1", Type: "Feature", Geometry: geo.Geometry{
			Type:  "Jam",
			Rings: []orb.Ring{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		}, Properties: geo.Properties{Color: "#FF0000", Extra: map[string]any{"note": "x"}}},
		{Type: "Feature", Geometry: geo.Geometry{
			Type: "LineString",
			Path: orb.LineString{{0, 0}, {2, 2}},
		}, Properties: geo.Properties{Description: "Road"}},
		{ID: "c", Type: "Feature", Geometry: geo.Geometry{Type: "Circle"}},
	}

	return annotation.Collection{
		Markers: []annotation.Marker{
			{ID: "m1", Lat: 30.5, Lon: 68.5, Category: "School", IconURL: "s.png", PopupText: "Primary"},
		},
		Shapes: fc,
	}
}

func TestBuildGeoJSON(t *testing.T) {
	fc := BuildGeoJSON(testCollection())

	if len(fc.Features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(fc.Features))
	}

	m := fc.Features[0]
	if p, ok := m.Geometry.(orb.Point); !ok || p != (orb.Point{68.5, 30.5}) {
		t.Errorf("expected point in lon/lat order, got %v", m.Geometry)
	}
	if m.ID != "m1" || m.Properties["icon_name"] != "School" || m.Properties["kind"] != KindMarker {
		t.Errorf("unexpected marker feature %+v", m)
	}

	r := fc.Features[1]
	if _, ok := r.Geometry.(orb.Polygon); !ok {
		t.Errorf("expected polygon, got %T", r.Geometry)
	}
	if r.Properties["kind"] != KindRegion || r.Properties["label"] != "Jam" || r.Properties["note"] != "x" {
		t.Errorf("unexpected region properties %v", r.Properties)
	}

	l := fc.Features[2]
	if _, ok := l.Geometry.(orb.LineString); !ok {
		t.Errorf("expected line string, got %T", l.Geometry)
	}
	// legacy features without id are keyed by index
	if l.ID != "1" || l.Properties["description"] != "Road" {
		t.Errorf("unexpected line feature %+v", l)
	}
}

func TestEncode_JSONIsStandardGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, BuildGeoJSON(testCollection()), "json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Fatalf("expected parseable geojson: %v", err)
	}
	if len(fc.Features) != 3 || fc.Features[1].Geometry.GeoJSONType() != "Polygon" {
		t.Errorf("unexpected decoded collection %+v", fc.Features)
	}
}

func TestEncode_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, BuildGeoJSON(testCollection()), "yaml"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc struct {
		Type     string           `yaml:"type"`
		Features []map[string]any `yaml:"features"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("expected yaml: %v", err)
	}
	if doc.Type != "FeatureCollection" || len(doc.Features) != 3 {
		t.Errorf("unexpected yaml document %+v", doc)
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	if err := Encode(&bytes.Buffer{}, geojson.NewFeatureCollection(), "xml"); err == nil {
		t.Error("expected error")
	}
}

func TestSaveExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "annotations.geojson")
	if err := SaveExport(path, BuildGeoJSON(testCollection()), "json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw["type"] != "FeatureCollection" {
		t.Errorf("unexpected export %q", strings.TrimSpace(string(data)))
	}
}
