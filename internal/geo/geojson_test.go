package geo

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
)

func TestFeatureCollection_RoundTrip(t *testing.T) {
	src := `{
		"type": "FeatureCollection",
		"features": [
			{
				"id": "a",
				"type": "Feature",
				"geometry": {"type": "Region", "coordinates": [[[68.1, 30.1], [68.2, 30.1], [68.2, 30.2], [68.1, 30.1]]]},
				"properties": {"color": "#00FF00", "stroke": 3}
			},
			{
				"id": "b",
				"type": "Feature",
				"geometry": {"type": "LineString", "coordinates": [[68.1, 30.1], [68.3, 30.4]]},
				"properties": {"description": "канал"}
			},
			{
				"type": "Feature",
				"geometry": {"type": "Circle", "coordinates": [1, 2]},
				"properties": {}
			}
		]
	}`

	var fc FeatureCollection
	if err := json.Unmarshal([]byte(src), &fc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := fc.Features[0].Geometry.Rings[0][1]; got[0] != 68.2 || got[1] != 30.1 {
		t.Errorf("expected (lon, lat) order preserved, got %v", got)
	}
	if fc.Features[1].Geometry.Type.Kind() != Line {
		t.Errorf("expected LineString to resolve to Line")
	}
	if fc.Features[0].Properties.Extra["stroke"] != json.Number("3") {
		t.Errorf("expected extra property preserved, got %v", fc.Features[0].Properties.Extra)
	}

	out, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var want, got any
	if err := json.Unmarshal([]byte(src), &want); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("round trip mismatch:\nwant %v\ngot  %v", want, got)
	}
}

func TestFeature_WritesBackOnlyMembersRead(t *testing.T) {
	cases := map[string]string{
		"null properties": `{"type":"Feature","geometry":{"type":"Line","coordinates":[[0,0],[1,1]]},"properties":null}`,
		"empty color":     `{"id":"a","type":"Feature","geometry":{"type":"Region","coordinates":[[[0,0],[1,0],[1,1]]]},"properties":{"color":""}}`,
		"no type":         `{"id":"b","geometry":{"type":"Line","coordinates":[[0,0],[1,1]]},"properties":{"description":"x"}}`,
		"no properties":   `{"id":"c","type":"Feature","geometry":{"type":"Region","coordinates":[[[0,0],[1,0],[1,1]]]}}`,
		"extra members":   `{"id":"d","type":"Feature","geometry":{"type":"Line","coordinates":[[0,0],[1,1]]},"properties":{},"rev":12345678901234567890,"source":{"tool":"draw"}}`,
		"altitude":        `{"id":"e","type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0,5],[1,0,5.5],[1,1,5]]]},"properties":{}}`,
		"html text":       `{"id":"f","type":"Feature","geometry":{"type":"Line","coordinates":[[0,0],[1,1]]},"properties":{"description":"a<br>b & c"}}`,
	}
	for name, src := range cases {
		var f Feature
		if err := json.Unmarshal([]byte(src), &f); err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		out, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if string(out) != src {
			t.Errorf("%s: round trip mismatch:\nwant %s\ngot  %s", name, src, out)
		}
	}
}

func TestGeometry_AltitudeKeepsLonLatForContainment(t *testing.T) {
	var g Geometry
	src := `{"type":"Region","coordinates":[[[0,0,7],[4,0,7],[4,4,7],[0,4,7],[0,0,7]]]}`
	if err := json.Unmarshal([]byte(src), &g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := g.Rings[0][2]; got[0] != 4 || got[1] != 4 {
		t.Errorf("expected (lon, lat) of third position, got %v", got)
	}
	if in, err := Contains(orb.Point{2, 2}, g.Rings); err != nil || !in {
		t.Errorf("expected centre to be contained, got %v, %v", in, err)
	}
}

func TestNewFeature_WritesAllMembers(t *testing.T) {
	f := NewFeature(Geometry{Type: Line}, Properties{})
	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"type":"Feature","geometry":{"type":"Line","coordinates":[]},"properties":{}}`
	if string(out) != want {
		t.Errorf("expected %s, got %s", want, out)
	}
}

func TestGeometry_UnmarshalRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"missing type":        `{"coordinates": [[[0, 0], [1, 0], [1, 1]]]}`,
		"missing coordinates": `{"type": "Region"}`,
		"line as region":      `{"type": "Region", "coordinates": [[0, 0], [1, 1]]}`,
		"string coordinates":  `{"type": "Line", "coordinates": "0,0"}`,
		"short position":      `{"type": "Line", "coordinates": [[0, 0], [1]]}`,
		"null coordinates":    `{"type": "Region", "coordinates": null}`,
	}
	for name, src := range cases {
		var g Geometry
		if err := json.Unmarshal([]byte(src), &g); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestProperties_RejectsNonStringColor(t *testing.T) {
	var p Properties
	if err := json.Unmarshal([]byte(`{"color": 5}`), &p); err == nil {
		t.Errorf("expected error for numeric color")
	}
}

func TestGeometryType_Kind(t *testing.T) {
	cases := map[GeometryType]GeometryType{
		"Region":     Region,
		"Polygon":    Region,
		"Jam":        Region,
		"Line":       Line,
		"LineString": Line,
		"Pipe Line":  Line,
		"Point":      "",
	}
	for in, want := range cases {
		if got := in.Kind(); got != want {
			t.Errorf("%q: expected %q, got %q", in, want, got)
		}
	}
}
