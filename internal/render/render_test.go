package render

import (
	"context"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/woozymasta/geopro/internal/aggregate"
	"github.com/woozymasta/geopro/internal/annotation"
	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/geo"
)

type fakePlacer struct {
	placeFn func(ctx context.Context, lat, lon float64) string
}

func (f fakePlacer) Place(ctx context.Context, lat, lon float64) string {
	return f.placeFn(ctx, lat, lon)
}

func fixedPlace(name string) fakePlacer {
	return fakePlacer{placeFn: func(context.Context, float64, float64) string { return name }}
}

func TestMarkerPopup(t *testing.T) {
	m := annotation.Marker{Category: "School", PopupText: "Girls primary", Lat: 30.391638, Lon: 68.434838}

	want := "<b>School</b><br>Girls primary<br>Quetta<br>Cordinates: 30.391638, 68.434838"
	if got := MarkerPopup(m, "Quetta"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRenderer_Marker(t *testing.T) {
	var gotLat, gotLon float64
	p := fakePlacer{placeFn: func(_ context.Context, lat, lon float64) string {
		gotLat, gotLon = lat, lon
		return "Quetta"
	}}
	r := New(p, config.Drawing{})

	m := annotation.Marker{ID: "m1", Category: "Clinic", IconURL: "clinic.png", Lat: 1.5, Lon: 2.5}
	v := r.Marker(context.Background(), m)

	if gotLat != 1.5 || gotLon != 2.5 {
		t.Errorf("expected placer called with marker coordinates, got %v %v", gotLat, gotLon)
	}
	if v.ID != "m1" || v.IconURL != "clinic.png" || v.Lat != 1.5 || v.Lon != 2.5 {
		t.Errorf("unexpected view %+v", v)
	}
	if !v.Identity.Matches(m) || v.Identity.ID != "m1" {
		t.Errorf("expected identity addressing the marker, got %+v", v.Identity)
	}
	if v.Label != "Clinic at (1.50000, 2.50000)" {
		t.Errorf("unexpected label %q", v.Label)
	}
	for _, part := range []string{"<b>Clinic</b>", "Quetta", "Cordinates: 1.5, 2.5"} {
		if !strings.Contains(v.PopupHTML, part) {
			t.Errorf("expected popup to contain %q, got %q", part, v.PopupHTML)
		}
	}
}

func TestRegionPopup(t *testing.T) {
	s := aggregate.Summary{
		Counts:          map[string]int{"A": 2, "B": 1},
		Order:           []string{"B", "A"},
		LocationDetails: []string{"T1", "T2"},
	}

	want := "B: 1<br>A: 2<br><br>Location Details:<br>T1<br>T2"
	if got := RegionPopup(s); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if got := RegionPopup(aggregate.Summary{LocationDetails: []string{}}); got != "" {
		t.Errorf("expected empty popup, got %q", got)
	}
}

func TestRenderer_Styles(t *testing.T) {
	r := New(fixedPlace(""), config.Drawing{})

	region := geo.Feature{Geometry: geo.Geometry{Type: geo.Region}, Properties: geo.Properties{Color: "#00FF00"}}
	if got := r.StyleFor(region); got != (Style{Color: "#00FF00", Weight: 2, FillOpacity: 0.05, Opacity: 0.3}) {
		t.Errorf("unexpected region style %+v", got)
	}

	legacy := geo.Feature{Geometry: geo.Geometry{Type: "Jam"}}
	if got := r.StyleFor(legacy); got.Color != config.DefaultRegionColor {
		t.Errorf("expected default region color, got %+v", got)
	}

	line := geo.Feature{Geometry: geo.Geometry{Type: "LineString"}, Properties: geo.Properties{Color: "#00FF00"}}
	if got := r.StyleFor(line); got != (Style{Color: "#0000FF"}) {
		t.Errorf("expected blue line, got %+v", got)
	}
}

func TestRenderer_Shape(t *testing.T) {
	r := New(fixedPlace(""), config.Drawing{RegionColor: "#123456"})

	region := geo.Feature{ID: "r1", Geometry: geo.Geometry{
		Type:  geo.Region,
		Rings: []orb.Ring{{{0, 0}, {1, 0}, {1, 1}}},
	}}
	s := &aggregate.Summary{ShapeID: "r1", Counts: map[string]int{"A": 3}, Order: []string{"A"}, LocationDetails: []string{}}

	v := r.Shape("r1", region, s)
	if v.Key != "r1" || v.Summary != s {
		t.Errorf("unexpected view %+v", v)
	}
	if v.Style.Color != "#123456" {
		t.Errorf("expected configured region color, got %q", v.Style.Color)
	}
	if !strings.Contains(v.PopupHTML, "A: 3") {
		t.Errorf("unexpected region popup %q", v.PopupHTML)
	}

	line := geo.Feature{ID: "l1", Geometry: geo.Geometry{Type: geo.Line}, Properties: geo.Properties{Description: "Supply route"}}
	lv := r.Shape("l1", line, nil)
	if lv.PopupHTML != "Supply route" || lv.Summary != nil {
		t.Errorf("unexpected line view %+v", lv)
	}
}
