package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParse_YAMLMappingKeepsOrder(t *testing.T) {
	src := `
icons:
  School: icons/school.png
  Clinic: icons/clinic.png
  Location: icons/pin.png
  Animals: icons/cow.png
drawing:
  region_color: "#00FF00"
geocoder:
  timeout: 2s
`
	cfg, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"School", "Clinic", "Location", "Animals"}
	if got := cfg.Icons.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if cfg.Drawing.RegionColor != "#00FF00" {
		t.Errorf("expected region color override, got %s", cfg.Drawing.RegionColor)
	}
	if cfg.Drawing.LineColor != DefaultLineColor {
		t.Errorf("expected default line color, got %s", cfg.Drawing.LineColor)
	}
	if cfg.Geocoder.Timeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %v", cfg.Geocoder.Timeout)
	}
	if cfg.Geocoder.FailureTTL != time.Minute || cfg.Geocoder.RateLimit != DefaultGeocoderRate {
		t.Errorf("expected failure ttl and rate defaults, got %v, %v", cfg.Geocoder.FailureTTL, cfg.Geocoder.RateLimit)
	}
}

func TestParse_LegacyJSON(t *testing.T) {
	src := `{"ICON_URLS": {"Water": "https://example.org/water.png", "Location": "https://example.org/pin.png"}}`

	cfg, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cfg.Icons.Names(); !reflect.DeepEqual(got, []string{"Water", "Location"}) {
		t.Errorf("unexpected categories %v", got)
	}
	if url, ok := cfg.Icons.URL("Water"); !ok || url != "https://example.org/water.png" {
		t.Errorf("unexpected url %q (%v)", url, ok)
	}
	if cfg.Map.Lat != DefaultCenterLat || cfg.Map.Zoom != DefaultZoom {
		t.Errorf("expected default map view, got %+v", cfg.Map)
	}
	if cfg.Basemap.Bounds[0] >= cfg.Basemap.Bounds[2] {
		t.Errorf("expected bounds derived from center, got %v", cfg.Basemap.Bounds)
	}
}

func TestParse_IconList(t *testing.T) {
	src := `
icons:
  - name: Well
    url: well.png
  - name: Road
    url: road.png
`
	cfg, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Icons.Has("Road") || cfg.Icons.Has("Bridge") {
		t.Errorf("unexpected icon set %v", cfg.Icons)
	}
}

func TestParse_ValidationCollectsErrors(t *testing.T) {
	src := `
icons:
  - name: Well
  - name: Well
map:
  lat: 120
basemap:
  min_zoom: 15
  max_zoom: 12
`
	_, err := Parse([]byte(src))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, part := range []string{"duplicate category", "map.lat", "min_zoom"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("expected %q in error, got: %v", part, err)
		}
	}
}

func TestParse_NoIcons(t *testing.T) {
	if _, err := Parse([]byte(`data_dir: /tmp`)); err == nil {
		t.Error("expected error for missing icons")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("icons:\n  Well: well.png\ndata_dir: data\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DataDir != "data" {
		t.Errorf("expected data dir from file, got %s", cfg.DataDir)
	}
}
