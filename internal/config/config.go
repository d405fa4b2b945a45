// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LocationCategory is the reserved marker category whose popup text is
// collected as region details instead of being counted.
const LocationCategory = "Location"

// Defaults applied when the configuration file leaves a value empty.
const (
	DefaultRegionColor      = "#FF0000"
	DefaultLineColor        = "#0000FF"
	DefaultSatelliteTiles   = "https://mt1.google.com/vt/lyrs=y&x={x}&y={y}&z={z}"
	DefaultGeocoderEndpoint = "https://nominatim.openstreetmap.org/reverse"
	DefaultGeocoderAgent    = "geoapiExercises"
	DefaultGeocoderRate     = 1.0
	DefaultCenterLat        = 30.391638
	DefaultCenterLon        = 68.434838
	DefaultZoom             = 12
)

// Config represents the root configuration file structure.
type Config struct {
	// icon categories, in file order
	Icons IconSet `yaml:"icons" json:"icons"`
	// older config.json files keep the same mapping under ICON_URLS
	LegacyIcons IconSet `yaml:"ICON_URLS,omitempty" json:"-"`

	DataDir  string   `yaml:"data_dir,omitempty" json:"-"`
	Map      MapView  `yaml:"map,omitempty" json:"map"`
	Drawing  Drawing  `yaml:"drawing,omitempty" json:"drawing"`
	Basemap  Basemap  `yaml:"basemap,omitempty" json:"-"`
	Geocoder Geocoder `yaml:"geocoder,omitempty" json:"-"`
}

// MapView is the initial map position shown to operators.
type MapView struct {
	Lat  float64 `yaml:"lat" json:"lat"`
	Lon  float64 `yaml:"lon" json:"lon"`
	Zoom int     `yaml:"zoom" json:"zoom"`
}

// Drawing holds colors used for newly drawn and rendered shapes.
type Drawing struct {
	RegionColor string `yaml:"region_color" json:"region_color"`
	LineColor   string `yaml:"line_color" json:"line_color"`
}

// Basemap describes the satellite tile source and the cached area.
type Basemap struct {
	Satellite string `yaml:"satellite"`
	TileDir   string `yaml:"tile_dir"`
	// minLon, minLat, maxLon, maxLat
	Bounds   [4]float64 `yaml:"bounds"`
	MinZoom  int        `yaml:"min_zoom"`
	MaxZoom  int        `yaml:"max_zoom"`
	TileSize int        `yaml:"tile_size"`
}

// Geocoder configures reverse lookups of coordinates to place names.
type Geocoder struct {
	Endpoint  string        `yaml:"endpoint"`
	UserAgent string        `yaml:"user_agent"`
	Language  string        `yaml:"language"`
	Redis     string        `yaml:"redis"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	Disabled  bool          `yaml:"disabled"`

	// FailureTTL is how long a position that failed to resolve answers
	// with the placeholder before it is looked up again.
	FailureTTL time.Duration `yaml:"failure_ttl"`

	// RateLimit caps resolver requests per second.
	RateLimit float64 `yaml:"rate_limit"`
}

// Load reads and parses the YAML configuration file from the specified path.
// JSON files are accepted as well.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes configuration bytes, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills every empty setting with its default.
func (c *Config) ApplyDefaults() {
	if len(c.Icons) == 0 && len(c.LegacyIcons) > 0 {
		c.Icons = c.LegacyIcons
	}
	c.LegacyIcons = nil

	if c.DataDir == "" {
		c.DataDir = "."
	}

	if c.Map.Lat == 0 && c.Map.Lon == 0 {
		c.Map.Lat, c.Map.Lon = DefaultCenterLat, DefaultCenterLon
	}
	if c.Map.Zoom <= 0 {
		c.Map.Zoom = DefaultZoom
	}

	if c.Drawing.RegionColor == "" {
		c.Drawing.RegionColor = DefaultRegionColor
	}
	if c.Drawing.LineColor == "" {
		c.Drawing.LineColor = DefaultLineColor
	}

	if c.Basemap.Satellite == "" {
		c.Basemap.Satellite = DefaultSatelliteTiles
	}
	if c.Basemap.TileDir == "" {
		c.Basemap.TileDir = "tiles"
	}
	if c.Basemap.Bounds == [4]float64{} {
		c.Basemap.Bounds = [4]float64{c.Map.Lon - 0.1, c.Map.Lat - 0.1, c.Map.Lon + 0.1, c.Map.Lat + 0.1}
	}
	if c.Basemap.MinZoom <= 0 {
		c.Basemap.MinZoom = 10
	}
	if c.Basemap.MaxZoom <= 0 {
		c.Basemap.MaxZoom = 16
	}
	if c.Basemap.TileSize <= 0 {
		c.Basemap.TileSize = 256
	}

	if c.Geocoder.Endpoint == "" {
		c.Geocoder.Endpoint = DefaultGeocoderEndpoint
	}
	if c.Geocoder.UserAgent == "" {
		c.Geocoder.UserAgent = DefaultGeocoderAgent
	}
	if c.Geocoder.Timeout <= 0 {
		c.Geocoder.Timeout = 5 * time.Second
	}
	if c.Geocoder.CacheSize <= 0 {
		c.Geocoder.CacheSize = 1024
	}
	if c.Geocoder.CacheTTL <= 0 {
		c.Geocoder.CacheTTL = 24 * time.Hour
	}
	if c.Geocoder.FailureTTL <= 0 {
		c.Geocoder.FailureTTL = time.Minute
	}
	if c.Geocoder.RateLimit <= 0 {
		c.Geocoder.RateLimit = DefaultGeocoderRate
	}
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Icons) == 0 {
		errs = append(errs, "icons: at least one category is required")
	}
	seen := make(map[string]bool, len(c.Icons))
	for _, icon := range c.Icons {
		if icon.Name == "" {
			errs = append(errs, "icons: category name must not be empty")
			continue
		}
		if seen[icon.Name] {
			errs = append(errs, fmt.Sprintf("icons: duplicate category %q", icon.Name))
		}
		seen[icon.Name] = true
	}

	if c.Map.Lat < -90 || c.Map.Lat > 90 {
		errs = append(errs, fmt.Sprintf("map.lat must be within [-90, 90], got %v", c.Map.Lat))
	}
	if c.Map.Lon < -180 || c.Map.Lon > 180 {
		errs = append(errs, fmt.Sprintf("map.lon must be within [-180, 180], got %v", c.Map.Lon))
	}

	b := c.Basemap.Bounds
	if b[0] >= b[2] || b[1] >= b[3] {
		errs = append(errs, fmt.Sprintf("basemap.bounds must be [minLon, minLat, maxLon, maxLat], got %v", b))
	}
	if c.Basemap.MinZoom > c.Basemap.MaxZoom {
		errs = append(errs, fmt.Sprintf("basemap.min_zoom %d exceeds max_zoom %d", c.Basemap.MinZoom, c.Basemap.MaxZoom))
	}
	if c.Basemap.MaxZoom > 22 {
		errs = append(errs, fmt.Sprintf("basemap.max_zoom must be at most 22, got %d", c.Basemap.MaxZoom))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
