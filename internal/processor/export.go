// Package processor builds derived artifacts from the annotation data: the
// satellite tile cache and standard GeoJSON exports.
package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/woozymasta/geopro/internal/annotation"
	"github.com/woozymasta/geopro/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Feature kinds written to the "kind" property of exported features.
const (
	KindMarker = "Marker"
	KindRegion = "Region"
	KindLine   = "Line"
)

// BuildGeoJSON converts markers and shapes into one standard feature
// collection: markers become Points, regions Polygons and lines LineStrings.
// Shapes of unknown type are skipped.
func BuildGeoJSON(col annotation.Collection) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, m := range col.Markers {
		f := geojson.NewFeature(m.Point())
		if m.ID != "" {
			f.ID = m.ID
		}
		f.Properties["kind"] = KindMarker
		f.Properties["icon_name"] = m.Category
		f.Properties["icon_url"] = m.IconURL
		f.Properties["popup_text"] = m.PopupText
		fc.Append(f)
	}

	for i, s := range col.Shapes.Features {
		var g orb.Geometry
		switch s.Geometry.Type.Kind() {
		case geo.Region:
			g = orb.Polygon(s.Geometry.Rings)
		case geo.Line:
			g = s.Geometry.Path
		default:
			log.Warn().
				Int("index", i).
				Str("type", string(s.Geometry.Type)).
				Msg("Skipping shape with unsupported geometry")
			continue
		}

		f := geojson.NewFeature(g)
		f.ID = annotation.ShapeKey(i, s)
		for k, v := range s.Properties.Extra {
			f.Properties[k] = v
		}
		f.Properties["kind"] = string(s.Geometry.Type.Kind())
		f.Properties["label"] = string(s.Geometry.Type)
		if s.Properties.Color != "" {
			f.Properties["color"] = s.Properties.Color
		}
		if s.Properties.Description != "" {
			f.Properties["description"] = s.Properties.Description
		}
		fc.Append(f)
	}

	return fc
}

// Encode writes the collection as indented json or as yaml.
func Encode(w io.Writer, fc *geojson.FeatureCollection, format string) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}

	switch format {
	case "", "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err = w.Write(buf.Bytes())
		return err

	case "yaml":
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()

	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// SaveExport writes the collection to path, creating parent directories.
func SaveExport(path string, fc *geojson.FeatureCollection, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return Encode(f, fc, format)
}
