// Package geo handles annotation geometry, containment tests and coordinate math.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// GeometryType is the label stored in geometry.type.
type GeometryType string

const (
	// Region is a closed polygon used for containment aggregation.
	Region GeometryType = "Region"
	// Line is an open polyline carrying descriptive text only.
	Line GeometryType = "Line"
)

// labels produced by draw tools and older data files
var kindAliases = map[GeometryType]GeometryType{
	Region:       Region,
	"Polygon":    Region,
	"Jam":        Region,
	Line:         Line,
	"LineString": Line,
	"Pipe Line":  Line,
}

// Kind resolves a stored or drawn label to Region or Line.
// Unknown labels resolve to an empty type.
func (t GeometryType) Kind() GeometryType {
	return kindAliases[t]
}

// FeatureCollection is the persisted shapes record.
type FeatureCollection struct {
	Type     string    `json:"type" yaml:"type"`
	Features []Feature `json:"features" yaml:"features"`
}

// NewFeatureCollection returns an empty collection ready to be persisted.
func NewFeatureCollection() FeatureCollection {
	return FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// Feature is a single Region or Line annotation.
//
// Decoded features remember which members they were read with: optional
// members absent from the source are not written back. Features built in
// code are written in full.
type Feature struct {
	ID         string
	Type       string
	Geometry   Geometry
	Properties Properties
	// Extra holds members other than id, type, geometry and properties.
	Extra map[string]any

	present map[string]struct{}
}

// NewFeature builds a feature of type "Feature".
func NewFeature(g Geometry, p Properties) Feature {
	return Feature{Type: "Feature", Geometry: g, Properties: p}
}

func (f Feature) keep(key string, set bool) bool {
	if set || f.present == nil {
		return set || key != "id"
	}
	_, ok := f.present[key]
	return ok
}

// MarshalJSON writes id, type, geometry and properties followed by extra members.
func (f Feature) MarshalJSON() ([]byte, error) {
	var fields []Field
	if f.keep("id", f.ID != "") {
		fields = append(fields, Field{"id", f.ID})
	}
	if f.keep("type", f.Type != "") {
		fields = append(fields, Field{"type", f.Type})
	}
	if f.keep("geometry", f.Geometry.Type != "") {
		fields = append(fields, Field{"geometry", f.Geometry})
	}
	if f.keep("properties", !f.Properties.empty()) {
		fields = append(fields, Field{"properties", f.Properties})
	}

	return EncodeObject(fields, f.Extra)
}

// UnmarshalJSON decodes a feature, keeping unknown members in Extra.
func (f *Feature) UnmarshalJSON(data []byte) error {
	members, err := decodeMembers(data)
	if err != nil {
		return err
	}
	if members == nil {
		return errors.New("feature is null")
	}

	out := Feature{present: make(map[string]struct{}, len(members))}
	for k, v := range members {
		out.present[k] = struct{}{}

		switch k {
		case "id":
			err = json.Unmarshal(v, &out.ID)
		case "type":
			err = json.Unmarshal(v, &out.Type)
		case "geometry":
			err = json.Unmarshal(v, &out.Geometry)
		case "properties":
			err = json.Unmarshal(v, &out.Properties)
		default:
			var value any
			if value, err = DecodeValue(v); err == nil {
				if out.Extra == nil {
					out.Extra = make(map[string]any)
				}
				out.Extra[k] = value
			}
		}
		if err != nil {
			return fmt.Errorf("feature %s: %w", k, err)
		}
	}

	*f = out
	return nil
}

// Geometry holds Region rings or a Line path. Coordinates are (lon, lat).
type Geometry struct {
	Type GeometryType

	// Rings is set for Region; the first ring is the outer boundary.
	Rings []orb.Ring
	// Path is set for Line.
	Path orb.LineString

	// coordinates kept verbatim: unrecognised geometry types and positions
	// carrying more than lon and lat
	raw json.RawMessage
}

type geometryJSON struct {
	Type        GeometryType    `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// MarshalJSON writes the geometry as {type, coordinates}.
func (g Geometry) MarshalJSON() ([]byte, error) {
	var coords any
	switch {
	case len(g.raw) > 0:
		coords = g.raw
	case g.Type.Kind() == Region:
		rings := g.Rings
		if rings == nil {
			rings = []orb.Ring{}
		}
		coords = rings
	case g.Type.Kind() == Line:
		path := g.Path
		if path == nil {
			path = orb.LineString{}
		}
		coords = path
	default:
		coords = []any{}
	}

	return EncodeObject([]Field{{"type", g.Type}, {"coordinates", coords}}, nil)
}

// UnmarshalJSON decodes the coordinate layout matching the geometry label.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var raw geometryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type == "" {
		return errors.New("geometry type is missing")
	}
	if len(raw.Coordinates) == 0 || isNull(raw.Coordinates) {
		return fmt.Errorf("geometry %q has no coordinates", raw.Type)
	}

	out := Geometry{Type: raw.Type}
	plain := true
	switch raw.Type.Kind() {
	case Region:
		var rings [][][]float64
		if err := json.Unmarshal(raw.Coordinates, &rings); err != nil {
			return fmt.Errorf("region coordinates: %w", err)
		}
		out.Rings = make([]orb.Ring, 0, len(rings))
		for _, r := range rings {
			ring, ok, err := toPoints(r)
			if err != nil {
				return fmt.Errorf("region coordinates: %w", err)
			}
			plain = plain && ok
			out.Rings = append(out.Rings, orb.Ring(ring))
		}
	case Line:
		var path [][]float64
		if err := json.Unmarshal(raw.Coordinates, &path); err != nil {
			return fmt.Errorf("line coordinates: %w", err)
		}
		line, ok, err := toPoints(path)
		if err != nil {
			return fmt.Errorf("line coordinates: %w", err)
		}
		plain = ok
		out.Path = orb.LineString(line)
	default:
		plain = false
	}

	if !plain {
		out.raw = append(json.RawMessage(nil), raw.Coordinates...)
	}

	*g = out
	return nil
}

// toPoints converts positions to points. It reports false when a position
// carries values beyond lon and lat.
func toPoints(positions [][]float64) ([]orb.Point, bool, error) {
	plain := true
	out := make([]orb.Point, 0, len(positions))
	for _, p := range positions {
		if len(p) < 2 {
			return nil, false, fmt.Errorf("position %v needs longitude and latitude", p)
		}
		if len(p) > 2 {
			plain = false
		}
		out = append(out, orb.Point{p[0], p[1]})
	}
	return out, plain, nil
}

// Properties are the display attributes of a feature.
// Keys other than color and description are carried in Extra.
type Properties struct {
	Color       string
	Description string
	Extra       map[string]any

	present map[string]struct{}
	null    bool
}

func (p Properties) empty() bool {
	return p.Color == "" && p.Description == "" && len(p.Extra) == 0
}

func (p Properties) has(key string) bool {
	_, ok := p.present[key]
	return ok
}

// MarshalJSON flattens known and extra keys into one object. Empty color
// and description are written only when they were read.
func (p Properties) MarshalJSON() ([]byte, error) {
	if p.null && p.empty() {
		return []byte("null"), nil
	}

	var fields []Field
	if p.Color != "" || p.has("color") {
		fields = append(fields, Field{"color", p.Color})
	}
	if p.Description != "" || p.has("description") {
		fields = append(fields, Field{"description", p.Description})
	}

	return EncodeObject(fields, p.Extra)
}

// UnmarshalJSON splits known keys from extra ones. A null object is kept
// as null.
func (p *Properties) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*p = Properties{null: true}
		return nil
	}

	members, err := decodeMembers(data)
	if err != nil {
		return err
	}

	out := Properties{present: make(map[string]struct{}, len(members))}
	for k, v := range members {
		out.present[k] = struct{}{}

		switch k {
		case "color":
			if out.Color, err = decodeString(k, v); err != nil {
				return err
			}
		case "description":
			if out.Description, err = decodeString(k, v); err != nil {
				return err
			}
		default:
			value, err := DecodeValue(v)
			if err != nil {
				return fmt.Errorf("property %s: %w", k, err)
			}
			if out.Extra == nil {
				out.Extra = make(map[string]any)
			}
			out.Extra[k] = value
		}
	}

	*p = out
	return nil
}

func decodeString(key string, v json.RawMessage) (string, error) {
	var s string
	if isNull(v) || json.Unmarshal(v, &s) != nil {
		return "", fmt.Errorf("property %s must be a string, got %s", key, v)
	}
	return s, nil
}
