// Package annotation holds markers and shapes drawn over the map and keeps
// them in sync with durable storage.
package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/woozymasta/geopro/internal/geo"
)

// Marker is a categorized point annotation.
//
// Decoded markers keep unknown keys in Extra and remember which optional
// keys they were read with, so a loaded record is written back unchanged.
type Marker struct {
	// ID is empty for records written before ids were assigned.
	ID        string
	Lat       float64
	Lon       float64
	Category  string
	IconURL   string
	PopupText string
	Extra     map[string]any

	present map[string]struct{}
}

// Point returns the marker position in (lon, lat) order.
func (m Marker) Point() orb.Point {
	return orb.Point{m.Lon, m.Lat}
}

// Label is the human readable name used by delete selectors.
func (m Marker) Label() string {
	return fmt.Sprintf("%s at (%.5f, %.5f)", m.Category, m.Lat, m.Lon)
}

// keep reports whether an optional key is written: when set, when it was
// read, or for markers built in code.
func (m Marker) keep(key string, set bool) bool {
	if set || m.present == nil {
		return set || key != "id"
	}
	_, ok := m.present[key]
	return ok
}

// MarshalJSON writes lat, lon, icon_name, icon_url and popup_text
// followed by extra keys.
func (m Marker) MarshalJSON() ([]byte, error) {
	var fields []geo.Field
	if m.keep("id", m.ID != "") {
		fields = append(fields, geo.Field{Key: "id", Value: m.ID})
	}
	fields = append(fields,
		geo.Field{Key: "lat", Value: m.Lat},
		geo.Field{Key: "lon", Value: m.Lon},
		geo.Field{Key: "icon_name", Value: m.Category},
	)
	if m.keep("icon_url", m.IconURL != "") {
		fields = append(fields, geo.Field{Key: "icon_url", Value: m.IconURL})
	}
	if m.keep("popup_text", m.PopupText != "") {
		fields = append(fields, geo.Field{Key: "popup_text", Value: m.PopupText})
	}

	return geo.EncodeObject(fields, m.Extra)
}

// UnmarshalJSON requires lat, lon and icon_name to be present.
func (m *Marker) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	if members == nil {
		return errors.New("marker is null")
	}

	for _, k := range []string{"lat", "lon", "icon_name"} {
		if v, ok := members[k]; !ok || string(v) == "null" {
			return fmt.Errorf("marker %s is missing", k)
		}
	}

	out := Marker{present: make(map[string]struct{}, len(members))}
	for k, v := range members {
		out.present[k] = struct{}{}

		var err error
		switch k {
		case "id":
			err = json.Unmarshal(v, &out.ID)
		case "lat":
			err = json.Unmarshal(v, &out.Lat)
		case "lon":
			err = json.Unmarshal(v, &out.Lon)
		case "icon_name":
			err = json.Unmarshal(v, &out.Category)
		case "icon_url":
			err = json.Unmarshal(v, &out.IconURL)
		case "popup_text":
			err = json.Unmarshal(v, &out.PopupText)
		default:
			var value any
			if value, err = geo.DecodeValue(v); err == nil {
				if out.Extra == nil {
					out.Extra = make(map[string]any)
				}
				out.Extra[k] = value
			}
		}
		if err != nil {
			return fmt.Errorf("marker %s: %w", k, err)
		}
	}

	*m = out
	return nil
}

func validCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Identity addresses a marker for deletion.
//
// When both the identity and the stored marker carry an id, ids are compared.
// Otherwise the category and exact coordinates must match.
type Identity struct {
	ID       string  `json:"id,omitempty"`
	Category string  `json:"icon_name,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// IdentityOf builds the identity descriptor of m.
func IdentityOf(m Marker) Identity {
	return Identity{ID: m.ID, Category: m.Category, Lat: m.Lat, Lon: m.Lon}
}

// Matches reports whether m is addressed by the identity.
func (id Identity) Matches(m Marker) bool {
	if id.ID != "" && m.ID != "" {
		return id.ID == m.ID
	}
	return id.Category == m.Category && id.Lat == m.Lat && id.Lon == m.Lon
}

// ComposeLocationText builds the popup text of a Location marker.
func ComposeLocationText(representative, description string) string {
	return fmt.Sprintf("Representative: %s<br> %s", representative, description)
}
