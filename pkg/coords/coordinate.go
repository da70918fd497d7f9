package coords

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// Coordinate is a location that decodes from either a coordinate string or a
// {"lat", "lon"} object, in JSON and YAML alike. It always encodes as an object.
type Coordinate struct {
	geo.Location
}

// Of wraps a location
func Of(loc geo.Location) Coordinate {
	return Coordinate{Location: loc}
}

// Locations unwraps a coordinate list
func Locations(cs []Coordinate) []geo.Location {
	if cs == nil {
		return nil
	}
	out := make([]geo.Location, len(cs))
	for i, c := range cs {
		out[i] = c.Location
	}
	return out
}

// Coordinates wraps a location list
func Coordinates(locs []geo.Location) []Coordinate {
	if locs == nil {
		return nil
	}
	out := make([]Coordinate, len(locs))
	for i, l := range locs {
		out[i] = Of(l)
	}
	return out
}

// MarshalJSON encodes the coordinate as {"lat", "lon"}
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Location)
}

// UnmarshalJSON accepts a coordinate string or a {"lat", "lon"} object
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return c.set(s)
	}

	var loc geo.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return fmt.Errorf("decoding coordinate: %w", err)
	}
	return c.setLocation(loc)
}

// UnmarshalYAML accepts a coordinate string or a lat/lon mapping
func (c *Coordinate) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return c.set(value.Value)
	}

	var raw struct {
		Lat float64 `yaml:"lat"`
		Lon float64 `yaml:"lon"`
	}
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decoding coordinate at line %d: %w", value.Line, err)
	}
	return c.setLocation(geo.Location{Latitude: raw.Lat, Longitude: raw.Lon})
}

func (c *Coordinate) set(s string) error {
	loc, err := Parse(s)
	if err != nil {
		return err
	}
	c.Location = loc
	return nil
}

func (c *Coordinate) setLocation(loc geo.Location) error {
	if !loc.Valid() {
		return fmt.Errorf("coordinates out of range: lat=%f, lon=%f", loc.Latitude, loc.Longitude)
	}
	c.Location = loc
	return nil
}
