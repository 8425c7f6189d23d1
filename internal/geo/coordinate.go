// Package geo holds the observer coordinate and the sources that supply it.
package geo

import (
	"context"
	"fmt"
	"math"
)

// MaterialChangeDegrees is the smallest movement, in degrees on either axis,
// that invalidates cached sun times. Roughly a kilometre at mid latitudes.
const MaterialChangeDegrees = 0.01

// Default is used whenever no location has been granted (San Diego, CA)
var Default = Coordinate{Latitude: 32.7157, Longitude: -117.1611}

// Coordinate is a WGS84 latitude/longitude pair in degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
}

// Validate checks that both axes are finite and in range
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %v", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %v", c.Longitude)
	}
	return nil
}

// OrDefault returns c when valid, otherwise Default
func (c Coordinate) OrDefault() Coordinate {
	if c.Validate() != nil {
		return Default
	}
	return c
}

// MovedMaterially reports whether next differs from c enough to recompute sun times
func (c Coordinate) MovedMaterially(next Coordinate) bool {
	return math.Abs(c.Latitude-next.Latitude) >= MaterialChangeDegrees ||
		math.Abs(c.Longitude-next.Longitude) >= MaterialChangeDegrees
}

// String formats the coordinate for logs
func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Source supplies the observer location. Implementations may block on I/O.
type Source interface {
	Locate(ctx context.Context) (Coordinate, error)
}

// StaticSource always answers with the same coordinate
type StaticSource struct {
	Coordinate Coordinate
}

// Locate returns the configured coordinate, or Default when it is invalid
func (s StaticSource) Locate(ctx context.Context) (Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return Coordinate{}, err
	}
	return s.Coordinate.OrDefault(), nil
}
