package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// keyPrecision is the number of decimal digits kept by Coordinate.Key.
const keyPrecision = 7

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key returns the quantized identity of the coordinate, "{lat:.7f},{lon:.7f}".
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.*f,%.*f", keyPrecision, c.Lat, keyPrecision, c.Lon)
}

// Point returns the coordinate as an orb point (lon, lat order).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// Valid reports whether the coordinate lies within geographic bounds.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// CoordinateFromPoint converts an orb point back to a Coordinate.
func CoordinateFromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lon: p.Lon()}
}
