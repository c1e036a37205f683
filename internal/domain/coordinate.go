package domain

import (
	"errors"
	"fmt"
)

// HRDPS continental coverage envelope, decimal degrees.
const (
	CoverageMinLat = 40.0
	CoverageMaxLat = 85.0
	CoverageMinLon = -145.0
	CoverageMaxLon = -50.0
)

// ErrOutOfCoverage reports a coordinate outside the HRDPS coverage envelope.
var ErrOutOfCoverage = errors.New("coordinates outside HRDPS coverage area")

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewCoordinate validates lat/lon against the coverage envelope. Validation
// happens once here; resolver and classifier assume in-coverage input.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lon: lon}
	if !c.InCoverage() {
		return Coordinate{}, fmt.Errorf("%w: lat=%g lon=%g", ErrOutOfCoverage, lat, lon)
	}
	return c, nil
}

// InCoverage reports whether the coordinate lies inside the HRDPS envelope.
func (c Coordinate) InCoverage() bool {
	return c.Lat >= CoverageMinLat && c.Lat <= CoverageMaxLat &&
		c.Lon >= CoverageMinLon && c.Lon <= CoverageMaxLon
}

// String renders the coordinate for logs and audit message keys.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}
