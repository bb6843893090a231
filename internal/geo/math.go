package geo

import (
	"fmt"
	"math"
)

// MaxMercatorLat is the latitude limit of the Web Mercator projection used by map tiles.
const MaxMercatorLat = 85.05112878

// Position is a WGS84 coordinate pair.
type Position struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// IsZero reports whether p is the unset (0,0) position.
func (p Position) IsZero() bool {
	return p.Latitude == 0 && p.Longitude == 0
}

// String implements fmt.Stringer.
func (p Position) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Latitude, p.Longitude)
}

// Normalize clamps latitude to the Mercator range and wraps longitude into [-180, 180).
// Leaflet reports clicks on a wrapped world with longitudes outside that range.
func Normalize(p Position) (Position, error) {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
		math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return Position{}, fmt.Errorf("invalid coordinates %v", p)
	}

	lat := p.Latitude
	if lat > MaxMercatorLat {
		lat = MaxMercatorLat
	} else if lat < -MaxMercatorLat {
		lat = -MaxMercatorLat
	}

	lon := p.Longitude
	if lon < -180 || lon >= 180 {
		lon = math.Mod(lon+180, 360)
		if lon < 0 {
			lon += 360
		}
		lon -= 180
	}

	return Position{Latitude: lat, Longitude: lon}, nil
}
