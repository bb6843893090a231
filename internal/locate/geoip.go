// Package locate answers the "current position" query on the server side
// by resolving the client address against a MaxMind City database.
package locate

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/woozymasta/ecoleta/internal/geo"
)

// ErrUnknownLocation is returned for addresses without coordinates (private ranges, unknown blocks).
var ErrUnknownLocation = errors.New("location unknown")

// cityReader is the subset of *geoip2.Reader used here.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// GeoIP resolves IP addresses to positions.
type GeoIP struct {
	db cityReader
}

// Open loads the City database at path.
func Open(path string) (*GeoIP, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}

	return &GeoIP{db: db}, nil
}

// Close releases the database.
func (g *GeoIP) Close() error {
	return g.db.Close()
}

// Lookup returns the position of ip.
func (g *GeoIP) Lookup(ip net.IP) (geo.Position, error) {
	if ip == nil {
		return geo.Position{}, ErrUnknownLocation
	}

	rec, err := g.db.City(ip)
	if err != nil {
		return geo.Position{}, err
	}

	pos := geo.Position{Latitude: rec.Location.Latitude, Longitude: rec.Location.Longitude}
	if pos.IsZero() {
		return geo.Position{}, ErrUnknownLocation
	}

	return pos, nil
}

// For returns a single-shot lookup of remoteAddr ("host:port" or bare host)
// shaped like a current-position query.
func (g *GeoIP) For(remoteAddr string) func(context.Context) (geo.Position, error) {
	return func(ctx context.Context) (geo.Position, error) {
		if err := ctx.Err(); err != nil {
			return geo.Position{}, err
		}
		return g.Lookup(ParseIP(remoteAddr))
	}
}

// ParseIP extracts the IP of a RemoteAddr-like value.
func ParseIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	return net.ParseIP(host)
}
