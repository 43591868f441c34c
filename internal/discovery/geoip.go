package discovery

import (
	"fmt"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Coordinates is a client position used for distance ranking.
type Coordinates struct {
	Lat float64
	Lon float64
}

// GeoLocator resolves an IP address to coordinates using a local
// MaxMind city database.
type GeoLocator struct {
	reader *maxminddb.Reader
}

func OpenGeoLocator(path string) (*GeoLocator, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &GeoLocator{reader: reader}, nil
}

func (g *GeoLocator) Locate(ip net.IP) (Coordinates, error) {
	var record struct {
		Location struct {
			Latitude  float64 `maxminddb:"latitude"`
			Longitude float64 `maxminddb:"longitude"`
		} `maxminddb:"location"`
	}
	if err := g.reader.Lookup(ip, &record); err != nil {
		return Coordinates{}, fmt.Errorf("geoip lookup %s: %w", ip, err)
	}
	return Coordinates{
		Lat: record.Location.Latitude,
		Lon: record.Location.Longitude,
	}, nil
}

func (g *GeoLocator) Close() error {
	return g.reader.Close()
}
