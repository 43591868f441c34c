package discovery

import (
	"math"
	"sort"
)

const earthRadiusKm = 6371.0

// haversine is the great-circle distance in kilometres between two
// lat/lon points.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// AnnotateDistances fills in DistanceKm on every server relative to the
// client position and returns the slice sorted nearest first.
func AnnotateDistances(servers []Server, client Coordinates) []Server {
	for i := range servers {
		servers[i].DistanceKm = haversine(client.Lat, client.Lon, servers[i].Lat, servers[i].Lon)
	}
	sort.SliceStable(servers, func(i, j int) bool {
		return servers[i].DistanceKm < servers[j].DistanceKm
	})
	return servers
}

// Nearest returns up to n servers from an already distance-sorted list.
func Nearest(servers []Server, n int) []Server {
	if n <= 0 || n > len(servers) {
		n = len(servers)
	}
	return servers[:n]
}

// ByID finds a server by its directory ID.
func ByID(servers []Server, id int) (Server, bool) {
	for _, s := range servers {
		if s.ID == id {
			return s, true
		}
	}
	return Server{}, false
}
