package discovery

import (
	"fmt"

	"github.com/NodePath81/netgauge/internal/util"
)

// Server describes one measurement endpoint from the public server
// directory. DistanceKm is filled in relative to the client once its
// coordinates are known.
type Server struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Sponsor    string  `json:"sponsor"`
	Host       string  `json:"host"`
	Port       int     `json:"port"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	DistanceKm float64 `json:"distance_km"`
}

// WSURL is the websocket ping endpoint for latency probing.
func (s Server) WSURL() string {
	return fmt.Sprintf("wss://%s/ws", util.NetJoin(s.Host, s.Port))
}

// DownloadURL is the bulk download endpoint.
func (s Server) DownloadURL() string {
	return fmt.Sprintf("https://%s/download", util.NetJoin(s.Host, s.Port))
}

// UploadURL is the bulk upload sink.
func (s Server) UploadURL() string {
	return fmt.Sprintf("https://%s/upload", util.NetJoin(s.Host, s.Port))
}

func (s Server) Label() string {
	if s.Sponsor != "" {
		return fmt.Sprintf("%s (%s)", s.Sponsor, s.Name)
	}
	return s.Name
}
