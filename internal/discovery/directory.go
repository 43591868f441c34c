package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/NodePath81/netgauge/internal/util"
)

// ErrNoServers means discovery produced an empty candidate set.
var ErrNoServers = errors.New("no servers available")

const directoryTimeout = 10 * time.Second

// Client talks to the public server directory API.
type Client struct {
	base   string
	http   *http.Client
	logger util.Logger
}

func NewClient(baseURL string, logger util.Logger) *Client {
	return &Client{
		base:   baseURL,
		http:   &http.Client{Timeout: directoryTimeout},
		logger: logger,
	}
}

// Servers fetches the full directory listing.
func (c *Client) Servers(ctx context.Context) ([]Server, error) {
	var servers []Server
	if err := c.getJSON(ctx, c.base+"/servers", &servers); err != nil {
		return nil, fmt.Errorf("fetch server directory: %w", err)
	}
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	c.logger.Debug("fetched server directory", "count", len(servers))
	return servers, nil
}

// PublicIP asks the directory which address our requests arrive from.
func (c *Client) PublicIP(ctx context.Context) (net.IP, error) {
	var body struct {
		IP string `json:"ip"`
	}
	if err := c.getJSON(ctx, c.base+"/ip", &body); err != nil {
		return nil, fmt.Errorf("fetch public ip: %w", err)
	}
	ip := net.ParseIP(body.IP)
	if ip == nil {
		return nil, fmt.Errorf("directory returned unparseable ip %q", body.IP)
	}
	return ip, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
