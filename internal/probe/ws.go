package probe

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsGreeting    = "HI"
	wsHelloPrefix = "HELLO"
	wsPongPrefix  = "PONG"

	wsHandshakeTimeout = 5 * time.Second
)

// WSPinger probes a server over its websocket ping endpoint. The channel
// speaks the speedtest text protocol: "HI" is answered with "HELLO
// <version> ...", and "PING <unix-ms>" with "PONG <timestamp>".
//
// A broken or timed-out connection is dropped and redialed on the next
// probe, so one stalled reply never poisons later round-trip timings with
// a stale PONG.
type WSPinger struct {
	url    string
	dialer *websocket.Dialer

	mu            sync.Mutex
	conn          *websocket.Conn
	serverVersion string
	closed        bool
}

// NewWSPinger dials url and performs the greeting exchange. A dial or
// handshake failure wraps ErrConnection: the channel never came up.
func NewWSPinger(url string) (*WSPinger, error) {
	p := &WSPinger{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: wsHandshakeTimeout,
		},
	}
	if err := p.dial(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return p, nil
}

// ServerVersion reports the version string from the HELLO greeting, if
// the server sent one.
func (p *WSPinger) ServerVersion() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.serverVersion
}

// Ping sends one PING and times the matching PONG. On any error the
// underlying connection is discarded; the caller records a lost probe.
func (p *WSPinger) Ping(timeout time.Duration) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrConnection
	}
	if p.conn == nil {
		if err := p.dialLocked(); err != nil {
			return 0, err
		}
	}

	deadline := time.Now().Add(timeout)
	msg := fmt.Sprintf("PING %d", time.Now().UnixMilli())

	_ = p.conn.SetWriteDeadline(deadline)
	start := time.Now()
	if err := p.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		p.dropLocked()
		return 0, err
	}
	for {
		_ = p.conn.SetReadDeadline(deadline)
		_, payload, err := p.conn.ReadMessage()
		if err != nil {
			p.dropLocked()
			return 0, err
		}
		if strings.HasPrefix(string(payload), wsPongPrefix) {
			return time.Since(start), nil
		}
		// Unrelated server chatter; keep waiting within the deadline.
	}
}

func (p *WSPinger) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *WSPinger) dial() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dialLocked()
}

func (p *WSPinger) dialLocked() error {
	conn, _, err := p.dialer.Dial(p.url, nil)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(wsHandshakeTimeout)
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(wsGreeting)); err != nil {
		_ = conn.Close()
		return err
	}
	_ = conn.SetReadDeadline(deadline)
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if fields := strings.Fields(string(payload)); len(fields) >= 2 && fields[0] == wsHelloPrefix {
		p.serverVersion = fields[1]
	}

	_ = conn.SetWriteDeadline(time.Time{})
	p.conn = conn
	return nil
}

func (p *WSPinger) dropLocked() {
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// parsePongTimestamp extracts the server timestamp from a PONG payload.
// Kept for diagnostics; round-trip timing never trusts server clocks.
func parsePongTimestamp(payload string) (int64, bool) {
	fields := strings.Fields(payload)
	if len(fields) < 2 || fields[0] != wsPongPrefix {
		return 0, false
	}
	ts, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
