package probe

import (
	"fmt"
	"math/rand"
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// ICMPPinger probes a host with ICMP echo. Requires raw-socket privileges;
// offered as an alternate probe transport for servers without a websocket
// endpoint.
type ICMPPinger struct {
	ip        net.IP
	conn      *icmp.PacketConn
	id        int
	seq       uint16
	proto     int
	echoType  icmp.Type
	replyType icmp.Type
}

// NewICMPPinger resolves host and opens an ICMP socket for its address
// family. Resolution or socket failure wraps ErrConnection.
func NewICMPPinger(host string) (*ICMPPinger, error) {
	addr, err := net.ResolveIPAddr("ip", host)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrConnection, host, err)
	}
	ip := addr.IP

	network := "ip4:icmp"
	proto := 1
	echoType := icmp.Type(ipv4.ICMPTypeEcho)
	replyType := icmp.Type(ipv4.ICMPTypeEchoReply)
	if ip.To4() == nil {
		network = "ip6:ipv6-icmp"
		proto = 58
		echoType = icmp.Type(ipv6.ICMPTypeEchoRequest)
		replyType = icmp.Type(ipv6.ICMPTypeEchoReply)
	}

	conn, err := icmp.ListenPacket(network, "")
	if err != nil {
		return nil, fmt.Errorf("%w: icmp socket: %v", ErrConnection, err)
	}

	return &ICMPPinger{
		ip:        ip,
		conn:      conn,
		id:        rand.Intn(0xffff),
		proto:     proto,
		echoType:  echoType,
		replyType: replyType,
	}, nil
}

// Ping sends one echo request and waits for the matching reply.
func (p *ICMPPinger) Ping(timeout time.Duration) (time.Duration, error) {
	p.seq++
	msg := icmp.Message{
		Type: p.echoType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  int(p.seq),
			Data: []byte("netgauge"),
		},
	}
	payload, err := msg.Marshal(nil)
	if err != nil {
		return 0, err
	}

	dst := &net.IPAddr{IP: p.ip}
	start := time.Now()
	if _, err := p.conn.WriteTo(payload, dst); err != nil {
		return 0, err
	}
	if err := p.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := p.conn.ReadFrom(buf)
		if err != nil {
			return 0, err
		}
		if ipAddr, ok := peer.(*net.IPAddr); ok && ipAddr.IP != nil && !ipAddr.IP.Equal(p.ip) {
			continue
		}
		parsed, err := icmp.ParseMessage(p.proto, buf[:n])
		if err != nil {
			continue
		}
		if parsed.Type != p.replyType {
			continue
		}
		echo, ok := parsed.Body.(*icmp.Echo)
		if !ok {
			continue
		}
		if echo.ID == p.id && echo.Seq == int(p.seq) {
			return time.Since(start), nil
		}
	}
}

func (p *ICMPPinger) Close() error {
	return p.conn.Close()
}
