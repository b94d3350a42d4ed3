package endpoint

import (
	"context"
	"net"
)

// netTransport adapts a net.Conn to Transport, adding the peer
// address Endpoint.GetPeerName needs.
type netTransport struct {
	net.Conn
}

func (t netTransport) PeerAddr() string {
	if addr := t.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// DialTCP opens a TCP connection and returns an Endpoint attached to
// it, the Go equivalent of Endpoint.connect(host, port) in the Python
// source (which drove loop.create_connection).
func DialTCP(ctx context.Context, addr string) (*Endpoint, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	ep := New()
	ep.Attach(netTransport{conn})
	return ep, nil
}

// NewNetEndpoint wraps an already-established net.Conn (e.g. one
// accepted by a listener) in an Endpoint.
func NewNetEndpoint(conn net.Conn) *Endpoint {
	ep := New()
	ep.Attach(netTransport{conn})
	return ep
}
