package client

import (
	"context"
	"net"
	"net/url"
	"time"
)

// Connectivity reports whether the network is currently usable.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// Static is a fixed answer, used for --offline and in tests.
type Static bool

func (s Static) Online(context.Context) bool { return bool(s) }

// Probe considers the client online when a TCP connection to the API host
// succeeds within Timeout.
type Probe struct {
	Addr    string
	Timeout time.Duration
}

// NewProbe derives the address to dial from the API base URL.
func NewProbe(baseURL string, timeout time.Duration) (*Probe, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}
	return &Probe{Addr: host, Timeout: timeout}, nil
}

func (p *Probe) Online(ctx context.Context) bool {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
