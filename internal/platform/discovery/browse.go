package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
)

// Service is one advertised API found on the network.
type Service struct {
	Instance string
	Host     string
	Port     int
	Path     string
	Addrs    []net.IP
}

// BaseURL returns the API root, preferring an IPv4 address.
func (s Service) BaseURL() string {
	host := s.Host
	if len(s.Addrs) > 0 {
		host = s.Addrs[0].String()
	}
	return "http://" + net.JoinHostPort(strings.TrimSuffix(host, "."), strconv.Itoa(s.Port)) + s.Path
}

// Browse collects advertised services until ctx is done.
func Browse(ctx context.Context) ([]Service, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	var found []Service
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return found, nil
			}
			found = append(found, serviceFromEntry(e))
		case <-ctx.Done():
			return found, nil
		}
	}
}

func serviceFromEntry(e *zeroconf.ServiceEntry) Service {
	s := Service{
		Instance: e.Instance,
		Host:     e.HostName,
		Port:     e.Port,
		Path:     "/api",
	}
	s.Addrs = append(s.Addrs, e.AddrIPv4...)
	s.Addrs = append(s.Addrs, e.AddrIPv6...)
	for _, kv := range e.Text {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "path":
			s.Path = v
		case "host":
			if s.Host == "" {
				s.Host = v
			}
		}
	}
	return s
}
