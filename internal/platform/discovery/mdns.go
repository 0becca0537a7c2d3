// Package discovery advertises the API on the local network over mDNS so
// that kiosks and the garde CLI can find the server without configuration.
package discovery

import (
	"fmt"
	"os"
	"strings"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"
)

const (
	ServiceType = "_pharmagarde._tcp"
	Domain      = "local."
)

// Advertiser owns a running mDNS registration.
type Advertiser struct {
	server *zeroconf.Server
	logger zerolog.Logger
}

// Advertise registers instance on port. apiPath is published in the TXT
// record so clients can build the base URL.
func Advertise(instance string, port int, apiPath string, logger zerolog.Logger) (*Advertiser, error) {
	if port <= 0 {
		return nil, fmt.Errorf("invalid port %d", port)
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "pharmagarde"
	}

	name := SanitizeInstance(instance)
	txt := TXTRecords(port, apiPath, hostname)
	server, err := zeroconf.Register(name, ServiceType, Domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}

	logger = logger.With().Str("component", "mdns").Logger()
	logger.Info().Str("instance", name).Int("port", port).Msg("mDNS advertisement started")
	return &Advertiser{server: server, logger: logger}, nil
}

func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.logger.Info().Msg("mDNS advertisement stopped")
}

// TXTRecords lists the key=value pairs published with the service.
func TXTRecords(port int, apiPath, hostname string) []string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	if host != "" && !strings.Contains(host, ".") {
		host += ".local"
	}
	return []string{
		fmt.Sprintf("http_port=%d", port),
		"path=" + apiPath,
		"proto=v1",
		"host=" + host,
	}
}

// SanitizeInstance turns name into a valid DNS-SD instance label.
func SanitizeInstance(name string) string {
	cleaned := strings.TrimSpace(name)
	cleaned = strings.NewReplacer("\n", " ", "\r", " ", ".", " ", "_", " ").Replace(cleaned)
	if cleaned == "" {
		cleaned = "Pharma Garde"
	}
	const maxLen = 63
	if runes := []rune(cleaned); len(runes) > maxLen {
		cleaned = string(runes[:maxLen])
	}
	return cleaned
}
