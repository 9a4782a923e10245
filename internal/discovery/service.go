package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service is an ingest server port found on the network
type Service struct {
	// Instance is the mDNS instance name (e.g., "iridium-Nahuelbuta")
	Instance string

	// Station is the station served on this port, from the TXT record
	Station string

	// Hostname is the mDNS hostname of the server
	Hostname string

	// IP is the server address, IPv4 preferred
	IP string

	// Port is the TCP port loggers of this station dial
	Port int

	// Metadata contains all TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the service was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the service
func (s *Service) String() string {
	return fmt.Sprintf("Station %s (%s) at %s", s.Station, s.Instance, s.Addr())
}

// Addr returns the host:port a logger or the send command should dial
func (s *Service) Addr() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Service) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
