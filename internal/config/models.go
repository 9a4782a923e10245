package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
)

// CurrentVersion is the only config file version this build understands
const CurrentVersion = 1

// UnknownStation is reported for ports that have no station assigned
const UnknownStation = "unknown"

// Config represents the entire server configuration file.
type Config struct {
	Version           int            `yaml:"version"`
	ListenHost        string         `yaml:"listen_host"`         // Interface to bind, empty for all
	Ports             []int          `yaml:"ports"`               // One listener per port
	Stations          map[int]string `yaml:"stations,omitempty"`  // Port to station name
	HeartbeatInterval time.Duration  `yaml:"heartbeat_interval"`  // 0 disables the alive message
	ReadTimeout       time.Duration  `yaml:"read_timeout"`        // Idle timeout per connection
	MaxConnections    int            `yaml:"max_connections"`     // Concurrent connections per port
	LogLevel          string         `yaml:"log_level,omitempty"` // debug, info, warn, error
	LogFile           string         `yaml:"log_file,omitempty"`  // Additional log output
	Database          string         `yaml:"database,omitempty"`  // SQLite path, empty disables storage
	Archive           string         `yaml:"archive,omitempty"`   // bbolt path, empty disables the raw archive
	HTTPAddr          string         `yaml:"http_addr,omitempty"` // API listen address, empty disables it
	MDNS              bool           `yaml:"mdns"`                // Announce listeners over mDNS
}

// DefaultPorts are used when neither the file nor the command line names any
var DefaultPorts = []int{2001, 2002, 2003}

// DefaultStations is the deployed port assignment.
func DefaultStations() map[int]string {
	return map[int]string{
		2100: "Nahuelbuta",
		2101: "Santa_Gracia",
		2102: "Pan_de_Azucar",
		2103: "La_Campana",
		2104: "Wanne_Tuebingen",
		2001: "test1",
		2200: "test2",
	}
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Version:           CurrentVersion,
		Ports:             append([]int(nil), DefaultPorts...),
		Stations:          DefaultStations(),
		HeartbeatInterval: 4 * time.Hour,
		ReadTimeout:       60 * time.Second,
		MaxConnections:    64,
		LogLevel:          "info",
	}
}

// StationName returns the station assigned to port, or UnknownStation.
func (c *Config) StationName(port int) string {
	if name, ok := c.Stations[port]; ok && name != "" {
		return name
	}
	return UnknownStation
}

// applyDefaults fills fields that an older or hand-written file left empty.
func (c *Config) applyDefaults() {
	defaults := NewConfig()

	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	if len(c.Ports) == 0 {
		c.Ports = defaults.Ports
	}
	if c.Stations == nil {
		c.Stations = defaults.Stations
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = defaults.MaxConnections
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if len(c.Ports) == 0 {
		return fmt.Errorf("no ports configured")
	}
	for _, port := range c.Ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port %d", port)
		}
	}
	for port := range c.Stations {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid station port %d", port)
		}
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.HeartbeatInterval < 0 {
		return fmt.Errorf("heartbeat_interval must not be negative, got %s", c.HeartbeatInterval)
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be at least 1, got %d", c.MaxConnections)
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// ParsePorts parses a colon separated port list such as "2001:2002:2003".
// Entries that are not valid ports are skipped; the result is sorted and
// free of duplicates. An input without any valid port yields DefaultPorts.
func ParsePorts(s string) []int {
	seen := make(map[int]bool)
	var ports []int

	for _, field := range strings.Split(s, ":") {
		port, err := strconv.ParseUint(strings.TrimSpace(field), 10, 16)
		if err != nil || port == 0 {
			continue
		}
		if !seen[int(port)] {
			seen[int(port)] = true
			ports = append(ports, int(port))
		}
	}

	if len(ports) == 0 {
		return append([]int(nil), DefaultPorts...)
	}

	sort.Ints(ports)
	return ports
}

// FormatPorts is the inverse of ParsePorts
func FormatPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ":")
}
