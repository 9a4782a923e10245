package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
)

const (
	// ServiceType is the mDNS service type announced for every ingest port
	ServiceType = "_iridium._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for service discovery
	DefaultScanTimeout = 5 * time.Second

	// StationKey is the TXT record key carrying the station name
	StationKey = "station"
)

// Announcement holds the registered mDNS services of one server
type Announcement struct {
	servers []*zeroconf.Server
}

// Announce registers one service per port. The instance name is suffixed
// with the station name so every port gets a unique instance.
func Announce(instance string, ports []int, station func(port int) string) (*Announcement, error) {
	a := &Announcement{}

	for _, port := range ports {
		name := station(port)
		txt := []string{
			StationKey + "=" + name,
			fmt.Sprintf("port=%d", port),
		}

		server, err := zeroconf.Register(instance+"-"+name, ServiceType, ServiceDomain, port, txt, nil)
		if err != nil {
			a.Shutdown()
			return nil, fmt.Errorf("failed to announce port %d: %w", port, err)
		}
		a.servers = append(a.servers, server)

		logging.Debug("Announced ingest port",
			zap.String("instance", instance+"-"+name),
			zap.String("station", name),
			zap.Int("port", port),
		)
	}

	return a, nil
}

// Shutdown withdraws all announced services
func (a *Announcement) Shutdown() {
	for _, s := range a.servers {
		s.Shutdown()
	}
	a.servers = nil
}

// Scanner browses for announced ingest servers
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan collects every service answering within the timeout, sorted by station
func (s *Scanner) Scan(ctx context.Context) ([]*Service, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	services := make([]*Service, 0)
	collected := make(chan struct{})

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// The resolver closes entries once ctx is done
	go func() {
		defer close(collected)
		seen := make(map[string]bool)
		for entry := range entries {
			svc := parseServiceEntry(entry)
			if svc == nil || seen[svc.Instance] {
				continue
			}
			seen[svc.Instance] = true
			services = append(services, svc)
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-collected

	sort.Slice(services, func(i, j int) bool {
		if services[i].Station != services[j].Station {
			return services[i].Station < services[j].Station
		}
		return services[i].Addr() < services[j].Addr()
	})

	return services, nil
}

// ErrStationNotFound is returned by FindStation when nothing answered in time
var ErrStationNotFound = errors.New("station not found")

// FindStation waits for the service of one station
func (s *Scanner) FindStation(ctx context.Context, station string) (*Service, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Service, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			svc := parseServiceEntry(entry)
			if svc != nil && svc.Station == station {
				select {
				case found <- svc:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	select {
	case svc := <-found:
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrStationNotFound, station)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Service.
// Returns nil for entries without an address or a station TXT record.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Service {
	if entry == nil || entry.Port == 0 {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	station := metadata[StationKey]
	if station == "" {
		return nil
	}

	return &Service{
		Instance:     entry.Instance,
		Station:      station,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
