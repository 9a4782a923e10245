package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/willi-kappler/iridium-weatherstation/internal/api"
	"github.com/willi-kappler/iridium-weatherstation/internal/archive"
	"github.com/willi-kappler/iridium-weatherstation/internal/config"
	"github.com/willi-kappler/iridium-weatherstation/internal/discovery"
	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
	"github.com/willi-kappler/iridium-weatherstation/internal/metrics"
	"github.com/willi-kappler/iridium-weatherstation/internal/server"
	"github.com/willi-kappler/iridium-weatherstation/internal/storage"
)

// Serve command flags
var (
	servePorts          string
	serveHost           string
	serveHTTP           string
	serveMDNS           bool
	serveHeartbeat      time.Duration
	serveReadTimeout    time.Duration
	serveMaxConnections int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingest server",
	Long: `Start listening for logger connections on the configured ports.

Flags override the values from the config file. Without a database the
records are only logged.`,
	Example: `  # Listen on the default ports and only log records
  iridium-server serve

  # Listen on the station ports, store records and serve the API
  iridium-server serve --ports 2100:2101:2102:2103:2104 --database iridium.db --http :8080

  # Keep raw messages for later replay and announce the ports over mDNS
  iridium-server serve --archive archive.db --mdns --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePorts, "ports", "", "Colon separated ports, e.g. 2100:2101:2102")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Interface to listen on (empty = all interfaces)")
	serveCmd.Flags().StringVar(&serveHTTP, "http", "", "API listen address, e.g. :8080 (empty = disabled)")
	serveCmd.Flags().BoolVar(&serveMDNS, "mdns", false, "Announce the listening ports over mDNS")
	serveCmd.Flags().DurationVar(&serveHeartbeat, "heartbeat", 0, "Interval of the alive log message (0 = disabled)")
	serveCmd.Flags().DurationVar(&serveReadTimeout, "read-timeout", 0, "Drop connections idle for this long")
	serveCmd.Flags().IntVar(&serveMaxConnections, "max-connections", 0, "Concurrent connections per port")
}

func serveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("ports") {
		cfg.Ports = config.ParsePorts(servePorts)
	}
	if flags.Changed("host") {
		cfg.ListenHost = serveHost
	}
	if flags.Changed("http") {
		cfg.HTTPAddr = serveHTTP
	}
	if flags.Changed("mdns") {
		cfg.MDNS = serveMDNS
	}
	if flags.Changed("heartbeat") {
		cfg.HeartbeatInterval = serveHeartbeat
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout = serveReadTimeout
	}
	if flags.Changed("max-connections") {
		cfg.MaxConnections = serveMaxConnections
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := serveConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logging.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	var sinks storage.Multi

	var store *storage.Store
	if cfg.Database != "" {
		store, err = storage.Open(storage.Config{Path: cfg.Database})
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
	} else {
		logging.Warn("No database configured, records are only logged")
		sinks = append(sinks, storage.LogSink{})
	}

	var hub *api.Hub
	if cfg.HTTPAddr != "" {
		hub = api.NewHub(m)
		sinks = append(sinks, hub)
	}

	handler := &server.Handler{
		Sink:        sinks,
		Stations:    cfg.StationName,
		Metrics:     m,
		ReadTimeout: cfg.ReadTimeout,
		Stats:       &server.Stats{},
	}

	if cfg.Archive != "" {
		a, err := archive.Open(cfg.Archive)
		if err != nil {
			return err
		}
		defer a.Close()
		handler.Archive = a
	}

	srv, err := server.New(&server.Config{
		Host:           cfg.ListenHost,
		Ports:          cfg.Ports,
		MaxConnections: cfg.MaxConnections,
	}, handler)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	if cfg.HTTPAddr != "" {
		opts := api.Options{Hub: hub, Metrics: m, Stations: cfg.Stations}
		if store != nil {
			opts.Store = store
		}
		apiServer := api.NewServer(opts)
		go func() {
			if err := apiServer.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
				logging.Error("API server failed", zap.Error(err))
			}
		}()
	}

	if cfg.MDNS {
		announcement, err := discovery.Announce("iridium", boundPorts(srv), cfg.StationName)
		if err != nil {
			logging.Error("mDNS announcement failed", zap.Error(err))
		} else {
			defer announcement.Shutdown()
		}
	}

	go srv.RunHeartbeat(ctx, cfg.HeartbeatInterval)

	return srv.Serve(ctx)
}

func boundPorts(srv *server.Server) []int {
	var ports []int
	for _, addr := range srv.Addrs() {
		if tcp, ok := addr.(*net.TCPAddr); ok {
			ports = append(ports, tcp.Port)
		}
	}
	return ports
}
