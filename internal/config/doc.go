// Package config provides configuration management for the iridium ingest server.
//
// The configuration is a YAML file naming the listener ports, the station
// behind each port, resource limits and the optional storage, archive, HTTP
// and mDNS components. Command line flags override file values.
//
// # Configuration File Location
//
// The default location follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/iridium/config.yaml or $HOME/.config/iridium/config.yaml
//   - macOS: $HOME/.config/iridium/config.yaml
//   - Windows: %LOCALAPPDATA%\iridium\config.yaml
//
// # Station Table
//
// Every logger dials a dedicated port, so the port is the station's identity:
//
//	stations:
//	  2100: Nahuelbuta
//	  2101: Santa_Gracia
//
// Ports without an entry are reported as "unknown".
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	name := cfg.StationName(2100)
//
// # Thread Safety
//
// A loaded Config is read-only and may be shared between goroutines.
// Save is protected by a mutex and writes atomically.
package config
