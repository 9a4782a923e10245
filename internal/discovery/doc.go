// Package discovery announces and finds ingest servers with mDNS.
//
// The server registers one "_iridium._tcp" service per listening port. The
// TXT record "station=<name>" tells which station's logger dials that port,
// so a field laptop on the station network can find where to point a test
// logger without knowing the configuration.
//
// # Usage Example
//
//	// Announce the configured ports
//	a, err := discovery.Announce("iridium", cfg.Ports, cfg.StationName)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Shutdown()
//
//	// Elsewhere: list what is announced
//	services, err := discovery.NewScanner().Scan(ctx)
//	for _, s := range services {
//	    fmt.Println(s)
//	}
package discovery
