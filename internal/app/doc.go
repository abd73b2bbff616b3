// Package app wires the attendance service together: configuration,
// logging, OpenTelemetry providers, the websocket hub, the attendance and
// health services, and the chi router, then runs the HTTP server until
// interrupted.
//
// # Initialization Flow
//
//	1. Load configuration from environment and files
//	2. Initialize logging and observability
//	3. Start the websocket hub and create business and runtime metrics
//	4. Build services with their dependencies
//	5. Assemble the router and HTTP server
//
// The router splits middleware into two tiers: /ws gets only request ID,
// real IP and trace handling so the upgrade succeeds, while the /api group
// carries the full chain (OTel, logging, recovery, secure headers, CORS,
// rate limiting, per-group timeouts).
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks until SIGINT or SIGTERM, then shuts down in order: connected
// websocket clients are told the service is stopping, in-flight requests
// drain within the shutdown timeout, the hub closes its clients, the
// runtime metrics collector stops, telemetry providers flush, and the log
// file closes last.
//
// Initialization errors are returned, not fatal-logged, so main controls
// the exit path.
package app
