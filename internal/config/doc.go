// Package config provides centralized configuration management for the
// attendance processing system. It handles loading configuration from
// multiple sources, validation, and provides a type-safe API for accessing
// configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern ATTEND_* for namespacing:
//
//	ATTEND_SERVER_PORT=8080
//	ATTEND_LOGGING_LEVEL=info
//	ATTEND_PROCESSING_GRACE_LIMIT=10:15
//	ATTEND_PROCESSING_GRACE_ALLOWANCE=4
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	resultPath := paths.GetResultPath("attendance_final.xlsx")
//	reportPath := paths.GetReportPath("summary.csv")
//
// # Attendance Policy
//
// The ProcessingConfig section carries the attendance policy thresholds
// (shift start, grace and flex limits, per-cycle allowances, the
// average-hours override) so that policy changes never require touching
// rule logic.
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
