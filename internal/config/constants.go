package config

import "time"

// Application constants shared across binaries
const (
	// Application Info
	AppName    = "Attendance Pulse"
	AppVersion = "2.1.0"

	// Attendance policy defaults. The authoritative runtime values live in
	// ProcessingConfig; these exist for display and for tests that need the
	// stock policy without loading configuration.
	DefaultShiftStart      = "10:00"
	DefaultGraceLimit      = "10:15"
	DefaultFlexLimit       = "11:00"
	DefaultGraceAllowance  = 4
	DefaultFlexAllowance   = 5
	DefaultShortDayHours   = 8.0
	DefaultFullDayHours    = 9.0
	DefaultAverageHoursBar = 9.5
	DefaultFlexForgiveness = 5
	DefaultCycleShiftDays  = 24

	// Upload handling
	DefaultHeaderSkipRows = 2
	DefaultMaxUploadBytes = 20 << 20 // 20MB
	DefaultWorkbookName   = "attendance_final.xlsx"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout      = 30 * time.Second
	UploadProcessingTimeout = 2 * time.Minute
	WebSocketPingPeriod     = 30 * time.Second
	WebSocketPongWait       = 60 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultUploadsDir = "data/uploads"
	DefaultResultsDir = "data/results"
	DefaultReportsDir = "data/reports"
)
