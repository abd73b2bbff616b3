package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
	Processing ProcessingConfig `yaml:"processing" envconfig:"PROCESSING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s" validate:"min=1"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s" validate:"min=1"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080" validate:"min=1"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	UploadsDir    string `yaml:"uploads_dir" envconfig:"UPLOADS_DIR" default:"data/uploads"`
	ResultsDir    string `yaml:"results_dir" envconfig:"RESULTS_DIR" default:"data/results"`
	ReportsDir    string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"data/reports"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// ProcessingConfig contains attendance pipeline configuration. Clock values
// are HH:MM wall-clock strings parsed by the processing package at startup.
type ProcessingConfig struct {
	ShiftStart      string        `yaml:"shift_start" envconfig:"SHIFT_START" default:"10:00"`
	GraceLimit      string        `yaml:"grace_limit" envconfig:"GRACE_LIMIT" default:"10:15"`
	FlexLimit       string        `yaml:"flex_limit" envconfig:"FLEX_LIMIT" default:"11:00"`
	GraceAllowance  int           `yaml:"grace_allowance" envconfig:"GRACE_ALLOWANCE" default:"4" validate:"min=0"`
	FlexAllowance   int           `yaml:"flex_allowance" envconfig:"FLEX_ALLOWANCE" default:"5" validate:"min=0"`
	ShortDayHours   float64       `yaml:"short_day_hours" envconfig:"SHORT_DAY_HOURS" default:"8"`
	FullDayHours    float64       `yaml:"full_day_hours" envconfig:"FULL_DAY_HOURS" default:"9"`
	AverageHoursBar float64       `yaml:"average_hours_bar" envconfig:"AVERAGE_HOURS_BAR" default:"9.5"`
	FlexForgiveness int           `yaml:"flex_forgiveness" envconfig:"FLEX_FORGIVENESS" default:"5"`
	CycleShiftDays  int           `yaml:"cycle_shift_days" envconfig:"CYCLE_SHIFT_DAYS" default:"24" validate:"min=1"`
	HeaderSkipRows  int           `yaml:"header_skip_rows" envconfig:"HEADER_SKIP_ROWS" default:"2" validate:"min=0"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"20971520" validate:"min=1"`
	UploadTimeout   time.Duration `yaml:"upload_timeout" envconfig:"UPLOAD_TIMEOUT" default:"2m"`
	// MaxStoredResults caps the results directory; zero disables pruning.
	MaxStoredResults int `yaml:"max_stored_results" envconfig:"MAX_STORED_RESULTS" default:"50" validate:"min=0"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("ATTEND", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Resolve relative paths
	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Server.ReadTimeout == 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if envConfig.Server.WriteTimeout == 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if envConfig.Logging.Level == "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if envConfig.Processing.ShiftStart == "" {
		envConfig.Processing.ShiftStart = fileConfig.Processing.ShiftStart
	}
	if envConfig.Processing.GraceLimit == "" {
		envConfig.Processing.GraceLimit = fileConfig.Processing.GraceLimit
	}
	if envConfig.Processing.FlexLimit == "" {
		envConfig.Processing.FlexLimit = fileConfig.Processing.FlexLimit
	}
	if envConfig.Processing.GraceAllowance == 0 {
		envConfig.Processing.GraceAllowance = fileConfig.Processing.GraceAllowance
	}
	if envConfig.Processing.FlexAllowance == 0 {
		envConfig.Processing.FlexAllowance = fileConfig.Processing.FlexAllowance
	}

	return envConfig
}

// resolvePaths anchors configured directories to the executable location
func (c *Config) resolvePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	c.Paths.ExecutableDir = paths.ExecutableDir
	return nil
}

var validate = validator.New()

// validate checks the configuration against its struct constraints. Logging
// values are coerced to safe defaults rather than rejected so a typo in an
// env var cannot keep the server from starting.
func (c *Config) validate() error {
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return fmt.Errorf("%s failed %s validation", first.Namespace(), first.Tag())
		}
		return err
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// GetLogsDir returns the resolved logs directory path
func (c *Config) GetLogsDir() string {
	if filepath.IsAbs(c.Paths.LogsDir) {
		return c.Paths.LogsDir
	}
	return filepath.Join(c.Paths.ExecutableDir, c.Paths.LogsDir)
}

// GetResultsDir returns the resolved results directory path
func (c *Config) GetResultsDir() string {
	if filepath.IsAbs(c.Paths.ResultsDir) {
		return c.Paths.ResultsDir
	}
	return filepath.Join(c.Paths.ExecutableDir, c.Paths.ResultsDir)
}

// GetUploadsDir returns the resolved uploads directory path
func (c *Config) GetUploadsDir() string {
	if filepath.IsAbs(c.Paths.UploadsDir) {
		return c.Paths.UploadsDir
	}
	return filepath.Join(c.Paths.ExecutableDir, c.Paths.UploadsDir)
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "both",
			FilePath:    "logs/app.log",
			Development: false,
		},
		Paths: PathsConfig{
			DataDir:    "data",
			UploadsDir: "data/uploads",
			ResultsDir: "data/results",
			ReportsDir: "data/reports",
			LogsDir:    "logs",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Processing: DefaultProcessingConfig(),
	}
}

// DefaultProcessingConfig returns the standard attendance policy values.
func DefaultProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		ShiftStart:       "10:00",
		GraceLimit:       "10:15",
		FlexLimit:        "11:00",
		GraceAllowance:   4,
		FlexAllowance:    5,
		ShortDayHours:    8,
		FullDayHours:     9,
		AverageHoursBar:  9.5,
		FlexForgiveness:  5,
		CycleShiftDays:   24,
		HeaderSkipRows:   2,
		MaxUploadBytes:   20 << 20, // 20MB
		UploadTimeout:    2 * time.Minute,
		MaxStoredResults: 50,
	}
}
