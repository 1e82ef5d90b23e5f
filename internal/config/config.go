// Package config provides configuration for the agent. Values come from
// environment variables with sensible defaults; a .env file in the working
// directory is loaded first so the render API key can live outside the shell
// profile.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort          = 8787
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".cutroom"
	DefaultRenderBaseURL = "https://api.shotstack.io/stage"
	DefaultIngestBaseURL = "https://api.shotstack.io/ingest/stage"
	DefaultPollInterval  = 3 * time.Second
	DefaultPollTimeout   = 30 * time.Minute

	EnvPort          = "CUTROOM_PORT"
	EnvLogLevel      = "CUTROOM_LOG_LEVEL"
	EnvDataDir       = "CUTROOM_DATA_DIR"
	EnvRenderAPIKey  = "CUTROOM_RENDER_API_KEY"
	EnvRenderBaseURL = "CUTROOM_RENDER_BASE_URL"
	EnvIngestBaseURL = "CUTROOM_INGEST_BASE_URL"
	EnvPollInterval  = "CUTROOM_POLL_INTERVAL"
	EnvPollTimeout   = "CUTROOM_POLL_TIMEOUT"
	EnvWatchDir      = "CUTROOM_WATCH_DIR"
	EnvHeadless      = "CUTROOM_HEADLESS"

	DBFilename = "cutroom.db"
)

// Config is the application configuration surface.
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	RenderAPIKey() string
	RenderBaseURL() string
	IngestBaseURL() string
	PollInterval() time.Duration
	PollTimeout() time.Duration
	WatchDir() string
	Headless() bool
}

// EnvConfig reads configuration from the environment.
type EnvConfig struct {
	port          int
	logLevel      string
	dataDir       string
	renderAPIKey  string
	renderBaseURL string
	ingestBaseURL string
	pollInterval  time.Duration
	pollTimeout   time.Duration
	watchDir      string
	headless      bool
}

// New loads .env (if present) and builds the configuration. Only malformed
// values error; a missing API key is legal until an export is attempted.
func New() (*EnvConfig, error) {
	// Absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		renderBaseURL: DefaultRenderBaseURL,
		ingestBaseURL: DefaultIngestBaseURL,
		pollInterval:  DefaultPollInterval,
		pollTimeout:   DefaultPollTimeout,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	cfg.renderAPIKey = os.Getenv(EnvRenderAPIKey)
	if u := os.Getenv(EnvRenderBaseURL); u != "" {
		cfg.renderBaseURL = u
	}
	if u := os.Getenv(EnvIngestBaseURL); u != "" {
		cfg.ingestBaseURL = u
	}

	if v := os.Getenv(EnvPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid %s: want a positive duration, got %q", EnvPollInterval, v)
		}
		cfg.pollInterval = d
	}
	if v := os.Getenv(EnvPollTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid %s: want a duration, got %q", EnvPollTimeout, v)
		}
		cfg.pollTimeout = d
	}

	cfg.watchDir = os.Getenv(EnvWatchDir)
	cfg.headless = os.Getenv(EnvHeadless) == "1" || os.Getenv(EnvHeadless) == "true"

	return cfg, nil
}

func (c *EnvConfig) Port() int             { return c.port }
func (c *EnvConfig) LogLevel() string      { return c.logLevel }
func (c *EnvConfig) DataDir() string       { return c.dataDir }
func (c *EnvConfig) RenderAPIKey() string  { return c.renderAPIKey }
func (c *EnvConfig) RenderBaseURL() string { return c.renderBaseURL }
func (c *EnvConfig) IngestBaseURL() string { return c.ingestBaseURL }
func (c *EnvConfig) WatchDir() string      { return c.watchDir }
func (c *EnvConfig) Headless() bool        { return c.headless }

func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir is where imported media files are copied.
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, "media")
}

func (c *EnvConfig) PollInterval() time.Duration { return c.pollInterval }
func (c *EnvConfig) PollTimeout() time.Duration  { return c.pollTimeout }

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
