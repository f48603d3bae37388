// Package config loads client settings from an optional YAML file and WARDWATCH_*
// environment variables. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/synheart/wardwatch/internal/models"
)

// DefaultFile is read from the working directory when no file is named.
const DefaultFile = "wardwatch.yaml"

const (
	ModeSSE    = "sse"
	ModeSocket = "socket"
)

type Config struct {
	BaseURL   string      `yaml:"base_url"`
	Mode      string      `yaml:"mode"`
	SocketURL string      `yaml:"socket_url"`
	Role      models.Role `yaml:"role"`
	Realtime  bool        `yaml:"realtime"`
	PatientID int64       `yaml:"patient_id"`
	Session   string      `yaml:"session_cookie"`

	HTTP struct {
		Timeout    time.Duration `yaml:"timeout"`
		RetryCount int           `yaml:"retry_count"`
	} `yaml:"http"`

	Poll struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"poll"`

	Reconnect struct {
		MaxAttempts int           `yaml:"max_attempts"`
		BaseDelay   time.Duration `yaml:"base_delay"`
		MaxDelay    time.Duration `yaml:"max_delay"`
	} `yaml:"reconnect"`

	Alerts struct {
		Countdown  time.Duration `yaml:"countdown"`
		AckTimeout time.Duration `yaml:"ack_timeout"`
		ToastTTL   time.Duration `yaml:"toast_ttl"`
		Pulse      time.Duration `yaml:"pulse"`
		DedupSize  int           `yaml:"dedup_size"`
		DedupTTL   time.Duration `yaml:"dedup_ttl"`
		Chime      bool          `yaml:"chime"`
	} `yaml:"alerts"`

	Cards struct {
		Flash      time.Duration `yaml:"flash"`
		AutoCreate bool          `yaml:"auto_create"`
	} `yaml:"cards"`

	Chart struct {
		Points int `yaml:"points"`
	} `yaml:"chart"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the built-in settings.
func Default() *Config {
	cfg := &Config{
		BaseURL:  "http://127.0.0.1:5000",
		Mode:     ModeSSE,
		Role:     models.RoleNurse,
		Realtime: true,
	}
	cfg.HTTP.Timeout = 10 * time.Second
	cfg.HTTP.RetryCount = 2
	cfg.Poll.Interval = 5 * time.Second
	cfg.Reconnect.MaxAttempts = 5
	cfg.Reconnect.BaseDelay = time.Second
	cfg.Reconnect.MaxDelay = 30 * time.Second
	cfg.Alerts.Countdown = 60 * time.Second
	cfg.Alerts.AckTimeout = 10 * time.Second
	cfg.Alerts.ToastTTL = 10 * time.Second
	cfg.Alerts.Pulse = time.Second
	cfg.Alerts.DedupSize = 1024
	cfg.Alerts.DedupTTL = 10 * time.Minute
	cfg.Alerts.Chime = true
	cfg.Cards.Flash = time.Second
	cfg.Cards.AutoCreate = true
	cfg.Chart.Points = 20
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

// Load reads path, or DefaultFile when path is empty and the file exists, then
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case path == "" && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.BaseURL = getEnv("WARDWATCH_BASE_URL", c.BaseURL)
	c.Mode = getEnv("WARDWATCH_MODE", c.Mode)
	c.SocketURL = getEnv("WARDWATCH_SOCKET_URL", c.SocketURL)
	c.Role = models.Role(getEnv("WARDWATCH_ROLE", string(c.Role)))
	c.Session = getEnv("WARDWATCH_SESSION", c.Session)
	c.Metrics.Addr = getEnv("WARDWATCH_METRICS_ADDR", c.Metrics.Addr)
	c.Log.Level = getEnv("WARDWATCH_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("WARDWATCH_LOG_FORMAT", c.Log.Format)

	if v := os.Getenv("WARDWATCH_REALTIME"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid WARDWATCH_REALTIME %q: %w", v, err)
		}
		c.Realtime = b
	}
	if v := os.Getenv("WARDWATCH_PATIENT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid WARDWATCH_PATIENT_ID %q: %w", v, err)
		}
		c.PatientID = id
	}
	return nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	switch c.Mode {
	case ModeSSE, ModeSocket:
	default:
		return fmt.Errorf("invalid mode %q (want %s or %s)", c.Mode, ModeSSE, ModeSocket)
	}
	switch c.Role {
	case models.RoleAdmin, models.RoleNurse, models.RoleDoctor:
	default:
		return fmt.Errorf("invalid role %q", c.Role)
	}
	if c.PatientID < 0 {
		return fmt.Errorf("invalid patient_id %d", c.PatientID)
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must not be negative")
	}
	if c.Reconnect.BaseDelay <= 0 || c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		return fmt.Errorf("reconnect delays must satisfy 0 < base_delay <= max_delay")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	return nil
}

// StreamSocketURL returns the socket endpoint, derived from the base URL unless
// set explicitly.
func (c *Config) StreamSocketURL() string {
	if c.SocketURL != "" {
		return c.SocketURL
	}
	u := strings.TrimRight(c.BaseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
