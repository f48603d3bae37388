package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synheart/wardwatch/internal/models"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_DefaultValues(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:5000", cfg.BaseURL)
	assert.Equal(t, ModeSSE, cfg.Mode)
	assert.Equal(t, models.RoleNurse, cfg.Role)
	assert.True(t, cfg.Realtime)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 5, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Reconnect.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Reconnect.MaxDelay)
	assert.Equal(t, 60*time.Second, cfg.Alerts.Countdown)
	assert.Equal(t, 10*time.Second, cfg.Alerts.ToastTTL)
	assert.Equal(t, time.Second, cfg.Alerts.Pulse)
	assert.Equal(t, 20, cfg.Chart.Points)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ward.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://ward.example
mode: socket
role: doctor
patient_id: 12
poll:
  interval: 2s
reconnect:
  max_attempts: 3
alerts:
  countdown: 30s
  chime: false
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://ward.example", cfg.BaseURL)
	assert.Equal(t, ModeSocket, cfg.Mode)
	assert.Equal(t, models.RoleDoctor, cfg.Role)
	assert.Equal(t, int64(12), cfg.PatientID)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 3, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Alerts.Countdown)
	assert.False(t, cfg.Alerts.Chime)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.Reconnect.MaxDelay, "unset keys keep defaults")
	assert.Equal(t, "wss://ward.example/ws", cfg.StreamSocketURL())
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WARDWATCH_BASE_URL", "http://10.0.0.5:8080/")
	t.Setenv("WARDWATCH_ROLE", "admin")
	t.Setenv("WARDWATCH_REALTIME", "false")
	t.Setenv("WARDWATCH_PATIENT_ID", "44")
	t.Setenv("WARDWATCH_LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, models.RoleAdmin, cfg.Role)
	assert.False(t, cfg.Realtime)
	assert.Equal(t, int64(44), cfg.PatientID)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "ws://10.0.0.5:8080/ws", cfg.StreamSocketURL())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("mode: [oops"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv("WARDWATCH_PATIENT_ID", "abc")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "poll" }},
		{"role", func(c *Config) { c.Role = "janitor" }},
		{"base url", func(c *Config) { c.BaseURL = "" }},
		{"delays", func(c *Config) { c.Reconnect.MaxDelay = time.Millisecond }},
		{"poll", func(c *Config) { c.Poll.Interval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
