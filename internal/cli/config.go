package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/config"
	"github.com/synheart/wardwatch/internal/logger"
	"github.com/synheart/wardwatch/internal/models"
)

// GlobalOptions are shared flags that apply across commands. Set flags override
// the config file and environment.
type GlobalOptions struct {
	ConfigPath string
	BaseURL    string
	Mode       string
	Role       string
	LogLevel   string
	LogFormat  string
	Quiet      bool
}

var globalOpts GlobalOptions

func bindGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&globalOpts.ConfigPath, "config", "", "Config file (default ./"+config.DefaultFile+" if present)")
	f.StringVar(&globalOpts.BaseURL, "base-url", "", "Dashboard base URL")
	f.StringVar(&globalOpts.Mode, "mode", "", "Stream transport: sse|socket")
	f.StringVar(&globalOpts.Role, "role", "", "Signed-in role: nurse|doctor|admin")
	f.StringVar(&globalOpts.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	f.StringVar(&globalOpts.LogFormat, "log-format", "", "Log format: console|json")
	f.BoolVarP(&globalOpts.Quiet, "quiet", "q", false, "Do not print the board")
}

// loadSettings resolves the configuration for cmd and builds its logger.
func loadSettings(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(globalOpts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = globalOpts.BaseURL
	}
	if flags.Changed("mode") {
		cfg.Mode = globalOpts.Mode
	}
	if flags.Changed("role") {
		cfg.Role = models.Role(globalOpts.Role)
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = globalOpts.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = globalOpts.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "wardwatch")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}
