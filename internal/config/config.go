package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envDevelopment = "development"

// Supported output formats.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
	OutputText = "text"
)

// Config holds the application configuration loaded from files, environment variables and flags.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIURL             string        `mapstructure:"api_url"`
	APIOrigin          string        `mapstructure:"api_origin"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	Output             string        `mapstructure:"output"`

	HistoryEnabled         bool          `mapstructure:"history_enabled"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	HistoryTTLSeconds      int64         `mapstructure:"history_ttl_seconds"`
	HistoryCleanupSeconds  int64         `mapstructure:"history_cleanup_interval_seconds"`
	HistoryTTL             time.Duration `mapstructure:"-"`
	HistoryCleanupInterval time.Duration `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`
}

// DevMode reports whether diagnostic logging should be enabled.
func (c *Config) DevMode() bool {
	return c != nil && strings.EqualFold(strings.TrimSpace(c.Env), envDevelopment)
}

// HistoryStorageType maps HistoryEnabled onto a history store type.
func (c *Config) HistoryStorageType() string {
	if c == nil || !c.HistoryEnabled {
		return "none"
	}
	return "bbolt"
}

// Load reads configuration from .env files, the environment and, when fs is
// non-nil, command-line flags. Flags that were set take precedence.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")
	_ = godotenv.Load(".env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-claim-checker")
	v.SetDefault("app_env", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_url", "")
	v.SetDefault("api_origin", "http://localhost:8000")
	v.SetDefault("http_timeout_seconds", 0) // unbounded
	v.SetDefault("output", OutputText)
	v.SetDefault("history_enabled", true)
	v.SetDefault("bbolt_path", "./data/history.db")
	v.SetDefault("history_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("history_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("publishers_file", "")

	v.AutomaticEnv()
	for key, envs := range map[string][]string{
		"api_url": {"API_URL", "REACT_APP_API_URL"},
		"app_env": {"APP_ENV", "NODE_ENV"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindFlags maps dashed flag names onto config keys, e.g. --api-url -> api_url.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

func normalize(cfg *Config) error {
	cfg.APIURL = strings.TrimSpace(cfg.APIURL)
	cfg.APIOrigin = strings.TrimRight(strings.TrimSpace(cfg.APIOrigin), "/")
	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))
	cfg.PublishersFile = strings.TrimSpace(cfg.PublishersFile)

	switch cfg.Output {
	case OutputJSON, OutputYAML, OutputText:
	default:
		return fmt.Errorf("invalid output %q (expected json, yaml or text)", cfg.Output)
	}

	if cfg.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.HistoryTTLSeconds <= 0 {
		return fmt.Errorf("invalid history_ttl_seconds (must be positive seconds)")
	}
	if cfg.HistoryCleanupSeconds <= 0 {
		return fmt.Errorf("invalid history_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.HistoryTTL = time.Duration(cfg.HistoryTTLSeconds) * time.Second
	cfg.HistoryCleanupInterval = time.Duration(cfg.HistoryCleanupSeconds) * time.Second

	return nil
}
