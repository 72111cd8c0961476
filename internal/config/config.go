package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Token exposure modes. In server-only mode minted tokens never leave
// the process; token-forwarded additionally serves them to the browser
// for direct follow-up calls.
const (
	ModeServerOnly     = "server-only"
	ModeTokenForwarded = "token-forwarded"
)

type Config struct {
	Server struct {
		Addr         string        `mapstructure:"addr"`
		Mode         string        `mapstructure:"mode"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`

	Provider struct {
		IssuerURL    string        `mapstructure:"issuer_url"`
		ClientID     string        `mapstructure:"client_id"`
		ClientSecret string        `mapstructure:"client_secret"`
		Timeout      time.Duration `mapstructure:"timeout"`
	} `mapstructure:"provider"`

	Bridge struct {
		Secret   string        `mapstructure:"secret"`
		TTL      time.Duration `mapstructure:"ttl"`
		ClaimKey string        `mapstructure:"claim_key"`
		Issuer   string        `mapstructure:"issuer"`
		Mode     string        `mapstructure:"mode"`
	} `mapstructure:"bridge"`

	Datastore struct {
		URL        string        `mapstructure:"url"`
		APIKey     string        `mapstructure:"api_key"`
		Timeout    time.Duration `mapstructure:"timeout"`
		MaxRetries uint          `mapstructure:"max_retries"`
	} `mapstructure:"datastore"`

	Redis struct {
		URL        string        `mapstructure:"url"`
		PoolSize   int           `mapstructure:"pool_size"`
		SessionTTL time.Duration `mapstructure:"session_ttl"`
	} `mapstructure:"redis"`

	Observability struct {
		TraceEnabled       bool   `mapstructure:"trace_enabled"`
		TracingEndpointURL string `mapstructure:"tracing_endpoint_url"`
		LogLevel           string `mapstructure:"log_level"`
		Format             string `mapstructure:"log_format"`
		LogSource          bool   `mapstructure:"log_source"`
	} `mapstructure:"observability"`
}

// Validate enforces the startup contract. The process must not serve
// requests without a downstream secret, and the two trust boundaries
// must not share key material.
func (c *Config) Validate() error {
	if c.Bridge.Secret == "" {
		return errors.New("bridge.secret is required")
	}
	if c.Bridge.Secret == c.Provider.ClientSecret {
		return errors.New("bridge.secret must be disjoint from provider credentials")
	}
	if c.Bridge.TTL <= 0 {
		return errors.New("bridge.ttl must be positive")
	}
	if c.Provider.IssuerURL == "" {
		return errors.New("provider.issuer_url is required")
	}
	if c.Datastore.URL == "" {
		return errors.New("datastore.url is required")
	}
	switch c.Bridge.Mode {
	case "", ModeServerOnly, ModeTokenForwarded:
	default:
		return fmt.Errorf("bridge.mode must be %q or %q, got %q",
			ModeServerOnly, ModeTokenForwarded, c.Bridge.Mode)
	}
	return nil
}

// TokenForwarded reports whether minted tokens may be handed to the
// browser.
func (c *Config) TokenForwarded() bool {
	return c.Bridge.Mode == ModeTokenForwarded
}

func MustLoad() *Config {
	v := viper.New()

	logger := slog.Default()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvPrefix("CLAIMS_BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Error("Failed to read config", slog.Any("error", err))
		os.Exit(1)
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		if err := v.MergeInConfig(); err != nil {
			logger.Info("No environment-specific config (optional)", slog.String("env", env))
		}
		logger.Info("Environment-specific config loaded", slog.String("env", env))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Error("Failed to unmarshal config", slog.Any("error", err))
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	return &cfg
}
