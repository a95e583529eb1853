// Package config loads the daemon configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/auramail/auramail/internal/rules"
)

// Config holds the configuration for the triage daemon.
type Config struct {
	Account struct {
		// Address is the account owner's address; self-sent mail is
		// never triaged.
		Address     string `mapstructure:"address"`
		DisplayName string `mapstructure:"display_name"`
	} `mapstructure:"account"`

	Poll struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"poll"`

	Workers struct {
		Max int `mapstructure:"max"`
	} `mapstructure:"workers"`

	Events struct {
		// DrainMax caps events handed to the frontend per poll cycle.
		DrainMax int `mapstructure:"drain_max"`
	} `mapstructure:"events"`

	Paths struct {
		DB         string `mapstructure:"db"`
		EmailState string `mapstructure:"email_state"`
	} `mapstructure:"paths"`

	Redis struct {
		// Addr, when set, switches the workflow and checkpoint stores
		// from SQLite to Redis.
		Addr string `mapstructure:"addr"`
	} `mapstructure:"redis"`

	Rules []rules.Rule `mapstructure:"rules"`
}

// Load reads config.yaml from the working directory or ./config, applies
// env overrides (AURAMAIL_ACCOUNT_ADDRESS etc.), and fills defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("auramail")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Account.Address = strings.ToLower(strings.TrimSpace(cfg.Account.Address))
	if cfg.Account.Address == "" {
		return nil, errors.New("account.address is required")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("poll.interval", 10*time.Second)
	v.SetDefault("workers.max", 8)
	v.SetDefault("events.drain_max", 5)
	v.SetDefault("paths.db", "db/auramail.db")
	v.SetDefault("paths.email_state", "db/email_state.json")
	v.SetDefault("account.display_name", "AI Assistant")
}
