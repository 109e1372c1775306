// Package config loads parlo's settings from defaults, an optional
// config file and PARLO_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	DefaultModel = "gemini-2.0-flash-live-001"
	DefaultVoice = "Puck"
)

// Config holds everything a translation session needs before it can dial out.
type Config struct {
	APIKey   string `mapstructure:"apikey"`
	Model    string `mapstructure:"model"`
	Voice    string `mapstructure:"voice"`
	Language string `mapstructure:"language"`
	Device   string `mapstructure:"device"`
	Record   string `mapstructure:"record"`
	LogPath  string `mapstructure:"logpath"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("apikey", "")
	v.SetDefault("model", DefaultModel)
	v.SetDefault("voice", DefaultVoice)
	v.SetDefault("language", "Spanish")
	v.SetDefault("device", "")
	v.SetDefault("record", "")
	v.SetDefault("logpath", "")
}

// Load reads the optional config file (./parlo.yaml or
// ~/.config/parlo/parlo.yaml) and the environment. A missing config file
// is not an error; a malformed one is.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("parlo")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "parlo"))
	}

	v.SetEnvPrefix("parlo")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// GEMINI_API_KEY is honored as a fallback so the standard SDK
	// variable works out of the box.
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return &cfg, nil
}

// Validate checks that the session can actually be opened with this
// configuration. It does not touch any device.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("no API key configured: set PARLO_APIKEY or GEMINI_API_KEY")
	}
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	if c.Voice == "" {
		return errors.New("voice must not be empty")
	}
	return nil
}
