package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/heater-labs/heater-cloud-proxy/internal/tuya"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration knobs for the proxy.
type Config struct {
	HTTP struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"http"`
	Tuya struct {
		Region         string        `mapstructure:"region"`
		BaseURL        string        `mapstructure:"base_url"`
		AccessID       string        `mapstructure:"access_id"`
		AccessSecret   string        `mapstructure:"access_secret"`
		DeviceID       string        `mapstructure:"device_id"`
		HomeID         string        `mapstructure:"home_id"`
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"tuya"`
	Poll struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"poll"`
	Timezone string `mapstructure:"timezone"`
	LogLevel string `mapstructure:"log_level"`
	Frontend struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"frontend"`
	Auth struct {
		Enabled   bool   `mapstructure:"enabled"`
		Username  string `mapstructure:"username"`
		Password  string `mapstructure:"password"`
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`
}

// Load reads the configuration from disk/environment using Viper. A .env
// file in the working directory is folded into the environment first so
// credentials can live outside the YAML file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("heater_proxy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine, the environment alone can carry the config
		if !errors.Is(err, os.ErrNotExist) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("load config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects unusable configuration at startup; none of these are
// recoverable at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Tuya.AccessID) == "" || strings.TrimSpace(c.Tuya.AccessSecret) == "" {
		return fmt.Errorf("tuya.access_id and tuya.access_secret are required")
	}
	if strings.TrimSpace(c.Tuya.DeviceID) == "" {
		return fmt.Errorf("tuya.device_id is required")
	}
	if strings.TrimSpace(c.Tuya.HomeID) == "" {
		return fmt.Errorf("tuya.home_id is required")
	}
	if _, err := c.Endpoint(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.Poll.Interval < time.Second {
		return fmt.Errorf("poll.interval must be at least 1s")
	}
	return nil
}

// Endpoint resolves the Tuya API base URL: an explicit base_url wins,
// otherwise the region code is mapped to its data-center endpoint.
func (c *Config) Endpoint() (string, error) {
	if url := strings.TrimSpace(c.Tuya.BaseURL); url != "" {
		return url, nil
	}
	endpoint, ok := tuya.EndpointForRegion(c.Tuya.Region)
	if !ok {
		return "", fmt.Errorf("invalid tuya.region %q, use: us, eu, cn, in", c.Tuya.Region)
	}
	return endpoint, nil
}

// Location loads the timezone used for schedule encoding and history
// rendering.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8090")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")

	v.SetDefault("tuya.region", "eu")
	v.SetDefault("tuya.request_timeout", "10s")

	v.SetDefault("poll.interval", "60s")
	v.SetDefault("timezone", "Asia/Jerusalem")
	v.SetDefault("log_level", "info")

	v.SetDefault("frontend.dir", "./web")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.jwt_secret", "heater-proxy-default-secret")
}
