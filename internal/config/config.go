// Package config provides configuration management for the tencos CLI.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete CLI configuration.
type Config struct {
	COS     COSConfig     `mapstructure:"cos"`
	STS     STSConfig     `mapstructure:"sts"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// COSConfig holds data-plane connection settings.
type COSConfig struct {
	// SecretID and SecretKey are the long-lived API credentials.
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`

	// SessionToken is set when the credentials are temporary.
	SessionToken string `mapstructure:"session_token"`

	// Region is the bucket region, e.g. "ap-beijing".
	Region string `mapstructure:"region"`

	// Bucket is the full bucket name including the appid suffix.
	Bucket string `mapstructure:"bucket"`

	// Timeout bounds each request.
	Timeout time.Duration `mapstructure:"timeout"`

	// UseHTTP disables TLS. Only useful against local test endpoints.
	UseHTTP bool `mapstructure:"use_http"`

	// Domain overrides the derived myqcloud.com endpoint host.
	Domain string `mapstructure:"domain"`
}

// STSConfig holds control-plane settings for issuing temporary credentials.
type STSConfig struct {
	// Host overrides the STS endpoint. Empty means the public endpoint.
	Host string `mapstructure:"host"`

	// DurationSeconds is the lifetime of issued credentials.
	DurationSeconds int `mapstructure:"duration_seconds"`

	// SessionName names the federation session. Empty generates one.
	SessionName string `mapstructure:"session_name"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with TENCOS_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("TENCOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.tencos")
		v.AddConfigPath("/etc/tencos")
	}

	// Config file not found is acceptable - environment variables can be
	// used instead.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Data-plane defaults
	v.SetDefault("cos.secret_id", "")
	v.SetDefault("cos.secret_key", "")
	v.SetDefault("cos.session_token", "")
	v.SetDefault("cos.region", "")
	v.SetDefault("cos.bucket", "")
	v.SetDefault("cos.timeout", 30*time.Second)
	v.SetDefault("cos.use_http", false)
	v.SetDefault("cos.domain", "")

	// Control-plane defaults
	v.SetDefault("sts.host", "")
	v.SetDefault("sts.duration_seconds", 1800)
	v.SetDefault("sts.session_name", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.time_format", time.RFC3339)
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	if c.COS.Timeout <= 0 {
		return fmt.Errorf("cos.timeout must be positive")
	}

	if c.STS.DurationSeconds < 0 {
		return fmt.Errorf("sts.duration_seconds must not be negative")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be 'console' or 'json'")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
