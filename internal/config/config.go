package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/drewfead/calendart/internal/auth"
	"github.com/drewfead/calendart/internal/logger"
)

// EnvPrefix prefixes every environment variable, e.g. CALENDART_AUTH_ACCESS_TOKEN.
const EnvPrefix = "CALENDART"

// Config holds all configuration for calendart.
type Config struct {
	// Endpoint is the Calendar API base URL.
	Endpoint string `mapstructure:"endpoint" default:"https://www.googleapis.com/calendar/v3/"`
	// Calendars are synchronized by the sync command.
	Calendars []string `mapstructure:"calendars" default:"primary"`
	// Concurrency bounds parallel calendar walks; 0 means unbounded.
	Concurrency    int `mapstructure:"concurrency" default:"4"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`

	Auth auth.Config   `mapstructure:"auth"`
	Log  logger.Config `mapstructure:"log"`
}

// Timeout returns the per-command timeout; zero disables it.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint must not be empty"))
	}
	if len(c.Calendars) == 0 {
		errs = append(errs, errors.New("at least one calendar is required"))
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must be >= 0, got %d", c.Concurrency))
	}
	if c.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("timeout_seconds must be >= 0, got %d", c.TimeoutSeconds))
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from, lowest precedence first: struct defaults,
// the YAML file, a .env file in dir, and CALENDART_* environment variables.
//
// file may be empty, in which case ~/.config/calendart/config.yaml is read when
// present. When no credential is configured, token.json or
// service-account.json in the same directory are picked up.
func LoadConfig(dir, file string) (*Config, error) {
	// Ignore error if file doesn't exist
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	if file == "" {
		if p, err := GetConfigPath(); err == nil && exists(p) {
			file = p
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	// Map environment variables to nested keys (e.g. CALENDART_LOG_LEVEL -> log.level)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if config.Auth.Method() == auth.CredentialTypeUnknown {
		discoverCredentials(&config.Auth)
	}

	return &config, nil
}

// discoverCredentials looks for credential files in the config directory.
func discoverCredentials(cfg *auth.Config) {
	if p, err := GetTokenPath(); err == nil && exists(p) {
		cfg.TokenFile = p
		return
	}
	if p, err := GetServiceAccountPath(); err == nil && exists(p) {
		cfg.ServiceAccountFile = p
	}
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
