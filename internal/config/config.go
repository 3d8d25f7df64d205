// Package config loads and validates the smoke-test configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < .env file <
// environment variables < the positional base URL given on the command line.
// Environment variables use the SMOKE_ prefix (e.g., SMOKE_TARGET_BASE_URL
// overrides target.base_url in the YAML). With nothing configured the defaults
// reproduce the fixed local test target and test user.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Version is reported in the default User-Agent.
const Version = "0.1.0"

// DotEnvFile is the dotenv file read from the working directory before the
// environment is consulted. Variables already set in the process win.
var DotEnvFile = ".env"

// Config holds all smoke-test configuration
type Config struct {
	Target      TargetConfig      `mapstructure:"target"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Output      OutputConfig      `mapstructure:"output"`
}

// TargetConfig identifies the backend under test
type TargetConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// CredentialsConfig holds the test user registered and logged in by the run
type CredentialsConfig struct {
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	EmailDomain string `mapstructure:"email_domain"`
}

// Email returns the address sent at registration, derived from the username.
func (c *CredentialsConfig) Email() string {
	return c.Username + "@" + c.EmailDomain
}

// HTTPConfig holds outbound client configuration
type HTTPConfig struct {
	// Timeout bounds each probe; zero means no client-side timeout.
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig controls the console report
type OutputConfig struct {
	// Color is "auto" (only when stdout is a terminal), "always", or "never".
	Color string `mapstructure:"color"`
}

// Color modes accepted by output.color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ErrInvalidBaseURL is returned by TargetConfig.Validate when target.base_url
// is not an absolute http(s) URL.
var ErrInvalidBaseURL = errors.New("invalid base url")

// envRef matches an explicit ${VAR_NAME} reference.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// bindEnvVars explicitly binds environment variables to config keys.
// AutomaticEnv alone does not populate nested structs during Unmarshal.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		"target.base_url",

		"credentials.username",
		"credentials.password",
		"credentials.email_domain",

		"http.timeout",
		"http.user_agent",

		"logging.level",
		"logging.format",

		"output.color",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables. A non-empty
// baseURL (the command-line argument) takes precedence over every other source.
func Load(configPath, baseURL string) (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("smoke")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SMOKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if baseURL != "" {
		v.Set("target.base_url", baseURL)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Credentials.Password = expandEnv(cfg.Credentials.Password)
	cfg.Target.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Target.BaseURL), "/")
	cfg.Output.Color = strings.ToLower(cfg.Output.Color)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv reads path into the process environment if it exists.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("target.base_url", "http://localhost:8000")

	v.SetDefault("credentials.username", "test_user")
	v.SetDefault("credentials.password", "test_password123")
	v.SetDefault("credentials.email_domain", "test.com")

	v.SetDefault("http.timeout", "0s")
	v.SetDefault("http.user_agent", "emotionai-smoke/"+Version)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	v.SetDefault("output.color", ColorAuto)
}

// expandEnv expands environment variables in the format ${VAR_NAME}. A bare
// $ is kept as written.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
}

// Validate reports whether the base URL is an absolute http(s) URL. It is not
// part of Config.Validate: an unusable base URL still runs, and the health
// check reports the request error.
func (t TargetConfig) Validate() error {
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidBaseURL, t.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q (scheme must be http or https)", ErrInvalidBaseURL, t.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q (missing host)", ErrInvalidBaseURL, t.BaseURL)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Credentials.Username == "" {
		return fmt.Errorf("credentials.username is required")
	}
	if c.Credentials.Password == "" {
		return fmt.Errorf("credentials.password is required")
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("invalid http timeout: %s", c.HTTP.Timeout)
	}

	validColors := map[string]bool{ColorAuto: true, ColorAlways: true, ColorNever: true}
	if !validColors[c.Output.Color] {
		return fmt.Errorf("invalid output color: %s (must be auto, always, or never)", c.Output.Color)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}
