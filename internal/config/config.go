// Package config resolves the runtime configuration once per invocation:
// built-in defaults, an optional YAML file, the environment, then flags.
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Resolve.
const (
	EnvAPIURL     = "HYPERAIDE_API_URL"
	EnvDev        = "HYPERAIDE_DEV"
	EnvToken      = "HYPERAIDE_SYNC_TOKEN"
	EnvBrowserBin = "HYPERAIDE_BROWSER_BIN"
)

// Fixed endpoints for production and local development.
const (
	DefaultAPIURL     = "https://api.hyperaide.com"
	DevAPIURL         = "http://localhost:4000"
	DefaultWelcomeURL = "https://app.hyperaide.com/browser-sync/welcome"
	DevWelcomeURL     = "http://localhost:3000/browser-sync/welcome"
	ManageURL         = "https://app.hyperaide.com/browser-connections"
)

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config is the resolved configuration. Build it once with Resolve and pass
// it to constructors; nothing reads it from globals.
type Config struct {
	// APIURL overrides the base URL selected by Dev.
	APIURL string `yaml:"api_url"`

	// WelcomeURL overrides the welcome page selected by Dev.
	WelcomeURL string `yaml:"welcome_url"`

	Dev bool `yaml:"dev"`

	Browser  BrowserConfig  `yaml:"browser"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`

	// Token is never loaded from or saved to a file.
	Token string `yaml:"-"`
}

// BrowserConfig controls the capture browser.
type BrowserConfig struct {
	Bin            string        `yaml:"bin"`
	ViewportWidth  int           `yaml:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height"`
	UserAgent      string        `yaml:"user_agent"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

// TimeoutsConfig bounds the blocking operations.
type TimeoutsConfig struct {
	Welcome time.Duration `yaml:"welcome"`
	Control time.Duration `yaml:"control"`
	Upload  time.Duration `yaml:"upload"`
}

// Overrides are values set on the command line. Zero values mean "not set".
type Overrides struct {
	Token string
	Dev   bool
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Resolve builds the configuration: defaults, then the YAML file at path
// when path is non-empty, then getenv, then overrides.
func Resolve(path string, getenv func(string) string, ov Overrides) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}

	if v := getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
	if getenv(EnvDev) == "1" {
		cfg.Dev = true
	}
	if v := getenv(EnvBrowserBin); v != "" {
		cfg.Browser.Bin = v
	}
	cfg.Token = getenv(EnvToken)

	if ov.Dev {
		cfg.Dev = true
	}
	if ov.Token != "" {
		cfg.Token = ov.Token
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BaseURL is the API origin: the explicit override without trailing slash,
// else the development or production default.
func (c *Config) BaseURL() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	if c.Dev {
		return DevAPIURL
	}
	return DefaultAPIURL
}

// Welcome is the URL the capture browser opens first.
func (c *Config) Welcome() string {
	if c.WelcomeURL != "" {
		return c.WelcomeURL
	}
	if c.Dev {
		return DevWelcomeURL
	}
	return DefaultWelcomeURL
}

func (c *Config) applyDefaults() {
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = 1280
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = 800
	}
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = DefaultUserAgent
	}
	if c.Browser.PollInterval <= 0 {
		c.Browser.PollInterval = 500 * time.Millisecond
	}
	if c.Timeouts.Welcome <= 0 {
		c.Timeouts.Welcome = 10 * time.Second
	}
	if c.Timeouts.Control <= 0 {
		c.Timeouts.Control = 30 * time.Second
	}
	if c.Timeouts.Upload <= 0 {
		c.Timeouts.Upload = 60 * time.Second
	}
}
