// Package config holds the explicit client configuration.
//
// Every service in this module receives a Config at construction time.
// Nothing reads the process environment behind the caller's back; Load is the
// only place that does.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBaseURL   = "https://glycoshape.org"
	DefaultPollInterval = 3 * time.Second

	EnvAPIBaseURL   = "GLYCO_API_BASE_URL"
	EnvDevFeatures  = "GLYCO_DEV_FEATURES"
	EnvPollInterval = "GLYCO_POLL_INTERVAL"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// base URL of the backend. Both API calls and static outputs hang under it.
	APIBaseURL string

	// unlocks tools and options not offered to everyone.
	DevFeaturesEnabled bool

	// interval between progress polls.
	PollInterval time.Duration
}

func Default() Config {
	return Config{
		APIBaseURL:         DefaultAPIBaseURL,
		DevFeaturesEnabled: false,
		PollInterval:       DefaultPollInterval,
	}
}

// Verify checks c is usable.
func (c Config) Verify() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: api base url is not absolute URL: %s", ErrInvalidConfig, c.APIBaseURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval should be positive: %s", ErrInvalidConfig, c.PollInterval)
	}
	return nil
}

// APIRoot returns APIBaseURL without trailing slashes.
func (c Config) APIRoot() string {
	return strings.TrimRight(c.APIBaseURL, "/")
}

type Option func(*Config) *Config

func WithAPIBaseURL(u string) Option {
	return func(c *Config) *Config {
		if u != "" {
			c.APIBaseURL = u
		}
		return c
	}
}

func WithDevFeatures(enabled bool) Option {
	return func(c *Config) *Config {
		c.DevFeaturesEnabled = enabled
		return c
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Config) *Config {
		if 0 < d {
			c.PollInterval = d
		}
		return c
	}
}

// Load builds Config from defaults, then dotenv files, then process environment.
//
// Missing dotenv files are ignored. Values already present in the process
// environment win over the files, as godotenv.Load does.
//
// options are applied last.
func Load(dotenvs []string, options ...Option) (Config, error) {
	for _, f := range dotenvs {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: cannot load %s: %w", ErrInvalidConfig, f, err)
		}
	}
	return FromLookup(os.LookupEnv, options...)
}

// FromLookup builds Config from defaults and values found by lookup.
func FromLookup(lookup func(string) (string, bool), options ...Option) (Config, error) {
	c := Default()

	if v, ok := lookup(EnvAPIBaseURL); ok && v != "" {
		c.APIBaseURL = v
	}
	if v, ok := lookup(EnvDevFeatures); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%s", ErrInvalidConfig, EnvDevFeatures, v)
		}
		c.DevFeaturesEnabled = b
	}
	if v, ok := lookup(EnvPollInterval); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%s", ErrInvalidConfig, EnvPollInterval, v)
		}
		c.PollInterval = d
	}

	cp := &c
	for _, o := range options {
		cp = o(cp)
	}

	if err := cp.Verify(); err != nil {
		return Config{}, err
	}
	return *cp, nil
}

// Read parses a dotenv file without touching the process environment.
func Read(dotenv string) (map[string]string, error) {
	return godotenv.Read(dotenv)
}
