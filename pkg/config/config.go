package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pario-ai/parley/pkg/apierr"
	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the chat endpoint path appended to the base URL.
const DefaultEndpoint = "/chat-messages"

// Config holds all parley configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Stream    StreamConfig    `yaml:"stream"`
	Identity  IdentityConfig  `yaml:"identity"`
	Log       LogConfig       `yaml:"log"`
}

// APIConfig locates the chat backend.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RateLimitConfig bounds outbound requests per sliding window.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// CacheConfig controls the in-memory response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	MaxSize int           `yaml:"max_size"`
}

// StreamConfig tunes stream chunk batching.
type StreamConfig struct {
	BatchInterval time.Duration `yaml:"batch_interval"`
}

// IdentityConfig controls where generated user ids are kept.
// An empty DBPath keeps them in memory for the life of the process.
type IdentityConfig struct {
	DBPath  string `yaml:"db_path"`
	Session string `yaml:"session"`
}

// LogConfig sets the slog level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Endpoint: DefaultEndpoint,
			Timeout:  30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 30,
			Window:      time.Minute,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
			MaxSize: 100,
		},
		Stream: StreamConfig{
			BatchInterval: 50 * time.Millisecond,
		},
		Identity: IdentityConfig{
			DBPath:  "parley.db",
			Session: "default",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Validate reports a CONFIG_ERROR if the configuration cannot be used to
// issue a request.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return apierr.Config("API base URL is not configured.")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apierr.Config("API base URL is not a valid http(s) URL.")
	}
	if strings.TrimSpace(c.API.APIKey) == "" {
		return apierr.Config("API key is not configured.")
	}
	if c.API.Timeout <= 0 {
		return apierr.Config("API timeout must be positive.")
	}
	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.Window <= 0 {
		return apierr.Config("Rate limit must allow at least one request per window.")
	}
	if c.Cache.Enabled && (c.Cache.TTL <= 0 || c.Cache.MaxSize <= 0) {
		return apierr.Config("Cache TTL and size must be positive when caching is enabled.")
	}
	return nil
}

// ChatURL joins the base URL and the endpoint path.
func (c *Config) ChatURL() string {
	endpoint := c.API.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return strings.TrimRight(c.API.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
