// Package config loads and validates the prerender service configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultReadTimeoutSeconds is the default HTTP read timeout in seconds
	DefaultReadTimeoutSeconds = 10
	// DefaultWriteTimeoutSeconds is the default HTTP write timeout in seconds
	DefaultWriteTimeoutSeconds = 30

	defaultPrimaryTTL    = 5 * time.Minute
	defaultRelatedTTL    = 10 * time.Minute
	defaultFetchDeadline = 3 * time.Second
	defaultRelatedLimit  = 4
)

type Config struct {
	Debug    bool           `yaml:"debug"` // Controls log level and format
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Render   RenderConfig   `yaml:"render"`
	Site     SiteConfig     `yaml:"site"`
}

type ServerConfig struct {
	Address      string        `yaml:"address"`       // e.g., ":8090"
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"` // Default: 30s
	CORSOrigins  []string      `yaml:"cors_origins"`
}

type RedisConfig struct {
	URL      string `yaml:"url"` // host:port; empty means in-process cache only
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// UpstreamConfig points at the content backend the pipeline reads from.
type UpstreamConfig struct {
	URL     string        `yaml:"url"`     // Backend API base URL (e.g., "http://localhost:8080")
	Timeout time.Duration `yaml:"timeout"` // Per-request timeout (default: 3s)
}

// RenderConfig controls the render pipeline itself. CachingEnabled selects
// the server-render mode: cached, deadline-bounded fetches. With it false
// (interactive mode) every resolve goes straight to the upstream and nothing
// is stored.
type RenderConfig struct {
	CachingEnabled bool          `yaml:"caching_enabled"`
	PrimaryTTL     time.Duration `yaml:"primary_ttl"`    // Default: 5m
	RelatedTTL     time.Duration `yaml:"related_ttl"`    // Default: 10m
	FetchDeadline  time.Duration `yaml:"fetch_deadline"` // Per-fetch deadline (default: 3s)
	RelatedLimit   int           `yaml:"related_limit"`  // Max related items (default: 4)
}

// SiteConfig holds the public-facing identity used by the metadata emitter.
type SiteConfig struct {
	PublicOrigin      string `yaml:"public_origin"`       // e.g., "https://quillpress.example"
	SiteName          string `yaml:"site_name"`
	DefaultShareImage string `yaml:"default_share_image"` // Absolute or origin-relative path
}

// Validate checks the server configuration and sets defaults.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		c.Address = ":8090"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeoutSeconds * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeoutSeconds * time.Second
	}
	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.Upstream.URL == "" {
		return errors.New("upstream.url is required")
	}
	if c.Site.PublicOrigin == "" {
		return errors.New("site.public_origin is required")
	}
	if u, err := url.Parse(c.Site.PublicOrigin); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site.public_origin must be an absolute URL, got %q", c.Site.PublicOrigin)
	}
	if c.Render.PrimaryTTL <= 0 {
		return fmt.Errorf("render.primary_ttl must be positive, got %v", c.Render.PrimaryTTL)
	}
	if c.Render.RelatedTTL <= 0 {
		return fmt.Errorf("render.related_ttl must be positive, got %v", c.Render.RelatedTTL)
	}
	if c.Render.FetchDeadline <= 0 {
		return fmt.Errorf("render.fetch_deadline must be positive, got %v", c.Render.FetchDeadline)
	}
	if c.Render.RelatedLimit <= 0 {
		return fmt.Errorf("render.related_limit must be positive, got %d", c.Render.RelatedLimit)
	}
	return nil
}

// setDefaults sets default values for configuration fields
func setDefaults(cfg *Config) {
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = defaultFetchDeadline
	}
	if cfg.Render.PrimaryTTL == 0 {
		cfg.Render.PrimaryTTL = defaultPrimaryTTL
	}
	if cfg.Render.RelatedTTL == 0 {
		cfg.Render.RelatedTTL = defaultRelatedTTL
	}
	if cfg.Render.FetchDeadline == 0 {
		cfg.Render.FetchDeadline = defaultFetchDeadline
	}
	if cfg.Render.RelatedLimit == 0 {
		cfg.Render.RelatedLimit = defaultRelatedLimit
	}
	if cfg.Site.SiteName == "" {
		cfg.Site.SiteName = "Quillpress"
	}
	if cfg.Site.DefaultShareImage == "" {
		cfg.Site.DefaultShareImage = "/assets/social-default.png"
	}
}

// overrideWithEnvVars overrides configuration with environment variables
func overrideWithEnvVars(cfg *Config) {
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if upstreamURL := os.Getenv("UPSTREAM_URL"); upstreamURL != "" {
		cfg.Upstream.URL = upstreamURL
	}
	if origin := os.Getenv("PUBLIC_ORIGIN"); origin != "" {
		cfg.Site.PublicOrigin = origin
	}
	if caching := os.Getenv("RENDER_CACHING"); caching != "" {
		cfg.Render.CachingEnabled = parseBool(caching)
	}
	if appDebug := os.Getenv("APP_DEBUG"); appDebug != "" {
		cfg.Debug = parseBool(appDebug)
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)
	overrideWithEnvVars(&cfg)

	if err := cfg.Server.Validate(); err != nil {
		return nil, fmt.Errorf("server config validation: %w", err)
	}

	if port := os.Getenv("PRERENDER_PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// parseBool parses a string value as a boolean.
// Returns true for "true", "1", "yes" (case-insensitive), false otherwise.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
