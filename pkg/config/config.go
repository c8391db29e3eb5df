// Package config loads awwbot settings from defaults, an optional YAML
// file and the environment, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source is one selectable subreddit.
type Source struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
}

// Config holds every setting the daemon and CLI read.
type Config struct {
	PublicKey     string `yaml:"public_key"`
	ApplicationID string `yaml:"application_id"`
	OwnerID       string `yaml:"owner_id"`
	AdminToken    string `yaml:"admin_token"`
	Port          string `yaml:"port"`

	RedditBaseURL string  `yaml:"reddit_base_url"`
	UserAgent     string  `yaml:"user_agent"`
	MinScore      int     `yaml:"min_score"`
	UpstreamRate  float64 `yaml:"upstream_rate"`
	UpstreamBurst int     `yaml:"upstream_burst"`

	CacheTTL      time.Duration `yaml:"cache_ttl"`
	CacheCapacity int           `yaml:"cache_capacity"`

	// ResponseDeadline is Discord's hard limit for answering an interaction.
	// OperationTimeout bounds the upstream fetch and must leave headroom under it.
	ResponseDeadline time.Duration `yaml:"response_deadline"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`

	EmbedColor    int      `yaml:"embed_color"`
	DefaultSource string   `yaml:"default_source"`
	Sources       []Source `yaml:"sources"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:             "8787",
		RedditBaseURL:    "https://www.reddit.com",
		UserAgent:        "awwbot:v1.0.0 (by /u/awwbot)",
		MinScore:         10,
		UpstreamBurst:    5,
		CacheTTL:         5 * time.Minute,
		CacheCapacity:    64,
		ResponseDeadline: 3000 * time.Millisecond,
		OperationTimeout: 2500 * time.Millisecond,
		EmbedColor:       0xff4500,
		DefaultSource:    "aww",
		Sources: []Source{
			{Name: "aww", Label: "🐱🐶 r/aww (default)"},
			{Name: "eyebleach", Label: "😍 r/eyebleach"},
			{Name: "rarepuppers", Label: "🐕 r/rarepuppers"},
			{Name: "cats", Label: "🐱 r/cats"},
			{Name: "dogpictures", Label: "🐶 r/dogpictures"},
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and environment variables are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.PublicKey = getEnv("DISCORD_PUBLIC_KEY", c.PublicKey)
	c.ApplicationID = getEnv("DISCORD_APPLICATION_ID", c.ApplicationID)
	c.OwnerID = getEnv("OWNER_ID", c.OwnerID)
	c.AdminToken = getEnv("ADMIN_TOKEN", c.AdminToken)
	c.Port = getEnv("PORT", c.Port)
	c.RedditBaseURL = getEnv("REDDIT_BASE_URL", c.RedditBaseURL)
	c.UserAgent = getEnv("REDDIT_USER_AGENT", c.UserAgent)
	c.DefaultSource = strings.ToLower(getEnv("DEFAULT_SUBREDDIT", c.DefaultSource))
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	var errs []error
	parseInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	parseDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := parseMillis(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s format: %w", key, err))
				return
			}
			*dst = d
		}
	}

	parseInt("MIN_POST_SCORE", &c.MinScore)
	parseInt("CACHE_CAPACITY", &c.CacheCapacity)
	parseInt("UPSTREAM_BURST", &c.UpstreamBurst)
	parseDuration("CACHE_TTL", &c.CacheTTL)
	parseDuration("RESPONSE_DEADLINE", &c.ResponseDeadline)
	parseDuration("OPERATION_TIMEOUT", &c.OperationTimeout)

	if v := os.Getenv("UPSTREAM_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid UPSTREAM_RATE: %w", err))
		} else {
			c.UpstreamRate = f
		}
	}

	if v := os.Getenv("EMBED_COLOR"); v != "" {
		n, err := strconv.ParseInt(strings.TrimPrefix(v, "#"), colorBase(v), 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid EMBED_COLOR: %w", err))
		} else {
			c.EmbedColor = int(n)
		}
	}

	if v := os.Getenv("SUBREDDITS"); v != "" {
		var sources []Source
		for name := range strings.SplitSeq(v, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			sources = append(sources, Source{Name: name, Label: "r/" + name})
		}
		c.Sources = sources
	}

	return errors.Join(errs...)
}

// Validate checks that the configuration can serve requests.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.ResponseDeadline <= 0 || c.OperationTimeout <= 0 {
		return fmt.Errorf("RESPONSE_DEADLINE and OPERATION_TIMEOUT must be positive")
	}
	if c.OperationTimeout >= c.ResponseDeadline {
		return fmt.Errorf("OPERATION_TIMEOUT (%s) must be less than RESPONSE_DEADLINE (%s)", c.OperationTimeout, c.ResponseDeadline)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one subreddit must be configured")
	}
	if !c.IsSource(c.DefaultSource) {
		return fmt.Errorf("default subreddit %q is not in the configured list", c.DefaultSource)
	}
	return nil
}

// IsSource reports whether name is one of the configured subreddits.
func (c *Config) IsSource(name string) bool {
	return slices.ContainsFunc(c.Sources, func(s Source) bool { return s.Name == name })
}

// SourceNames returns the configured subreddit names in order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		names = append(names, s.Name)
	}
	return names
}

// parseMillis accepts either a Go duration ("2.5s") or a bare millisecond count ("2500").
func parseMillis(v string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

func colorBase(v string) int {
	if strings.HasPrefix(v, "#") {
		return 16
	}
	return 0
}

// getEnv retrieves an environment variable or returns a fallback value.
// KEY_FILE, when set, names a file whose trimmed contents take precedence.
func getEnv(key, fallback string) string {
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
