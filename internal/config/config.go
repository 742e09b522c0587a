// Package config loads scholar-serp settings from a JSON5 file, an optional
// <name>.local.<ext> override next to it, and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/Sternrassler/scholar-serp/pkg/client"
	"github.com/Sternrassler/scholar-serp/pkg/logging"
	"github.com/Sternrassler/scholar-serp/pkg/mandates"
	"github.com/Sternrassler/scholar-serp/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/titanous/json5"
)

// DefaultUserAgent identifies scholar-serp to SerpApi.
const DefaultUserAgent = "scholar-serp/0.1.0"

// Config holds every setting of the CLI and proxy.
type Config struct {
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"`
	Language string `json:"language"`

	// RedisURL enables caching and quota tracking, e.g. redis://localhost:6379/0.
	RedisURL        string `json:"redis_url"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`

	// MaxPages caps paginated retrievals; 0 follows every cursor.
	MaxPages       int    `json:"max_pages"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxRetries     int    `json:"max_retries"`
	UserAgent      string `json:"user_agent"`

	LogLevel  string `json:"log_level"`
	LogPretty bool   `json:"log_pretty"`

	Port string `json:"port"`

	// ShowBrowser runs Chrome with a visible window.
	ShowBrowser      bool   `json:"show_browser"`
	BrowserUserAgent string `json:"browser_user_agent"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:         client.DefaultBaseURL,
		Language:        "en",
		CacheTTLSeconds: 24 * 60 * 60,
		TimeoutSeconds:  60,
		MaxRetries:      3,
		UserAgent:       DefaultUserAgent,
		LogLevel:        "info",
		Port:            "8080",
	}
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// LocalPath returns the override file that sits next to path.
func LocalPath(path string) string {
	prefix, ext := splitExt(filepath.Base(path))
	return filepath.Join(filepath.Dir(path), fmt.Sprintf("%s.local.%s", prefix, ext))
}

// Load merges, in increasing priority: defaults, path, the local override
// of path, and environment variables. Missing files are skipped; an empty
// path skips both files.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		for _, p := range []string{path, LocalPath(path)} {
			if err := mergeFile(&cfg, p); err != nil {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg, os.Getenv)
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}

	var override Config
	if err := json5.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := mergo.Merge(cfg, override, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge config %s: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("Merged config file")
	return nil
}

// applyEnv overrides settings from SERPAPI_API_KEY, SERPAPI_BASE_URL,
// REDIS_URL, LOG_LEVEL, LOG_PRETTY and PORT.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("SERPAPI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := getenv("SERPAPI_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("LOG_PRETTY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogPretty = b
		}
	}
	if v := getenv("PORT"); v != "" {
		cfg.Port = strings.TrimPrefix(v, ":")
	}
}

// CacheTTL returns the page cache lifetime.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Timeout returns the per-request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Redis opens a client for RedisURL, or returns nil when it is empty.
func (c Config) Redis() (*redis.Client, error) {
	if c.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// ClientConfig builds the SerpApi client configuration.
func (c Config) ClientConfig(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig(redisClient, c.UserAgent)
	cfg.BaseURL = c.BaseURL
	if c.TimeoutSeconds > 0 {
		cfg.Timeout = c.Timeout()
	}
	if c.CacheTTLSeconds > 0 {
		cfg.CacheTTL = c.CacheTTL()
	}
	if c.MaxRetries > 0 {
		cfg.MaxRetries = c.MaxRetries
	}
	return cfg
}

// PaginationConfig builds the paginator configuration.
func (c Config) PaginationConfig() pagination.Config {
	return pagination.Config{MaxPages: c.MaxPages}
}

// BrowserConfig builds the headless browser configuration.
func (c Config) BrowserConfig() mandates.BrowserConfig {
	cfg := mandates.DefaultBrowserConfig()
	cfg.Headless = !c.ShowBrowser
	if c.BrowserUserAgent != "" {
		cfg.UserAgent = c.BrowserUserAgent
	}
	if c.TimeoutSeconds > 0 {
		cfg.Timeout = c.Timeout()
	}
	return cfg
}

// LoggingConfig builds the logger configuration.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}
