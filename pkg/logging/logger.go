// Package logging configures the process-wide zerolog logger and hands out
// component loggers.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs per-page flow and cache decisions.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs completed retrievals and quota refreshes.
	LevelInfo LogLevel = "info"

	// LevelWarn logs truncations, retries and cache failures.
	LevelWarn LogLevel = "warn"

	// LevelError logs failed requests only.
	LevelError LogLevel = "error"

	// LevelDisabled silences all output.
	LevelDisabled LogLevel = "disabled"
)

// Component names used as the "component" field.
const (
	ComponentPagination = "pagination"
	ComponentClient     = "serpapi-client"
	ComponentScholar    = "scholar"
	ComponentMandates   = "mandates"
	ComponentQuota      = "quota"
	ComponentProxy      = "scholar-proxy"
	ComponentCLI        = "scholar-cli"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr so stdout stays free for results.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel normalizes a level name from flags or environment.
// Unknown names fall back to LevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "disabled", "off", "none":
		return LevelDisabled
	default:
		return LevelInfo
	}
}

func parseLevel(level LogLevel) zerolog.Level {
	switch ParseLevel(string(level)) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelDisabled:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug:
//   - Page collected (endpoint, page, items)
//   - Cache hit/miss and cached TTL
//   - Retry backoff scheduling
//
// Info:
//   - Pagination complete (pages, items, truncated, duration)
//   - Quota state refreshed and healthy
//   - Leaderboard scraped
//   - Server startup/shutdown
//
// Warn:
//   - Remote error ending a paginated retrieval (partial results returned)
//   - Quota low, searches throttled
//   - Retries, cache errors
//
// Error:
//   - Transport failures and single-page remote errors
//   - Quota exhausted, searches blocked
//   - Browser render failures
//
// Context Fields:
//   - endpoint: policy name (organic, author.articles.paginated, ...)
//   - engine: SerpApi engine
//   - page: 1-based page number
//   - items / pages: counts
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network
//   - duration: elapsed time
//   - searches_left: SerpApi quota
