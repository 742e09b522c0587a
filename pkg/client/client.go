// Package client is the SerpApi HTTP client. It implements
// pagination.PageFetcher with quota gating, Redis caching, and retries.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/scholar-serp/pkg/cache"
	"github.com/Sternrassler/scholar-serp/pkg/logging"
	"github.com/Sternrassler/scholar-serp/pkg/pagination"
	"github.com/Sternrassler/scholar-serp/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for SerpApi client operations.
var (
	serpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "serpapi_requests_total",
		Help: "Total SerpApi requests by engine and status",
	}, []string{"engine", "status"})

	serpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "serpapi_request_duration_seconds",
		Help:    "SerpApi request duration in seconds by engine",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"engine"})

	serpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "serpapi_errors_total",
		Help: "Total SerpApi errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the public SerpApi endpoint.
	DefaultBaseURL = "https://serpapi.com"

	searchPath  = "/search.json"
	accountPath = "/account.json"

	// ParamNoCache is SerpApi's cache bypass flag; it also skips our Redis cache.
	ParamNoCache = "no_cache"
)

// Client talks to SerpApi.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	quota      *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the SerpApi service. Defaults to DefaultBaseURL.
	BaseURL string

	// Redis enables the page cache and quota tracking. Optional.
	Redis *redis.Client

	// User-Agent header sent with every request.
	UserAgent string

	// Timeout per HTTP attempt.
	Timeout time.Duration

	// CacheTTL for pages without an Expires header.
	CacheTTL time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Redis:          redis,
		UserAgent:      userAgent,
		Timeout:        60 * time.Second,
		CacheTTL:       cache.DefaultTTL,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
	}
}

// New creates a new SerpApi client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	logger := logging.NewLogger(logging.ComponentClient)

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  logger,
	}

	if cfg.Redis != nil {
		c.quota = ratelimit.NewTracker(cfg.Redis, logging.NewLogger(logging.ComponentQuota))
		c.cache = cache.NewManager(cfg.Redis)
	} else {
		logger.Debug().Msg("No Redis configured - cache and quota tracking disabled")
	}

	return c, nil
}

// FetchPage performs one SerpApi search and classifies the returned page.
// It implements pagination.PageFetcher.
//
// A JSON page with an "error" field is a failed PageResult, not an error.
// The returned error covers transport failures, exhausted quota, and
// non-JSON HTTP errors.
func (c *Client) FetchPage(ctx context.Context, params pagination.ParameterSet) (pagination.PageResult, error) {
	engine := params.Engine

	startTime := time.Now()
	defer func() {
		serpRequestDuration.WithLabelValues(engine).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check cache; cached pages cost no searches
	cacheKey := cache.KeyFor(params.Without(ParamNoCache))
	useCache := c.cache != nil && !noCache(params)
	if useCache {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			page, decodeErr := decodePage(entry.Data)
			if decodeErr == nil {
				c.logger.Debug().Str("key", cacheKey.String()).Msg("Serving page from cache")
				serpRequestsTotal.WithLabelValues(engine, "cached").Inc()
				return pagination.ClassifyPage(0, page), nil
			}
			c.logger.Warn().Err(decodeErr).Msg("Dropping undecodable cache entry")
			_ = c.cache.Delete(ctx, cacheKey)
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("engine", engine).Msg("Cache get error")
		}
	}

	// Step 2: Check quota
	if c.quota != nil {
		allowed, err := c.quota.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Quota check failed - continuing without quota gate")
		} else if !allowed {
			serpRequestsTotal.WithLabelValues(engine, "quota_blocked").Inc()
			return pagination.PageResult{}, ratelimit.ErrQuotaExhausted
		}
	}

	// Step 3: Execute request with retry
	resp, err := c.get(ctx, c.endpoint(searchPath, params.Values()), engine)
	if err != nil {
		return pagination.PageResult{}, err
	}
	defer resp.Body.Close()

	// Step 4: Client errors carry a JSON error page when SerpApi rejected the search
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		if page, err := decodePage(body); err == nil {
			if res := pagination.ClassifyPage(0, page); res.Failed() {
				return res, nil
			}
		}
		return pagination.PageResult{}, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    strings.TrimSpace(resp.Status),
		}
	}

	entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
	if err != nil {
		return pagination.PageResult{}, fmt.Errorf("read search response: %w", err)
	}

	page, err := decodePage(entry.Data)
	if err != nil {
		return pagination.PageResult{}, fmt.Errorf("decode search response: %w", err)
	}

	res := pagination.ClassifyPage(0, page)
	if res.Failed() {
		return res, nil
	}

	// Step 5: Account for the search and cache the page
	if c.quota != nil {
		if err := c.quota.RecordSearch(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to record search against quota")
		}
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache page")
		} else {
			c.logger.Debug().
				Str("key", cacheKey.String()).
				Dur("ttl", entry.TTL()).
				Msg("Cached page")
		}
	}

	return res, nil
}

// RefreshQuota queries the Account API and stores the result in the quota
// tracker when Redis is configured. The Account API is free of charge.
func (c *Client) RefreshQuota(ctx context.Context, apiKey string) (*ratelimit.QuotaState, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	resp, err := c.get(ctx, c.endpoint(accountPath, url.Values{pagination.ParamAPIKey: {apiKey}}), "account")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(resp.Status)
		if page, err := decodePage(body); err == nil {
			if remote, ok := page[pagination.FieldError].(string); ok && remote != "" {
				msg = remote
			}
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    msg,
		}
	}

	var info ratelimit.AccountInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode account response: %w", err)
	}

	if c.quota == nil {
		return info.State(), nil
	}
	return c.quota.UpdateFromAccount(ctx, info)
}

// get performs a GET with retries. Responses with a non-retryable status
// are returned to the caller; the caller closes the body.
func (c *Client) get(ctx context.Context, rawURL, engine string) (*http.Response, error) {
	var resp *http.Response

	c.logger.Debug().Str("engine", engine).Msg("Executing SerpApi request")

	err := retryWithBackoff(ctx, c.logger, c.retryConfig, func() (ErrorClass, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return ErrorClassClient, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		r, err := c.httpClient.Do(req)
		if err != nil {
			err = redactURLError(err)
			if ctx.Err() != nil {
				return ErrorClassClient, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			}
			c.logger.Error().Err(err).Str("engine", engine).Msg("HTTP request failed")
			serpErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			serpRequestsTotal.WithLabelValues(engine, "network_error").Inc()
			return ErrorClassNetwork, &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
		}

		serpRequestsTotal.WithLabelValues(engine, strconv.Itoa(r.StatusCode)).Inc()

		if r.StatusCode >= 400 {
			errClass := classifyStatus(r.StatusCode)
			serpErrorsTotal.WithLabelValues(string(errClass)).Inc()

			c.logger.Warn().
				Str("engine", engine).
				Int("status", r.StatusCode).
				Str("error_class", string(errClass)).
				Msg("SerpApi request error")

			if shouldRetry(errClass) {
				r.Body.Close()
				return errClass, &APIError{
					StatusCode: r.StatusCode,
					ErrorClass: errClass,
					Message:    strings.TrimSpace(r.Status),
				}
			}
		}

		resp = r
		return "", nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// retryConfig applies the configured attempt budget and base backoff to the
// per-class schedule.
func (c *Client) retryConfig(errorClass ErrorClass) RetryConfig {
	config := RetryConfigForErrorClass(errorClass)
	config.MaxAttempts = c.config.MaxRetries
	if c.config.InitialBackoff > 0 {
		scale := float64(c.config.InitialBackoff) / float64(time.Second)
		config.InitialBackoff = time.Duration(float64(config.InitialBackoff) * scale)
		config.MaxBackoff = time.Duration(float64(config.MaxBackoff) * scale)
	}
	return config
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()
	return u.String()
}

// classifyStatus categorizes an HTTP error status.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

func decodePage(data []byte) (pagination.Page, error) {
	var page pagination.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("empty page")
	}
	return page, nil
}

func noCache(params pagination.ParameterSet) bool {
	v, _ := params.Get(ParamNoCache)
	return v == "true"
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// GetQuotaTracker returns the quota tracker, nil without Redis.
func (c *Client) GetQuotaTracker() *ratelimit.Tracker {
	return c.quota
}
