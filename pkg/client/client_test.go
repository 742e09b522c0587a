package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/scholar-serp/internal/testutil"
	"github.com/Sternrassler/scholar-serp/pkg/pagination"
	"github.com/Sternrassler/scholar-serp/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

const testUserAgent = "ScholarSerpTest/1.0.0 (test@example.com)"

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

// newTestClient builds a client against mock with millisecond backoff.
func newTestClient(t *testing.T, mock *testutil.MockSerpApi, redisClient *redis.Client) *Client {
	t.Helper()

	cfg := DefaultConfig(redisClient, testUserAgent)
	cfg.BaseURL = mock.URL()
	cfg.InitialBackoff = time.Millisecond

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracker := c.GetQuotaTracker(); tracker != nil {
		tracker.SetThrottleDelay(time.Millisecond)
	}
	return c
}

func organicParams() pagination.ParameterSet {
	return pagination.ParameterSet{
		APIKey:   "secret",
		Engine:   "google_scholar",
		Query:    "minecraft",
		Language: "en",
		Extra:    map[string]string{},
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config without redis",
			config:      Config{UserAgent: testUserAgent, MaxRetries: 3},
			expectError: false,
		},
		{
			name:        "empty user agent",
			config:      Config{MaxRetries: 3},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name:        "relative base url",
			config:      Config{UserAgent: testUserAgent, BaseURL: "/search", MaxRetries: 3},
			expectError: true,
			errorMsg:    `invalid base url "/search"`,
		},
		{
			name:        "no attempts",
			config:      Config{UserAgent: testUserAgent, MaxRetries: 0},
			expectError: true,
			errorMsg:    "max_retries must be >= 1 (got 0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if client.GetCache() != nil || client.GetQuotaTracker() != nil {
				t.Error("cache and quota tracker should be disabled without redis")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(nil, testUserAgent)

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.UserAgent != testUserAgent {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, testUserAgent)
	}
	if cfg.MaxRetries < 1 {
		t.Errorf("MaxRetries = %d, should be >= 1", cfg.MaxRetries)
	}
	if cfg.CacheTTL <= 0 {
		t.Errorf("CacheTTL = %v, should be > 0", cfg.CacheTTL)
	}
}

func TestFetchPage_Success(t *testing.T) {
	mock := testutil.NewMockSerpApi()
	defer mock.Close()

	items := []map[string]any{{"title": "a"}, {"title": "b"}}
	mock.SetResponse("/search.json", testutil.NewPageResponse(testutil.SearchPage("organic_results", items, "")))

	c := newTestClient(t, mock, nil)
	res, err := c.FetchPage(context.Background(), organicParams().With("start", "0"))
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if res.Failed() {
		t.Fatalf("FetchPage() remote error = %v", res.Remote)
	}

	got, err := res.Page.List("organic_results")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0]["title"] != "a" {
		t.Errorf("organic_results = %v", got)
	}

	query := mock.GetQueries()[0]
	want := url.Values{
		"api_key": {"secret"},
		"engine":  {"google_scholar"},
		"q":       {"minecraft"},
		"hl":      {"en"},
		"start":   {"0"},
	}
	for k := range want {
		if query.Get(k) != want.Get(k) {
			t.Errorf("query %s = %q, want %q", k, query.Get(k), want.Get(k))
		}
	}
	if ua := mock.LastRequestHeader.Get("User-Agent"); ua != testUserAgent {
		t.Errorf("User-Agent = %q, want %q", ua, testUserAgent)
	}
}

func TestFetchPage_RemoteError(t *testing.T) {
	tests := []struct {
		name    string
		resp    testutil.MockResponse
		message string
	}{
		{
			name:    "error field in 200 page",
			resp:    testutil.NewRemoteErrorResponse("Google hasn't returned any results for this query."),
			message: "Google hasn't returned any results for this query.",
		},
		{
			name:    "invalid api key",
			resp:    testutil.NewInvalidKeyResponse(),
			message: "Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockSerpApi()
			defer mock.Close()
			mock.SetResponse("/search.json", tt.resp)

			c := newTestClient(t, mock, nil)
			res, err := c.FetchPage(context.Background(), organicParams())
			if err != nil {
				t.Fatalf("FetchPage() error = %v, want remote error page", err)
			}
			if !res.Failed() {
				t.Fatal("expected failed PageResult")
			}
			if res.Remote.Message != tt.message {
				t.Errorf("Remote.Message = %q, want %q", res.Remote.Message, tt.message)
			}
			if n := mock.GetRequestCount(); n != 1 {
				t.Errorf("requests = %d, want 1 (remote errors are not retried)", n)
			}
		})
	}
}

func TestFetchPage_ClientErrorWithoutPage(t *testing.T) {
	mock := testutil.NewMockSerpApi()
	defer mock.Close()
	mock.SetResponse("/search.json", testutil.MockResponse{StatusCode: http.StatusNotFound, Body: "not found"})

	c := newTestClient(t, mock, nil)
	_, err := c.FetchPage(context.Background(), organicParams())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.ErrorClass != ErrorClassClient {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestFetchPage_ServerErrorRetried(t *testing.T) {
	mock := testutil.NewMockSerpApi()
	defer mock.Close()

	ok := testutil.NewPageResponse(testutil.SearchPage("organic_results", []map[string]any{{"title": "a"}}, ""))
	mock.SetSearchSequence(testutil.NewServerErrorResponse(), testutil.NewServerErrorResponse(), ok)

	c := newTestClient(t, mock, nil)
	res, err := c.FetchPage(context.Background(), organicParams())
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected remote error: %v", res.Remote)
	}
	if n := mock.GetRequestCount(); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}

func TestFetchPage_RetryExhausted(t *testing.T) {
	mock := testutil.NewMockSerpApi()
	defer mock.Close()
	mock.SetResponse("/search.json", testutil.NewServerErrorResponse())

	c := newTestClient(t, mock, nil)
	_, err := c.FetchPage(context.Background(), organicParams())
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorClass != ErrorClassServer {
		t.Errorf("expected wrapped server APIError, got %v", err)
	}
	if n := mock.GetRequestCount(); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}

func TestFetchPage_PaginatorFollowsCursor(t *testing.T) {
	mock := testutil.NewMockSerpApi()
	defer mock.Close()

	next := mock.NextURL(url.Values{"engine": {"google_scholar"}, "q": {"minecraft"}, "start": {"10"}})
	mock.SetSearchSequence(
		testutil.NewPageResponse(testutil.SearchPage("organic_results", []map[string]any{{"title": "a"}, {"title": "b"}}, next)),
		testutil.NewPageResponse(testutil.SearchPage("organic_results", []map[string]any{{"title": "c"}}, "")),
	)

	c := newTestClient(t, mock, nil)
	p := pagination.NewPaginator(c, pagination.DefaultConfig())
	policy := pagination.Policy{Name: "organic.paginated", ListField: "organic_results", Shape: pagination.ShapeList}

	result, err := p.FetchAll(context.Background(), organicParams().With("start", "0"), policy)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(result.Items) != 3 || result.Items[2]["title"] != "c" {
		t.Errorf("Items = %v", result.Items)
	}

	queries := mock.GetQueries()
	if len(queries) != 2 {
		t.Fatalf("requests = %d, want 2", len(queries))
	}
	if got := queries[1].Get("start"); got != "10" {
		t.Errorf("second page start = %q, want 10", got)
	}
	if got := queries[1].Get("api_key"); got != "secret" {
		t.Errorf("api_key must survive the cursor merge, got %q", got)
	}
}

func TestFetchPage_Cache(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockSerpApi()
	defer mock.Close()
	mock.SetResponse("/search.json", testutil.NewPageResponse(testutil.SearchPage("organic_results", []map[string]any{{"title": "a"}}, "")))

	c := newTestClient(t, mock, redisClient)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := c.FetchPage(ctx, organicParams())
		if err != nil || res.Failed() {
			t.Fatalf("FetchPage() #%d = %v, %v", i, res.Remote, err)
		}
	}
	if n := mock.GetRequestCount(); n != 1 {
		t.Errorf("requests = %d, want 1 (second fetch served from cache)", n)
	}

	if _, err := c.FetchPage(ctx, organicParams().With(ParamNoCache, "true")); err != nil {
		t.Fatalf("FetchPage(no_cache) error = %v", err)
	}
	if n := mock.GetRequestCount(); n != 2 {
		t.Errorf("requests = %d, want 2 (no_cache bypasses the cache)", n)
	}
}

func TestFetchPage_RemoteErrorNotCached(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockSerpApi()
	defer mock.Close()
	mock.SetResponse("/search.json", testutil.NewRemoteErrorResponse("no results"))

	c := newTestClient(t, mock, redisClient)
	for i := 0; i < 2; i++ {
		if _, err := c.FetchPage(context.Background(), organicParams()); err != nil {
			t.Fatalf("FetchPage() error = %v", err)
		}
	}
	if n := mock.GetRequestCount(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}

func TestFetchPage_QuotaExhausted(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockSerpApi()
	defer mock.Close()
	mock.SetResponse("/account.json", testutil.NewPageResponse(`{"total_searches_left":0,"this_hour_searches":12}`))

	c := newTestClient(t, mock, redisClient)
	ctx := context.Background()

	state, err := c.RefreshQuota(ctx, "secret")
	if err != nil {
		t.Fatalf("RefreshQuota() error = %v", err)
	}
	if !state.NeedsCriticalBlock() {
		t.Fatalf("state = %+v, want critical block", state)
	}

	mock.Reset()
	_, err = c.FetchPage(ctx, organicParams())
	if !errors.Is(err, ratelimit.ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
	if n := mock.GetRequestCount(); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestRefreshQuota_WithoutRedis(t *testing.T) {
	mock := testutil.NewMockSerpApi()
	defer mock.Close()

	c := newTestClient(t, mock, nil)
	state, err := c.RefreshQuota(context.Background(), "secret")
	if err != nil {
		t.Fatalf("RefreshQuota() error = %v", err)
	}
	if !state.Known || state.SearchesLeft != 1000 {
		t.Errorf("state = %+v", state)
	}
	if got := mock.GetQueries()[0].Get("api_key"); got != "secret" {
		t.Errorf("api_key = %q", got)
	}
}

func TestRefreshQuota_InvalidKey(t *testing.T) {
	mock := testutil.NewMockSerpApi()
	defer mock.Close()
	mock.SetResponse("/account.json", testutil.NewInvalidKeyResponse())

	c := newTestClient(t, mock, nil)
	_, err := c.RefreshQuota(context.Background(), "wrong")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
}

func TestTransportError_HidesAPIKey(t *testing.T) {
	cfg := DefaultConfig(nil, testUserAgent)
	cfg.BaseURL = "http://127.0.0.1:1"
	cfg.MaxRetries = 1
	cfg.Timeout = time.Second

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	params := organicParams()
	params.APIKey = "SECRET-KEY-123"

	_, fetchErr := c.FetchPage(context.Background(), params)
	_, quotaErr := c.RefreshQuota(context.Background(), params.APIKey)

	for name, err := range map[string]error{"FetchPage": fetchErr, "RefreshQuota": quotaErr} {
		if err == nil {
			t.Fatalf("%s: expected a transport error", name)
		}
		if strings.Contains(err.Error(), params.APIKey) {
			t.Errorf("%s: error leaks the API key: %v", name, err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.ErrorClass != ErrorClassNetwork {
			t.Errorf("%s: expected network APIError, got %v", name, err)
		}
	}
}

func TestFetchPage_CachedPageServedWhenQuotaExhausted(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockSerpApi()
	defer mock.Close()
	mock.SetResponse("/search.json", testutil.NewPageResponse(testutil.SearchPage("organic_results", []map[string]any{{"title": "a"}}, "")))
	mock.SetResponse("/account.json", testutil.NewPageResponse(`{"total_searches_left":0,"this_hour_searches":12}`))

	c := newTestClient(t, mock, redisClient)
	ctx := context.Background()

	if _, err := c.FetchPage(ctx, organicParams()); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if _, err := c.RefreshQuota(ctx, "secret"); err != nil {
		t.Fatalf("RefreshQuota() error = %v", err)
	}
	before := mock.GetRequestCount()

	res, err := c.FetchPage(ctx, organicParams())
	if err != nil || res.Failed() {
		t.Fatalf("cached FetchPage() = %v, %v", res.Remote, err)
	}

	_, err = c.FetchPage(ctx, organicParams().With("start", "10"))
	if !errors.Is(err, ratelimit.ErrQuotaExhausted) {
		t.Fatalf("uncached FetchPage() error = %v, want ErrQuotaExhausted", err)
	}
	if n := mock.GetRequestCount(); n != before {
		t.Errorf("requests = %d, want %d", n, before)
	}
}
