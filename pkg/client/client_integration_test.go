//go:build integration

package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/scholar-serp/internal/testutil"
	"github.com/Sternrassler/scholar-serp/pkg/cache"
	"github.com/Sternrassler/scholar-serp/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_FullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockSerpApi()
	defer mock.Close()

	page := testutil.NewPageResponse(testutil.SearchPage("organic_results", []map[string]any{{"title": "a"}}, ""))
	page.Headers["Expires"] = time.Now().Add(10 * time.Minute).Format(http.TimeFormat)
	mock.SetResponse("/search.json", page)

	c := newTestClient(t, mock, redisClient)
	ctx := context.Background()

	if _, err := c.RefreshQuota(ctx, "secret"); err != nil {
		t.Fatalf("RefreshQuota() error = %v", err)
	}
	mock.Reset()

	params := pagination.ParameterSet{APIKey: "secret", Engine: "google_scholar", Query: "minecraft", Extra: map[string]string{}}

	// First request hits the server
	if _, err := c.FetchPage(ctx, params); err != nil {
		t.Fatalf("First FetchPage() error = %v", err)
	}
	// Second request is served from Redis
	if _, err := c.FetchPage(ctx, params); err != nil {
		t.Fatalf("Second FetchPage() error = %v", err)
	}
	if n := mock.GetRequestCount(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}

	entry, err := c.GetCache().Get(ctx, cache.KeyFor(params))
	if err != nil {
		t.Fatalf("cache Get() error = %v", err)
	}
	if ttl := entry.TTL(); ttl > 11*time.Minute || ttl < 8*time.Minute {
		t.Errorf("cached TTL = %v, want about 10m from the Expires header", ttl)
	}

	state, err := c.GetQuotaTracker().GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.SearchesLeft != 999 {
		t.Errorf("SearchesLeft = %d, want 999 (one uncached search)", state.SearchesLeft)
	}
}
