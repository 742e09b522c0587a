package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
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

func newTestTracker(t *testing.T) *Tracker {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(setupTestRedis(t), logger)
	tracker.SetThrottleDelay(time.Millisecond)
	return tracker
}

func TestTracker_GetState_Unknown(t *testing.T) {
	tracker := newTestTracker(t)

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Known {
		t.Error("state should be unknown before the first account refresh")
	}

	allowed, err := tracker.ShouldAllowRequest(context.Background())
	if err != nil || !allowed {
		t.Errorf("ShouldAllowRequest() = %v, %v; want true, nil", allowed, err)
	}
}

func TestTracker_UpdateFromAccount(t *testing.T) {
	tests := []struct {
		name        string
		info        AccountInfo
		wantAllowed bool
		wantHealthy bool
	}{
		{
			name:        "healthy account",
			info:        AccountInfo{TotalSearchesLeft: 250, ThisHourSearches: 3, AccountRateLimitPerHour: 1000},
			wantAllowed: true,
			wantHealthy: true,
		},
		{
			name:        "low quota throttles but allows",
			info:        AccountInfo{TotalSearchesLeft: 4},
			wantAllowed: true,
			wantHealthy: false,
		},
		{
			name:        "exhausted quota blocks",
			info:        AccountInfo{TotalSearchesLeft: 0},
			wantAllowed: false,
			wantHealthy: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(t)
			ctx := context.Background()

			if _, err := tracker.UpdateFromAccount(ctx, tt.info); err != nil {
				t.Fatalf("UpdateFromAccount() error = %v", err)
			}

			state, err := tracker.GetState(ctx)
			if err != nil {
				t.Fatalf("GetState() error = %v", err)
			}
			if state.SearchesLeft != tt.info.TotalSearchesLeft {
				t.Errorf("SearchesLeft = %d, want %d", state.SearchesLeft, tt.info.TotalSearchesLeft)
			}
			if state.IsHealthy != tt.wantHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.wantHealthy)
			}

			allowed, err := tracker.ShouldAllowRequest(ctx)
			if err != nil {
				t.Fatalf("ShouldAllowRequest() error = %v", err)
			}
			if allowed != tt.wantAllowed {
				t.Errorf("ShouldAllowRequest() = %v, want %v", allowed, tt.wantAllowed)
			}
		})
	}
}

func TestTracker_RecordSearch(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	// No state yet: nothing to decrement.
	if err := tracker.RecordSearch(ctx); err != nil {
		t.Fatalf("RecordSearch() error = %v", err)
	}
	if state, _ := tracker.GetState(ctx); state.Known {
		t.Fatal("RecordSearch() must not create quota state")
	}

	if _, err := tracker.UpdateFromAccount(ctx, AccountInfo{TotalSearchesLeft: 2, ThisHourSearches: 7}); err != nil {
		t.Fatalf("UpdateFromAccount() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := tracker.RecordSearch(ctx); err != nil {
			t.Fatalf("RecordSearch() error = %v", err)
		}
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.SearchesLeft != 0 {
		t.Errorf("SearchesLeft = %d, want 0", state.SearchesLeft)
	}
	if state.ThisHourSearches != 9 {
		t.Errorf("ThisHourSearches = %d, want 9", state.ThisHourSearches)
	}
	if !state.NeedsCriticalBlock() {
		t.Error("exhausted quota should block")
	}
}
