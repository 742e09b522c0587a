package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrQuotaExhausted is returned when the account has no searches left.
var ErrQuotaExhausted = errors.New("serpapi search quota exhausted")

// Prometheus metrics for quota tracking.
var (
	serpSearchesLeft = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "serpapi_searches_left",
		Help: "Searches left on the SerpApi account",
	})

	serpQuotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serpapi_quota_blocks_total",
		Help: "Total number of searches blocked because the quota is exhausted",
	})

	serpQuotaThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serpapi_quota_throttles_total",
		Help: "Total number of searches throttled because the quota is nearly exhausted",
	})
)

// DefaultThrottleDelay is how long a throttled search waits.
const DefaultThrottleDelay = 1 * time.Second

// Tracker keeps the account quota in Redis and gates searches.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	throttleDelay time.Duration
}

// NewTracker creates a new quota tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		throttleDelay: DefaultThrottleDelay,
	}
}

// SetThrottleDelay overrides the wait applied to throttled searches.
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttleDelay = d
}

// GetState retrieves the current quota state from Redis.
// Returns an unknown (non-blocking) state if nothing has been stored yet.
func (t *Tracker) GetState(ctx context.Context) (*QuotaState, error) {
	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if errors.Is(err, redis.Nil) {
		t.logger.Debug().Msg("No quota state in Redis, returning unknown state")
		return &QuotaState{Known: false, IsHealthy: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	searchesLeft, err := t.redis.Get(ctx, RedisKeySearchesLeft).Int()
	if err != nil {
		return nil, fmt.Errorf("get searches left: %w", err)
	}

	thisHour, err := t.redis.Get(ctx, RedisKeyThisHourSearches).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get this hour searches: %w", err)
	}

	hourlyLimit, err := t.redis.Get(ctx, RedisKeyHourlyLimit).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get hourly limit: %w", err)
	}

	var lastUpdate time.Time
	if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
		return nil, fmt.Errorf("parse last update: %w", err)
	}

	state := &QuotaState{
		Known:            true,
		SearchesLeft:     searchesLeft,
		ThisHourSearches: thisHour,
		HourlyLimit:      hourlyLimit,
		LastUpdate:       lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromAccount stores the quota reported by the Account API.
func (t *Tracker) UpdateFromAccount(ctx context.Context, info AccountInfo) (*QuotaState, error) {
	state := info.State()

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return nil, fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeySearchesLeft, state.SearchesLeft, 0)
	pipe.Set(ctx, RedisKeyThisHourSearches, state.ThisHourSearches, time.Hour)
	pipe.Set(ctx, RedisKeyHourlyLimit, state.HourlyLimit, 0)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store quota state in redis: %w", err)
	}

	serpSearchesLeft.Set(float64(state.SearchesLeft))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("searches_left", state.SearchesLeft).
			Msg("SerpApi quota exhausted - searches will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("searches_left", state.SearchesLeft).
			Int("this_hour_searches", state.ThisHourSearches).
			Int("hourly_limit", state.HourlyLimit).
			Msg("SerpApi quota low - searches will be throttled")
	default:
		t.logger.Info().
			Int("searches_left", state.SearchesLeft).
			Bool("is_healthy", state.IsHealthy).
			Msg("SerpApi quota state updated")
	}

	return state, nil
}

// RecordSearch accounts for one search that reached SerpApi.
// It is a no-op until the quota has been loaded with UpdateFromAccount.
func (t *Tracker) RecordSearch(ctx context.Context) error {
	exists, err := t.redis.Exists(ctx, RedisKeyLastUpdate).Result()
	if err != nil {
		return fmt.Errorf("check quota state: %w", err)
	}
	if exists == 0 {
		return nil
	}

	pipe := t.redis.TxPipeline()
	left := pipe.Decr(ctx, RedisKeySearchesLeft)
	pipe.Incr(ctx, RedisKeyThisHourSearches)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record search: %w", err)
	}

	serpSearchesLeft.Set(float64(left.Val()))
	return nil
}

// ShouldAllowRequest checks whether a search may be sent.
// Returns false when the quota is exhausted. Sleeps for the throttle delay
// when the quota is low.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get quota state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("searches_left", state.SearchesLeft).
			Msg("SerpApi quota exhausted - blocking search")

		serpQuotaBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("searches_left", state.SearchesLeft).
			Int("this_hour_searches", state.ThisHourSearches).
			Msg("SerpApi quota low - throttling search")

		serpQuotaThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}
