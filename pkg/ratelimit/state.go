// Package ratelimit tracks the SerpApi account quota and gates searches.
// State comes from the SerpApi Account API (/account.json) and is kept in
// Redis so that every process sharing an API key sees the same budget.
package ratelimit

import (
	"time"
)

// Redis keys for quota state storage.
const (
	RedisKeySearchesLeft     = "serpapi:quota:searches_left"
	RedisKeyThisHourSearches = "serpapi:quota:this_hour_searches"
	RedisKeyHourlyLimit      = "serpapi:quota:hourly_limit"
	RedisKeyLastUpdate       = "serpapi:quota:last_update"
)

// Thresholds for quota decisions.
const (
	// SearchesThresholdCritical blocks searches when fewer searches than this remain.
	SearchesThresholdCritical = 1

	// SearchesThresholdWarning throttles searches when fewer than this remain.
	SearchesThresholdWarning = 10

	// HourlyUsageWarning throttles when this share of the hourly limit is used.
	HourlyUsageWarning = 0.9
)

// QuotaState is the last known SerpApi quota of the configured account.
type QuotaState struct {
	// Known is false until the account endpoint has been queried at least once.
	Known bool `json:"known"`

	// SearchesLeft is total_searches_left from the Account API, decremented per search.
	SearchesLeft int `json:"searches_left"`

	// ThisHourSearches is this_hour_searches, incremented per search.
	ThisHourSearches int `json:"this_hour_searches"`

	// HourlyLimit is account_rate_limit_per_hour (0 when unlimited or unknown).
	HourlyLimit int `json:"hourly_limit"`

	// LastUpdate is when the state was last refreshed from the Account API.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when neither blocking nor throttling applies.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state is older than maxAge.
func (s *QuotaState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if searches must be refused.
func (s *QuotaState) NeedsCriticalBlock() bool {
	return s.Known && s.SearchesLeft < SearchesThresholdCritical
}

// NeedsThrottling returns true if searches should be slowed down.
func (s *QuotaState) NeedsThrottling() bool {
	if !s.Known || s.NeedsCriticalBlock() {
		return false
	}
	if s.SearchesLeft < SearchesThresholdWarning {
		return true
	}
	return s.HourlyLimit > 0 && float64(s.ThisHourSearches) >= HourlyUsageWarning*float64(s.HourlyLimit)
}

// UpdateHealth recomputes IsHealthy.
func (s *QuotaState) UpdateHealth() {
	s.IsHealthy = !s.NeedsCriticalBlock() && !s.NeedsThrottling()
}
