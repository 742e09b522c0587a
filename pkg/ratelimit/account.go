package ratelimit

import "time"

// AccountInfo is the subset of the SerpApi Account API response used for quota tracking.
type AccountInfo struct {
	AccountEmail            string `json:"account_email"`
	PlanName                string `json:"plan_name"`
	SearchesPerMonth        int    `json:"searches_per_month"`
	PlanSearchesLeft        int    `json:"plan_searches_left"`
	ExtraCredits            int    `json:"extra_credits"`
	TotalSearchesLeft       int    `json:"total_searches_left"`
	ThisMonthUsage          int    `json:"this_month_usage"`
	ThisHourSearches        int    `json:"this_hour_searches"`
	LastHourSearches        int    `json:"last_hour_searches"`
	AccountRateLimitPerHour int    `json:"account_rate_limit_per_hour"`
}

// State converts the account snapshot into a QuotaState stamped with now.
func (a AccountInfo) State() *QuotaState {
	state := &QuotaState{
		Known:            true,
		SearchesLeft:     a.TotalSearchesLeft,
		ThisHourSearches: a.ThisHourSearches,
		HourlyLimit:      a.AccountRateLimitPerHour,
		LastUpdate:       time.Now(),
	}
	state.UpdateHealth()
	return state
}
