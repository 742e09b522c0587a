package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQuotaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Shows the SerpApi account quota and stores it for quota gating.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.APIKey == "" {
				return fmt.Errorf("missing api_key: set --api-key or SERPAPI_API_KEY")
			}

			c, release, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			state, err := c.RefreshQuota(cmd.Context(), a.cfg.APIKey)
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), output{
				items: []map[string]any{{
					"searches_left":      state.SearchesLeft,
					"this_hour_searches": state.ThisHourSearches,
					"hourly_limit":       state.HourlyLimit,
					"healthy":            state.IsHealthy,
				}},
				columns: []string{"searches_left", "this_hour_searches", "hourly_limit", "healthy"},
				doc:     state,
			})
		},
	}
}
