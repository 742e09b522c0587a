package commands

import (
	"github.com/Sternrassler/scholar-serp/pkg/scholar"
	"github.com/spf13/cobra"
)

var organicColumns = []string{"position", "title", "link"}

func newOrganicCmd(a *app) *cobra.Command {
	var paginate bool

	cmd := &cobra.Command{
		Use:   "organic <query> [--paginate]",
		Short: "Fetches Google Scholar organic results for a query.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := a.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			res, err := svc.OrganicResults(cmd.Context(), scholar.OrganicRequest{
				Query:    args[0],
				APIKey:   a.cfg.APIKey,
				Language: a.cfg.Language,
				Paginate: paginate,
			})
			if err != nil {
				return err
			}
			if res.Truncated != nil {
				a.logger.Warn().Str("error", res.Truncated.Message).Msg("Results are partial")
			}

			return a.emit(cmd.OutOrStdout(), output{
				items:   toMaps(res.Items),
				columns: organicColumns,
			})
		},
	}

	cmd.Flags().BoolVar(&paginate, "paginate", false, "Follow every result page.")
	return cmd
}
