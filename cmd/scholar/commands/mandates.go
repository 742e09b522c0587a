package commands

import (
	"github.com/Sternrassler/scholar-serp/pkg/mandates"
	"github.com/spf13/cobra"
)

func newMandatesCmd(a *app) *cobra.Command {
	var showBrowser bool

	cmd := &cobra.Command{
		Use:   "mandates",
		Short: "Scrapes the Google Scholar top mandates leaderboard with headless Chrome.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.BrowserConfig()
			if showBrowser {
				cfg.Headless = false
			}

			rows, err := mandates.NewScraper(mandates.NewChromeBrowser(cfg)).Scrape(cmd.Context(), a.cfg.Language)
			if err != nil {
				return err
			}

			items := make([]map[string]any, len(rows))
			for i, r := range rows {
				items[i] = r.Item()
			}

			return a.emit(cmd.OutOrStdout(), output{
				items:   items,
				columns: mandates.Columns,
				doc:     rows,
			})
		},
	}

	cmd.Flags().BoolVar(&showBrowser, "show-browser", false, "Run Chrome with a visible window.")
	return cmd
}
