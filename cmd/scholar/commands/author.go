package commands

import (
	"github.com/Sternrassler/scholar-serp/pkg/scholar"
	"github.com/spf13/cobra"
)

var articleColumns = []string{"title", "year", "cited_by", "link"}

func newAuthorCmd(a *app) *cobra.Command {
	var (
		articles bool
		paginate bool
	)

	cmd := &cobra.Command{
		Use:   "author <author_id> [--articles [--paginate]]",
		Short: "Fetches a Google Scholar author profile, optionally with articles.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := a.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			res, err := svc.AuthorResults(cmd.Context(), scholar.AuthorRequest{
				AuthorID:          args[0],
				APIKey:            a.cfg.APIKey,
				Language:          a.cfg.Language,
				ParseArticles:     articles,
				ArticlePagination: paginate,
			})
			if err != nil {
				return err
			}
			if res.Truncated != nil {
				a.logger.Warn().Str("error", res.Truncated.Message).Msg("Article list is partial")
			}

			out := output{doc: res.Document}
			if articles {
				out.items = toMaps(res.List(scholar.FieldArticles))
				out.columns = articleColumns
			} else if author, ok := res.Document["author"].(map[string]any); ok {
				out.items = []map[string]any{author}
			}

			return a.emit(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().BoolVar(&articles, "articles", false, "Include the author's articles.")
	cmd.Flags().BoolVar(&paginate, "paginate", false, "Follow every article page (with --articles).")
	return cmd
}
