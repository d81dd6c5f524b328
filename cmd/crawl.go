package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagemill/pagemill/internal/crawl"
)

func newCrawlCmd() *cobra.Command {
	var (
		limit    int
		exclude  []string
		classify bool
	)
	cmd := &cobra.Command{
		Use:   "crawl <site-id> <seed-url>",
		Short: "Run one crawl session for a site",
		Long: `Crawls a site through the configured engine, normalizes every page,
and persists the results. The session record tracks progress and the
final outcome.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = a.Config.Crawl.PageLimitDefault
			}
			summary, err := a.Controller.RunCrawl(cmd.Context(), args[0], args[1], crawl.CrawlOptions{
				PageLimit:     limit,
				ExcludePaths:  exclude,
				RunClassifier: classify,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "crawl complete: %d pages processed\n", summary.PagesProcessed)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum pages to crawl (default from config)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "path patterns to skip, e.g. /blog/*")
	cmd.Flags().BoolVar(&classify, "classify", false, "trigger page classification after the crawl")
	return cmd
}
