package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagemill/pagemill/internal/crawl"
)

func newScrapeCmd() *cobra.Command {
	var (
		siteID         string
		timeoutSeconds int
	)
	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Fetch, normalize, and persist a single page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			timeout := a.Config.ScrapeTimeout()
			if timeoutSeconds > 0 {
				timeout = time.Duration(timeoutSeconds) * time.Second
			}
			record, err := a.Controller.ScrapePage(cmd.Context(), siteID, crawl.ScrapeRequest{
				URL:     args[0],
				Timeout: timeout,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url:            %s\n", record.URL)
			fmt.Fprintf(out, "title:          %s\n", record.Title)
			fmt.Fprintf(out, "content bytes:  %d\n", len(record.MainContent))
			fmt.Fprintf(out, "headings:       %d\n", len(record.Headings))
			fmt.Fprintf(out, "internal links: %d\n", len(record.LinksInternal))
			fmt.Fprintf(out, "external links: %d\n", len(record.LinksExternal))
			return nil
		},
	}
	cmd.Flags().StringVar(&siteID, "site", "adhoc", "site id to file the page under")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "per-fetch timeout in seconds (default from config)")
	return cmd
}
