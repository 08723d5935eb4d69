package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-harvest/internal/logging"
	"github.com/pdiddy/article-harvest/internal/sources/rss"
)

var rssCmd = &cobra.Command{
	Use:   "rss",
	Short: "Collect article metadata from journal RSS feeds",
	Long: `Rss fetches the configured journal feeds and writes one dated metadata
JSON file per invocation under <output-dir>/<year>/<mmdd>.json. News items
and corrections are filtered out. The downloader commands later merge these
files into their work lists.`,
	RunE: runRSS,
}

func init() {
	rssCmd.Flags().String("output-dir", "metadata", "base directory for the dated metadata files")
	rssCmd.Flags().StringSlice("feed", nil, "extra feed as name=url (repeatable; added to the default set)")
	rootCmd.AddCommand(rssCmd)
}

func runRSS(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	extra, _ := cmd.Flags().GetStringSlice("feed")

	feeds := rss.DefaultFeeds()
	for _, spec := range extra {
		name, url, found := strings.Cut(spec, "=")
		if !found || name == "" || url == "" {
			return fmt.Errorf("bad --feed %q: expected name=url", spec)
		}
		feeds[name] = url
	}

	h := rss.New(outputDir, feeds, logging.NewLogger("rss"))
	_, err := h.Run(cmd.Context(), os.Stdout)
	return err
}
