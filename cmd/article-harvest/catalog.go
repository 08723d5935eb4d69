package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-harvest/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the harvest ledger",
	Long: `Catalog reports on the SQLite ledger the downloader commands maintain
when run with --catalog.`,
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Record counts per source and journal",
	RunE:  runCatalogStats,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List harvested records",
	RunE:  runCatalogList,
}

func init() {
	catalogCmd.PersistentFlags().String("catalog", "data/harvest.db", "SQLite harvest ledger path")
	catalogListCmd.Flags().String("source", "", "only list records from this source")

	catalogCmd.AddCommand(catalogStatsCmd)
	catalogCmd.AddCommand(catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}

func openCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no catalog at %s: %w", path, err)
	}
	return catalog.Open(path)
}

func runCatalogStats(cmd *cobra.Command, args []string) error {
	cat, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	stats, err := cat.Stats(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tJOURNAL\tRECORDS")
	total := 0
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%s\t%d\n", s.Source, s.Journal, s.Count)
		total += s.Count
	}
	fmt.Fprintf(w, "\ttotal\t%d\n", total)
	return w.Flush()
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	cat, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	source, _ := cmd.Flags().GetString("source")
	entries, err := cat.List(cmd.Context(), source)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tJOURNAL\tDOI\tPATH")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Source, e.Journal, e.DOI, e.Path)
	}
	return w.Flush()
}
