package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-harvest/internal/logging"
	"github.com/pdiddy/article-harvest/internal/merge"
	"github.com/pdiddy/article-harvest/internal/sources/science"
)

var sciURLsCmd = &cobra.Command{
	Use:   "sci-urls",
	Short: "Emit an aria2c input file of Science PDF URLs",
	Long: `Sci-urls merges the collected metadata files, picks out Science-family
articles, and writes an aria2c input file mapping each article's PDF URL to
its place in the output tree. Science has no harvesting API, so the actual
download is delegated:

    aria2c --input-file chrome/sci_urls.txt`,
	RunE: runSciURLs,
}

func init() {
	sciURLsCmd.Flags().StringSlice("data-glob", []string{"metadata/*/*.json"}, "glob(s) for the metadata JSON files to merge")
	sciURLsCmd.Flags().String("output", "chrome/sci_urls.txt", "aria2c input file to write")
	sciURLsCmd.Flags().String("pdf-dir", "pdf", "root directory the PDFs will land in")
	rootCmd.AddCommand(sciURLsCmd)
}

func runSciURLs(cmd *cobra.Command, args []string) error {
	globs, _ := cmd.Flags().GetStringSlice("data-glob")
	output, _ := cmd.Flags().GetString("output")
	pdfDir, _ := cmd.Flags().GetString("pdf-dir")

	records, err := merge.Load(globs, logging.NewLogger("sci-urls"))
	if err != nil {
		return err
	}

	n, err := science.WriteFile(output, science.Aria2Input(records, pdfDir))
	if err != nil {
		return err
	}
	fmt.Printf("Converted %d Science article URLs to aria2c format in %s\n", n, output)
	return nil
}
