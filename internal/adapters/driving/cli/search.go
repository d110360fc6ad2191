package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/loupe-search/loupe/internal/core/domain"
)

var (
	searchLimit  int
	searchOffset int
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index",
	Long: `Evaluates a query against the index and prints ranked results.

Examples:
  loupe search 'invoice ext:pdf'
  loupe search 'tag:work mtime:<7d -draft'
  loupe search '"project plan" OR roadmap'`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		if err := setup(); err != nil {
			return err
		}
	}

	results, err := queryService.Search(context.Background(), args[0], domain.SearchOptions{
		Limit:  searchLimit,
		Offset: searchOffset,
	})
	if err != nil {
		var perr *domain.ParseError
		var ferr *domain.UnknownFieldError
		if errors.As(err, &perr) || errors.As(err, &ferr) {
			return fmt.Errorf("invalid query: %w", err)
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchList(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchList(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, r := range results {
		cmd.Printf("  [%d] %s (%.1f)\n", i+1, r.Entry.Path, r.Score)
		detail := fmt.Sprintf("%s, %s, modified %s",
			r.Entry.Kind,
			humanize.IBytes(uint64(r.Entry.Size)),
			humanize.Time(r.Entry.ModTime))
		if len(r.Entry.Tags) > 0 {
			detail += ", tags: "
			for j, tag := range r.Entry.Tags {
				if j > 0 {
					detail += ", "
				}
				detail += "#" + tag
			}
		}
		cmd.Printf("      %s\n", detail)
	}
	return nil
}
