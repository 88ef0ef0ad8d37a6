package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchLimit        int
	searchMinRelevance float64
	searchCollection   string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "One-shot semantic search against the memory store",
	Long: `Embed the query and print the closest records as a ranked table.

Examples:
  recall search "how do I get started with notebooks?"
  recall search "a heist movie with a twist" --limit 5
  recall search "time travel" --min-relevance 0.7`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "max results (default from config)")
	searchCmd.Flags().Float64Var(&searchMinRelevance, "min-relevance", -1, "minimum relevance score (default from config)")
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "c", "", "collection to search (default from config)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	sess, err := getSession(false)
	if err != nil {
		return err
	}

	collection := cfg.CollectionName
	if searchCollection != "" {
		collection = searchCollection
	}
	limit := cfg.SearchLimit
	if searchLimit > 0 {
		limit = searchLimit
	}
	minRelevance := cfg.MinRelevance
	if searchMinRelevance >= 0 {
		minRelevance = searchMinRelevance
	}

	results, err := sess.Query(cmd.Context(), collection, args[0], limit, minRelevance)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), renderResultTable(results, terminalWidth()))
	return nil
}
