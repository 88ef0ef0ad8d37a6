package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCollection string

var deleteCmd = &cobra.Command{
	Use:   "delete <external-id>",
	Short: "Delete a record from the memory store",
	Long: `Remove the record with the given external id. Deleting a record that
does not exist is a no-op.

Examples:
  recall delete "The Matrix"
  recall delete "https://example.com/readme" --collection docs`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().StringVarP(&deleteCollection, "collection", "c", "", "collection to delete from (default from config)")
}

func runDelete(cmd *cobra.Command, args []string) error {
	collection := cfg.CollectionName
	if deleteCollection != "" {
		collection = deleteCollection
	}

	if err := store.Delete(cmd.Context(), collection, args[0]); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q from %s.\n", args[0], collection)
	return nil
}
