package cli

import (
	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage the vector collection",
}

var collectionEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the vector collection if it does not exist",
	Long: `Creates the configured collection with the embedding dimension and
similarity metric. Running it again is a no-op. It fails if the
collection already exists with a different dimension or metric.`,
	Args: cobra.NoArgs,
	RunE: runCollectionEnsure,
}

func init() {
	collectionCmd.AddCommand(collectionEnsureCmd)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionEnsure(cmd *cobra.Command, _ []string) error {
	ingestor, _, closeFn, err := buildIngestor(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	if err := ingestor.EnsureCollection(cmd.Context()); err != nil {
		return err
	}

	schema := ingestor.Collection()
	cmd.Printf("Collection %s ready (%s).\n", schema.Name, schema)
	return nil
}
