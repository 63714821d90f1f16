package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-loader/internal/adapters/driving/cli/styles"
	"github.com/custodia-labs/sercha-loader/internal/config"
	"github.com/custodia-labs/sercha-loader/internal/core/domain"
)

var (
	dryRun  bool
	workers int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [url...]",
	Short: "Fetch, chunk, embed and store web pages",
	Long: `Ensures the vector collection exists, then loads every source page.
URLs given as arguments replace the configured source list.

A page that cannot be fetched is skipped and a chunk that cannot be
embedded or stored is logged and counted. Neither stops the run, and the
command still exits 0. Only a collection failure is fatal.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&dryRun, "dry-run", false, "store records in memory instead of the configured store")
	ingestCmd.Flags().IntVarP(&workers, "workers", "w", 0, "chunks embedded concurrently per page (default: from config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ingestor, cfg, closeFn, err := buildIngestor(ctx, func(cfg *config.Config) {
		if len(args) > 0 {
			cfg.Sources = args
		}
		if dryRun {
			cfg.Store.Backend = domain.StoreBackendMemory
		}
		if workers > 0 {
			cfg.Ingest.Workers = workers
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	sources := cfg.SourceList()
	if dryRun {
		cmd.Printf("Dry run: %d sources, records are kept in memory.\n", len(sources))
	}

	report, err := ingestor.Run(ctx, sources)
	if report != nil {
		out := cmd.OutOrStdout()
		var st *styles.Styles
		if isTerminal(out) {
			st = styles.DefaultStyles()
		}
		fmt.Fprintln(out, renderSummary(report, st))
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

// isTerminal returns true if w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
