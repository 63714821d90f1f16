package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the pages ingest would load",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		for _, source := range cfg.SourceList() {
			fmt.Fprintln(cmd.OutOrStdout(), source.URL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
