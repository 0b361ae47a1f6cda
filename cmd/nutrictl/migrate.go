package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nutristreak/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd.Context(), func(e *env) error {
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]int{"schema_version": db.LatestVersion()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", db.LatestVersion())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
