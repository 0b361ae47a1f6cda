package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var achievementsUser string

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "Show achievement progress for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := parseUserID(achievementsUser)
		if err != nil {
			return err
		}
		return withTracker(cmd.Context(), func(e *env) error {
			progress, err := e.tracker.Progress(cmd.Context(), uid, e.clock.Today())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), progress)
			}
			for _, p := range progress {
				mark := " "
				if p.Earned {
					mark = "x"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %-16s %3d%%  %s\n", mark, p.Title, p.Progress, p.Description)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(achievementsCmd)
	achievementsCmd.Flags().StringVar(&achievementsUser, "user", "", "User ID")
	_ = achievementsCmd.MarkFlagRequired("user")
}
