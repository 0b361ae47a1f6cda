package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nutristreak/internal/apperror"
)

var (
	streakUser string
	streakDate string
)

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Refresh and print a user's streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := parseUserID(streakUser)
		if err != nil {
			return err
		}
		return withTracker(cmd.Context(), func(e *env) error {
			day, err := parseDayOr("date", streakDate, e.clock.Today())
			if err != nil {
				return err
			}
			view, err := e.tracker.RefreshStreak(cmd.Context(), uid, day)
			if err != nil && !errors.Is(err, apperror.ErrPersistenceUnavailable) {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User: %d\n", uid)
			fmt.Fprintf(out, "Date: %s\n", day)
			fmt.Fprintf(out, "Current streak: %d\n", view.Display)
			fmt.Fprintf(out, "Longest streak: %d\n", view.Record.MaxStreak)
			fmt.Fprintf(out, "Logged today: %t\n", view.LoggedToday)
			if view.Stale {
				fmt.Fprintln(out, "Warning: streak could not be saved; showing last known value")
			}
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(streakCmd)
	streakCmd.Flags().StringVar(&streakUser, "user", "", "User ID")
	streakCmd.Flags().StringVar(&streakDate, "date", "", "Date YYYY-MM-DD (default today)")
	_ = streakCmd.MarkFlagRequired("user")
}
