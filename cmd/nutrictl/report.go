package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"nutristreak/internal/apperror"
	"nutristreak/internal/calendar"
	"nutristreak/internal/services"
)

var (
	reportUser  string
	reportStart string
	reportMonth string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build weekly and monthly period reports",
}

var reportWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Report the 7 days starting at --start",
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := parseUserID(reportUser)
		if err != nil {
			return err
		}
		return withTracker(cmd.Context(), func(e *env) error {
			start, err := parseDayOr("start", reportStart, e.clock.Today().AddDays(-6))
			if err != nil {
				return err
			}
			r, err := e.tracker.WeeklyReport(cmd.Context(), uid, start)
			return renderReport(cmd.OutOrStdout(), r, err)
		})
	},
}

var reportMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Report a calendar month",
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := parseUserID(reportUser)
		if err != nil {
			return err
		}
		return withTracker(cmd.Context(), func(e *env) error {
			month := strings.TrimSpace(reportMonth)
			if month == "" {
				today := e.clock.Today()
				month = fmt.Sprintf("%04d-%02d", today.Year, int(today.Month))
			}
			first, last, err := calendar.ParseMonth(month)
			if err != nil {
				return fmt.Errorf("invalid --month %q (expected YYYY-MM)", reportMonth)
			}
			r, err := e.tracker.MonthlyReport(cmd.Context(), uid, first, last)
			return renderReport(cmd.OutOrStdout(), r, err)
		})
	},
}

func renderReport(w io.Writer, r services.PeriodReport, err error) error {
	missing := errors.Is(err, apperror.ErrMissingProfile)
	if err != nil && !missing {
		return err
	}
	if jsonOutput {
		return printJSON(w, struct {
			services.PeriodReport
			SetupRequired bool `json:"setup_required"`
		}{r, missing})
	}

	fmt.Fprintf(w, "%s report %s .. %s\n", reportTitle(r.Kind), r.Start, r.End)
	if missing {
		fmt.Fprintln(w, "Goals: not set")
	}
	fmt.Fprintf(w, "Days logged: %d/%d | Meals: %d\n", r.DaysLogged, len(r.Days), r.TotalMeals)
	a := r.Averages
	fmt.Fprintf(w, "Averages: %.0f kcal | P %.1fg | C %.1fg | F %.1fg | Water %.0fml\n", a.Calories, a.Protein, a.Carbs, a.Fats, a.WaterML)
	g := r.GoalHits
	fmt.Fprintf(w, "Goal days: calories %d | protein %d | carbs %d | water %d\n", g.Calories, g.Protein, g.Carbs, g.Water)
	if r.Kind == services.ReportWeekly {
		fmt.Fprintf(w, "Longest streak: %d\n", r.LongestStreak)
	}
	for _, wk := range r.Weeks {
		fmt.Fprintf(w, "Week %d (%s .. %s): %d [%s]\n", wk.Index+1, wk.Start, wk.End, wk.Score, wk.Label)
	}
	if r.BestWeek != nil && r.WorstWeek != nil {
		fmt.Fprintf(w, "Best week: %d | Worst week: %d\n", r.BestWeek.Index+1, r.WorstWeek.Index+1)
	}
	for i, f := range r.TopFoods {
		fmt.Fprintf(w, "%d. %s (%d)\n", i+1, f.Name, f.Count)
	}
	for _, s := range r.Insights {
		fmt.Fprintf(w, "- %s\n", s)
	}
	return nil
}

func reportTitle(k services.ReportKind) string {
	if k == services.ReportWeekly {
		return "Weekly"
	}
	return "Monthly"
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportWeeklyCmd, reportMonthlyCmd)
	reportCmd.PersistentFlags().StringVar(&reportUser, "user", "", "User ID")
	reportWeeklyCmd.Flags().StringVar(&reportStart, "start", "", "First day YYYY-MM-DD (default 6 days ago)")
	reportMonthlyCmd.Flags().StringVar(&reportMonth, "month", "", "Month YYYY-MM (default current month)")
}
