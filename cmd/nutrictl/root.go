package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nutristreak/internal/calendar"
	"nutristreak/internal/config"
	"nutristreak/internal/db"
	"nutristreak/internal/logging"
	"nutristreak/internal/services"
)

var (
	databaseURL string
	timezone    string
	jsonOutput  bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "nutrictl",
	Short: "nutrictl inspects streaks, reports and achievements",
	Long:  "nutrictl is the operator CLI for nutristreak. It runs migrations and evaluates streaks, period reports and achievements directly against the database.",

	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Database URL (default $DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", "", "IANA timezone for calendar days (default $APP_TIMEZONE)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
}

type env struct {
	cfg     *config.Config
	clock   *calendar.Normalizer
	tracker *services.Tracker
}

// withTracker opens the database, brings the schema up to date and hands run
// a tracker bound to it.
func withTracker(ctx context.Context, run func(*env) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if timezone != "" {
		cfg.Timezone = timezone
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = logging.New("development"); err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}

	clock, err := calendar.LoadNormalizer(cfg.Timezone)
	if err != nil {
		return err
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.RunMigrations(ctx, conn); err != nil {
		return err
	}

	store := db.NewStore(conn)
	return run(&env{
		cfg:     cfg,
		clock:   clock,
		tracker: services.NewTracker(store, clock, logger),
	})
}

func parseUserID(value string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid --user %q", value)
	}
	if v <= 0 {
		return 0, fmt.Errorf("--user must be > 0")
	}
	return v, nil
}

func parseDayOr(flag, value string, def calendar.Day) (calendar.Day, error) {
	if strings.TrimSpace(value) == "" {
		return def, nil
	}
	d, err := calendar.Parse(strings.TrimSpace(value))
	if err != nil {
		return calendar.Day{}, fmt.Errorf("invalid --%s %q (expected YYYY-MM-DD)", flag, value)
	}
	return d, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
