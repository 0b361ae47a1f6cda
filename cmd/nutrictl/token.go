package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nutristreak/internal/config"
	"nutristreak/internal/middleware"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := parseUserID(tokenUser)
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.RequireServer(); err != nil {
			return err
		}
		token, err := middleware.IssueToken([]byte(cfg.JWTSecret), uid, tokenTTL)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"user_id": uid, "token": token, "expires_in": tokenTTL.String()})
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User ID")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}
