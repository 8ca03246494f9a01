package main

import (
	"errors"
	"fmt"
	"time"

	"zephyr-lounge/internal/auth"
	"zephyr-lounge/internal/config"

	"github.com/spf13/cobra"
)

var errTokenInProduction = errors.New("token minting is disabled in production")

func init() {
	tokenCmd.Flags().String("sub", "", "external identity id to put in the token (required)")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("sub")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an HS256 session token for local development",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		sub, _ := cmd.Flags().GetString("sub")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		tok, err := mintToken(cfg, sub, ttl, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func mintToken(cfg config.Config, sub string, ttl time.Duration, now time.Time) (string, error) {
	if cfg.IsProduction() {
		return "", errTokenInProduction
	}
	issuer, err := auth.NewIssuer(cfg.Session)
	if err != nil {
		return "", err
	}
	return issuer.Issue(now, sub, ttl)
}
