package main

import (
	"zephyr-lounge/internal/database"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := database.Migrate(cmd.Context(), cfg, log); err != nil {
			log.Error("migrations failed", "err", err)
			return err
		}
		return nil
	},
}
