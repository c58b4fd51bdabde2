package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"todoapi/database"
	"todoapi/logger"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the database tables and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
		logger.Info("schema initialized", "driver", db.Driver())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initdbCmd)
}
