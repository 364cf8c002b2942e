package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/clubledger/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		version, err := database.Version(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", cfg.Database.Path, version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
