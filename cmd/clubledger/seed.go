package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/clubledger/internal/seed"
	"github.com/dukerupert/clubledger/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill a user's ledger with demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		var opts seed.Options
		opts.Seed, _ = cmd.Flags().GetInt64("seed")
		opts.Events, _ = cmd.Flags().GetInt("events")
		opts.GeneralCosts, _ = cmd.Flags().GetInt("costs")

		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		u, err := store.NewUserStore(db).GetByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(email)))
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("no user with email %s", email)
		}

		res, err := seed.Run(cmd.Context(), db, u.ID, opts, logger)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Seeded ledger for %s\n", u.Email)
		fmt.Fprintf(out, "  ingredients:   %d\n", res.Ingredients)
		fmt.Fprintf(out, "  recipes:       %d\n", res.Recipes)
		fmt.Fprintf(out, "  menu items:    %d\n", res.MenuItems)
		fmt.Fprintf(out, "  events:        %d (%d items)\n", res.Events, res.EventItems)
		fmt.Fprintf(out, "  general costs: %d\n", res.GeneralCosts)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("email", "", "email of the user to seed (required)")
	seedCmd.Flags().Int64("seed", 0, "random seed (default: time based)")
	seedCmd.Flags().Int("events", 0, "number of events (default 4)")
	seedCmd.Flags().Int("costs", 0, "number of general costs (default 6)")
	_ = seedCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(seedCmd)
}
