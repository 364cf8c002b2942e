package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/clubledger/internal/auth"
	"github.com/dukerupert/clubledger/internal/model"
	"github.com/dukerupert/clubledger/internal/store"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <email> <password>",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		admin, _ := cmd.Flags().GetBool("admin")

		hash, err := auth.HashPassword(args[1])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		role := model.RoleMember
		if admin {
			role = model.RoleAdmin
		}
		email := strings.ToLower(strings.TrimSpace(args[0]))
		u, err := store.NewUserStore(db).Create(cmd.Context(), email, hash, strings.TrimSpace(name), role)
		if errors.Is(err, store.ErrEmailTaken) {
			return fmt.Errorf("a user with email %s already exists", email)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %s (id %d)\n", role, u.Email, u.ID)
		return nil
	},
}

var userPasswordCmd = &cobra.Command{
	Use:   "set-password <email> <password>",
	Short: "Reset a user's password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[1])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		us := store.NewUserStore(db)
		u, err := us.GetByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(args[0])))
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("no user with email %s", args[0])
		}
		if err := us.SetPassword(cmd.Context(), u.ID, hash); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", u.Email)
		return nil
	},
}

func init() {
	userAddCmd.Flags().String("name", "", "full name")
	userAddCmd.Flags().Bool("admin", false, "grant the admin role")
	userCmd.AddCommand(userAddCmd, userPasswordCmd)
	rootCmd.AddCommand(userCmd)
}
