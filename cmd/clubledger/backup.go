package main

import (
	"database/sql"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dukerupert/clubledger/internal/backup"
	"github.com/dukerupert/clubledger/internal/server"
	"github.com/dukerupert/clubledger/internal/store"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list and restore encrypted database backups",
}

func newBackupManager(db *sql.DB) *backup.Manager {
	return backup.NewManager(server.BackupConfig(cfg.Backup), db, store.NewBackupStore(db), logger, nil)
}

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Take a backup now",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		id, err := newBackupManager(db).RunNow(cmd.Context(), nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup %d uploaded\n", id)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		backups, err := store.NewBackupStore(db).List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No backups yet.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tSIZE\tTOOK\tCREATED\tFILE")
		for _, b := range backups {
			size, took := "-", "-"
			if b.Restorable() {
				size = humanize.Bytes(uint64(b.SizeBytes))
				took = b.Duration().Round(time.Millisecond).String()
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.Status, size, took, humanize.Time(b.CreatedAt), b.Filename)
		}
		return tw.Flush()
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Download, decrypt and verify a backup into a new database file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid backup id %q", args[0])
		}
		out, _ := cmd.Flags().GetString("out")

		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if err := newBackupManager(db).Restore(cmd.Context(), id, out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup %d restored to %s\n", id, out)
		fmt.Fprintln(cmd.OutOrStdout(), "Stop the server and point database.path at this file to use it.")
		return nil
	},
}

func init() {
	backupListCmd.Flags().Int("limit", 20, "maximum number of backups to show")
	backupRestoreCmd.Flags().String("out", "", "path of the restored database file (required)")
	_ = backupRestoreCmd.MarkFlagRequired("out")
	backupCmd.AddCommand(backupRunCmd, backupListCmd, backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}
