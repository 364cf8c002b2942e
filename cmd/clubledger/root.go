package main

import (
	"database/sql"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukerupert/clubledger/internal/config"
	"github.com/dukerupert/clubledger/internal/database"
	"github.com/dukerupert/clubledger/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "clubledger",
	Short:         "clubledger keeps the books for a club's events, recipes and running costs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		logger = logging.Setup(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "path to config file (default ./clubledger.yaml)")
	pf.String("db", "", "path to SQLite database")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
}

// openDB opens the configured database, applying migrations.
func openDB() (*sql.DB, error) {
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("database opened", "path", cfg.Database.Path)
	return db, nil
}
