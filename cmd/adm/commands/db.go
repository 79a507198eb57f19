package commands

import (
	"context"
	"database/sql"
	"os"

	"simsim/internal/database"
	"simsim/internal/observability"
	contextutils "simsim/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(dbManager *database.Manager, logger *observability.Logger, db *sql.DB) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands.

Available commands:
  migrate   - Apply pending schema migrations
  stats     - Show corpus statistics`,
	}

	dbCmd.AddCommand(migrateCmd(dbManager, logger))
	dbCmd.AddCommand(statsCmd(logger, db))

	return dbCmd
}

// migrateCmd returns the migrate command
func migrateCmd(dbManager *database.Manager, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("SIMSIM_CONFIG_FILE")})

			if err := dbManager.RunMigrations(""); err != nil {
				logger.Error(ctx, "Migrations failed", err)
				return err
			}
			return nil
		},
	}
}

// statsCmd returns the stats command
func statsCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show corpus statistics",
		Long:  `Show corpus statistics: translation, quiz entry, session and response counts.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			if db == nil {
				return contextutils.ErrorWithContextf("database connection not available")
			}

			stats := map[string]interface{}{}
			counts := []struct {
				key   string
				query string
			}{
				{"translations", "SELECT COUNT(*) FROM vocabulary"},
				{"correct_translations", "SELECT COUNT(*) FROM vocabulary WHERE is_correct = TRUE"},
				{"quiz_entries", "SELECT COUNT(*) FROM vocabulary_entries"},
				{"game_sessions", "SELECT COUNT(*) FROM game_sessions"},
				{"game_responses", "SELECT COUNT(*) FROM game_responses"},
			}
			for _, c := range counts {
				var n int
				if err := db.QueryRowContext(ctx, c.query).Scan(&n); err != nil {
					logger.Error(ctx, "Failed to collect statistic", err, map[string]interface{}{"statistic": c.key})
					return contextutils.WrapErrorf(err, "failed to collect %s", c.key)
				}
				stats[c.key] = n
			}

			logger.Info(ctx, "Database statistics", stats)
			return nil
		},
	}
}
