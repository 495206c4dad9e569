package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/classwatch/internal/config"
	"github.com/abhisek/classwatch/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "classwatch",
	Short: "Classroom topic adherence and teaching quality monitor",
	Long: `ClassWatch listens to a lesson as transcript segments, checks every
segment against the declared topic, tracks teaching quality gauges and
grades the session when it ends.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides CLASSWATCH_DB env var)")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (default: $XDG_CONFIG_HOME/classwatch/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rankingsCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration named by --config (or the default
// path) and applies --db and --log-level on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	cfg.Storage.Path = dbPath

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured path, which already honours CLASSWATCH_DB.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if configured != "" {
		return configured, store.EnsureDir(configured)
	}
	return store.DefaultDBPath()
}
