package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose     bool
	jsonOut     bool
	cfgFile     string
	dsnFlag     string
	adapterFlag string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "library",
	Short: "Library inventory and lending management",
	Long: `Manage a library's book inventory and lending activity: members, books,
borrow/return transactions, catalog search, and reports.

The backing store is PostgreSQL (adapters: pgx, sqldb, sqlx) or an in-memory
store for demo use (adapter: memory).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./library.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "PostgreSQL DSN (overrides config file and LIBRARY_DSN)")
	rootCmd.PersistentFlags().StringVar(&adapterFlag, "adapter", "", "Database adapter: pgx, sqldb, sqlx, or memory")
}
