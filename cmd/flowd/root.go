package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flowd",
	Short: "flowd is a versioned business process engine",
	Long:  `flowd runs multi-actor business processes described by versioned scenarios: states, actions, responses and triggers.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("scenarios", "scenarios", "Directory containing scenario documents")
	rootCmd.PersistentFlags().String("schemas", "", "Directory containing local schema documents")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

func logLevel(cmd *cobra.Command) slog.Level {
	name, _ := cmd.Flags().GetString("log-level")
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
