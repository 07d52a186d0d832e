package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "triplink-api",
	Short: "TripLink API",
	Long:  `Collaborative trip planning API: trips, share links, activities and exports.`,
}

// Execute runs the CLI. serve is the default when no subcommand is given.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.RunE = serveCmd.RunE
}
