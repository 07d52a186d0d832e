package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	postgres "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down [version]|status]",
	Short: "Run database migrations",
	Long:  `Apply, roll back or list the embedded database migrations. The DSN comes from --dsn or the DSN environment variable.`,
	Args:  migrateArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().String("dsn", "", "PostgreSQL DSN (defaults to $DSN)")
	migrateCmd.Flags().StringP("format", "f", "text", "Output format (text or json)")
	migrateCmd.Flags().BoolP("verbose", "v", false, "Log each migration as it runs")
	rootCmd.AddCommand(migrateCmd)
}

func migrateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(0, 2)(cmd, args); err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	switch args[0] {
	case "up", "down", "status":
	default:
		return fmt.Errorf("invalid command: %q", args[0])
	}
	if len(args) == 2 {
		if args[0] != "down" {
			return fmt.Errorf("invalid argument combination: %q", args)
		}
		if v, err := strconv.Atoi(args[1]); err != nil || v < 0 {
			return fmt.Errorf("invalid version number: %q", args[1])
		}
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	version := -1
	if len(args) > 1 {
		version, _ = strconv.Atoi(args[1])
	}

	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		dsn = envDSN()
	}
	if dsn == "" {
		return fmt.Errorf("a DSN is required (--dsn or DSN)")
	}
	format, _ := cmd.Flags().GetString("format")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("invalid DSN: %w", err)
	}
	db := stdlib.OpenDB(*cfg)
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	provider, err := postgres.NewMigrationProvider(db, verbose)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch command {
	case "down":
		return migrateDown(ctx, provider, version, format, out)
	case "status":
		return migrateStatus(ctx, provider, format, out)
	default:
		results, err := provider.Up(ctx)
		if err != nil {
			return err
		}
		return printResults(results, format, out)
	}
}

func migrateDown(ctx context.Context, provider *goose.Provider, version int, format string, out io.Writer) error {
	var results []*goose.MigrationResult
	if version < 0 {
		res, err := provider.Down(ctx)
		if err != nil {
			return err
		}
		results = append(results, res)
	} else {
		res, err := provider.DownTo(ctx, int64(version))
		if err != nil {
			return err
		}
		results = res
	}
	return printResults(results, format, out)
}

func printResults(results []*goose.MigrationResult, format string, out io.Writer) error {
	if results == nil {
		results = []*goose.MigrationResult{}
	}
	if format == "json" {
		return json.NewEncoder(out).Encode(map[string]any{"applied": results})
	}
	for _, r := range results {
		fmt.Fprintf(out, "%-8d %-32s %s\n", r.Source.Version, r.Source.Path, r.Duration)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "no migrations to apply")
	}
	return nil
}

func migrateStatus(ctx context.Context, provider *goose.Provider, format string, out io.Writer) error {
	statuses, err := provider.Status(ctx)
	if err != nil {
		return err
	}
	if format == "json" {
		return json.NewEncoder(out).Encode(statuses)
	}
	fmt.Fprintln(out, "    Applied At                  Migration")
	fmt.Fprintln(out, "    =======================================")
	for _, s := range statuses {
		appliedAt := "Pending"
		if s.State == goose.StateApplied {
			appliedAt = s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(out, "    %-24s -- %s\n", appliedAt, s.Source.Path)
	}
	return nil
}

func envDSN() string {
	return os.Getenv("DSN")
}
