package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/encheres/internal/cli"
	"github.com/example/encheres/internal/db"
	"github.com/example/encheres/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "encheres",
		Short:   "Judicial real-estate auction ingestion and alerts",
		Version: version.String(),
		Long: `encheres ingests scraped judicial auction listings into a local SQLite
database, keeps their lifecycle up to date and matches them against saved
search alerts.`,
		PersistentPreRunE: cli.Bootstrap,
		SilenceUsage:      true,
	}
	cli.AddGlobalFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.RunCmd())
	rootCmd.AddCommand(cli.AlertCmd())
	rootCmd.AddCommand(cli.MatchCmd())
	rootCmd.AddCommand(cli.TribunalCmd())
	rootCmd.AddCommand(cli.ListingCmd())
	rootCmd.AddCommand(cli.AdjudicationCmd())

	// Developer tools
	rootCmd.AddCommand(cli.DevCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	db.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
