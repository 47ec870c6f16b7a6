package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/encheres/internal/config"
	"github.com/example/encheres/internal/db"
)

// devDBEnv must name the database explicitly before dev commands touch it.
const devDBEnv = config.EnvPrefix + "_DATABASE_PATH"

// DevCmd returns the dev command group for development utilities.
func DevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Development utilities",
		Long: `Development utilities for working with a throwaway database.

These commands require ` + devDBEnv + ` to be set so they never run
against the default database by accident.`,
	}

	cmd.AddCommand(devResetCmd())
	cmd.AddCommand(devSeedCmd())
	return cmd
}

func devDatabasePath() (string, error) {
	dbPath := os.Getenv(devDBEnv)
	if dbPath == "" {
		return "", fmt.Errorf("%s not set\n\nThis safety check prevents accidental reset of your production database", devDBEnv)
	}
	return dbPath, nil
}

func devResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset dev database with fresh fixtures",
		Long: `Delete the dev database and recreate it with fixture data.

This command:
1. Deletes the existing dev database file
2. Creates a fresh database with the current schema
3. Seeds tribunals, listings in every state, alerts and a finished run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := devDatabasePath()
			if err != nil {
				return err
			}

			// Confirmation unless --force
			if !force {
				fmt.Printf("This will delete and recreate: %s\n", dbPath)
				fmt.Print("Continue? [y/N] ")
				var response string
				fmt.Scanln(&response)
				if response != "y" && response != "Y" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			// Close any existing DB connection
			db.Close()

			if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to delete database: %w", err)
			}
			fmt.Printf("✓ Deleted %s\n", dbPath)

			return seed(dbPath)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}

func devSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed fixture data into the dev database",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := devDatabasePath()
			if err != nil {
				return err
			}
			return seed(dbPath)
		},
	}
}

func seed(dbPath string) error {
	db.Configure(dbPath, cfg.Database.BusyTimeoutMS)
	database, err := db.GetDB()
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	fmt.Println("✓ Database has the current schema")

	if err := db.SeedFixtures(database); err != nil {
		return fmt.Errorf("failed to seed fixtures: %w", err)
	}
	fmt.Println("✓ Seeded fixture data")
	return nil
}
