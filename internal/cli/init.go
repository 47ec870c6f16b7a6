package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/encheres/internal/config"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the encheres database and config",
		Long: `Initialize ~/.encheres with a config.yaml holding the resolved settings
and create the database with the current schema.

An existing config.yaml is kept unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.DefaultDir()
			if err != nil {
				return err
			}

			path := filepath.Join(dir, "config.yaml")
			_, statErr := os.Stat(path)
			switch {
			case statErr == nil && !force:
				fmt.Printf("✓ Keeping existing config at %s\n", path)
			case statErr == nil || errors.Is(statErr, fs.ErrNotExist):
				path, err = config.SaveConfig(dir, cfg)
				if err != nil {
					return err
				}
				fmt.Printf("✓ Wrote config to %s\n", path)
			default:
				return fmt.Errorf("failed to check config: %w", statErr)
			}

			if err := services(); err != nil {
				return err
			}
			fmt.Printf("✓ Database ready at %s\n", cfg.Database.Path)
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  encheres tribunal import tribunals.yaml")
			fmt.Println("  encheres run ingest --type full_index --file listings.jsonl")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config.yaml")
	return cmd
}
