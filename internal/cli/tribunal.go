package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/encheres/internal/adapters/feed"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/wire"
)

// TribunalCmd returns the tribunal command
func TribunalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tribunal",
		Short: "Manage the tribunal registry",
		Long: `Tribunals give listings their region. Registering a tribunal links
every listing that was waiting for its slug.`,
	}

	cmd.AddCommand(tribunalAddCmd())
	cmd.AddCommand(tribunalImportCmd())
	cmd.AddCommand(tribunalListCmd())
	cmd.AddCommand(tribunalSearchCmd())
	return cmd
}

func tribunalAddCmd() *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "add [slug] [name]",
		Short: "Register a tribunal or correct its region",
		Long: `Register a tribunal. Registering an existing slug only corrects its
region; the name is kept.

Examples:
  encheres tribunal add tj-bordeaux "Tribunal Judiciaire de Bordeaux" --region Nouvelle-Aquitaine`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := primary.RegisterTribunalRequest{Slug: args[0], Name: args[1]}
			if cmd.Flags().Changed("region") {
				req.Region = &region
			}
			if err := services(); err != nil {
				return err
			}
			return wire.TribunalAdapter().Add(cmd.Context(), req)
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "Administrative region")
	return cmd
}

func tribunalImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Register every tribunal of a YAML registry file",
		Long: `Register tribunals from a YAML file of the form:

  tribunals:
    - name: Tribunal Judiciaire de Paris
      slug: tj-paris
      region: Île-de-France`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open registry: %w", err)
			}
			defer f.Close()

			entries, err := feed.DecodeTribunals(f)
			if err != nil {
				return err
			}
			if err := services(); err != nil {
				return err
			}
			return wire.TribunalAdapter().Import(cmd.Context(), entries)
		},
	}
}

func tribunalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tribunals",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services(); err != nil {
				return err
			}
			return wire.TribunalAdapter().List(cmd.Context())
		},
	}
}

func tribunalSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Fuzzy-search tribunals by name or slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services(); err != nil {
				return err
			}
			return wire.TribunalAdapter().Search(cmd.Context(), args[0], limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	return cmd
}
