package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/example/encheres/internal/core/alert"
	"github.com/example/encheres/internal/ports/secondary"
	"github.com/example/encheres/internal/wire"
)

// AlertCmd returns the alert command
func AlertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage saved search alerts",
		Long: `Alerts are saved filters evaluated against every new or updated
upcoming listing. Unset criteria match everything.`,
	}

	cmd.AddCommand(alertCreateCmd())
	cmd.AddCommand(alertListCmd())
	cmd.AddCommand(alertShowCmd())
	cmd.AddCommand(alertSetActiveCmd("enable", "Enable an alert", true))
	cmd.AddCommand(alertSetActiveCmd("disable", "Disable an alert", false))
	cmd.AddCommand(alertRematchCmd())
	return cmd
}

// criteriaFlags binds the alert filter dimensions to command flags.
type criteriaFlags struct {
	minPrice, maxPrice     int64
	minSurface, maxSurface float64
	departments, regions   string
	types, tribunals       string
}

func (f *criteriaFlags) register(fs *pflag.FlagSet) {
	fs.Int64Var(&f.minPrice, "min-price", 0, "Minimum mise à prix in euros")
	fs.Int64Var(&f.maxPrice, "max-price", 0, "Maximum mise à prix in euros")
	fs.Float64Var(&f.minSurface, "min-surface", 0, "Minimum surface in m²")
	fs.Float64Var(&f.maxSurface, "max-surface", 0, "Maximum surface in m²")
	fs.StringVar(&f.departments, "departments", "", "Comma-separated department codes")
	fs.StringVar(&f.regions, "regions", "", "Comma-separated region names")
	fs.StringVar(&f.types, "types", "", "Comma-separated property types")
	fs.StringVar(&f.tribunals, "tribunals", "", "Comma-separated tribunal slugs")
}

// criteria builds the alert criteria. Only flags given on the command line
// become bounds.
func (f *criteriaFlags) criteria(fs *pflag.FlagSet) alert.Criteria {
	c := alert.Criteria{
		DepartmentCodes: alert.ParseList(f.departments),
		Regions:         alert.ParseList(f.regions),
		PropertyTypes:   alert.ParseList(f.types),
		TribunalSlugs:   alert.ParseList(f.tribunals),
	}
	if fs.Changed("min-price") {
		c.MinPrice = &f.minPrice
	}
	if fs.Changed("max-price") {
		c.MaxPrice = &f.maxPrice
	}
	if fs.Changed("min-surface") {
		c.MinSurface = &f.minSurface
	}
	if fs.Changed("max-surface") {
		c.MaxSurface = &f.maxSurface
	}
	return c
}

func alertCreateCmd() *cobra.Command {
	var flags criteriaFlags

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create an alert",
		Long: `Create an active alert.

Examples:
  encheres alert create "Paris studios" --departments 75 --types appartement --max-price 150000
  encheres alert create "Grands terrains sud" --regions Occitanie,"Provence-Alpes-Côte d'Azur" --min-surface 1000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services(); err != nil {
				return err
			}
			return wire.AlertAdapter().Create(cmd.Context(), args[0], flags.criteria(cmd.Flags()))
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func alertListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services(); err != nil {
				return err
			}
			return wire.AlertAdapter().List(cmd.Context(), activeOnly)
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only list active alerts")
	return cmd
}

func alertShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [alert-id]",
		Short: "Show alert details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("alert", args[0])
			if err != nil {
				return err
			}
			if err := services(); err != nil {
				return err
			}
			return wire.AlertAdapter().Show(cmd.Context(), id)
		},
	}
}

func alertSetActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [alert-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("alert", args[0])
			if err != nil {
				return err
			}
			if err := services(); err != nil {
				return err
			}
			return wire.AlertAdapter().SetActive(cmd.Context(), id, active)
		},
	}
}

func alertRematchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rematch [alert-id]",
		Short: "Evaluate an alert against every upcoming listing",
		Long: `Evaluate an alert against the current upcoming listings and record new
matches. Existing matches are kept, so running it twice adds nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("alert", args[0])
			if err != nil {
				return err
			}
			if err := services(); err != nil {
				return err
			}
			return wire.AlertAdapter().Rematch(cmd.Context(), id)
		},
	}
}

// MatchCmd returns the match command
func MatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Review alert matches",
	}

	cmd.AddCommand(matchListCmd())
	cmd.AddCommand(matchSeenCmd())
	return cmd
}

func matchListCmd() *cobra.Command {
	var filters secondary.MatchFilters

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List unseen matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services(); err != nil {
				return err
			}
			return wire.AlertAdapter().Matches(cmd.Context(), filters)
		},
	}

	cmd.Flags().Int64Var(&filters.AlertID, "alert", 0, "Only matches of this alert")
	cmd.Flags().BoolVarP(&filters.IncludeSeen, "all", "a", false, "Include matches already seen")
	cmd.Flags().IntVarP(&filters.Limit, "limit", "n", 50, "Maximum number of matches")
	return cmd
}

func matchSeenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seen [match-id...]",
		Short: "Mark matches as seen",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID("match", arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			if err := services(); err != nil {
				return err
			}
			return wire.AlertAdapter().MarkSeen(cmd.Context(), ids)
		},
	}
}

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}
