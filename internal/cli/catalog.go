package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/config"
)

// CatalogEntry is one achievement as printed by catalog list.
type CatalogEntry struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Points           int    `json:"points"`
	RequirementType  string `json:"requirement_type"`
	RequirementValue int    `json:"requirement_value"`
}

// CatalogSummary is the result of catalog validate.
type CatalogSummary struct {
	Source       string `json:"source"`
	Achievements int    `json:"achievements"`
	Mastery      int    `json:"mastery"`
}

func (s CatalogSummary) String() string {
	return fmt.Sprintf("✓ %s: %d achievements, %d mastery rules", s.Source, s.Achievements, s.Mastery)
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect achievement catalogs",
	}
	cmd.AddCommand(newCatalogValidateCommand(rootOpts))
	cmd.AddCommand(newCatalogListCommand(rootOpts))
	return cmd
}

func newCatalogValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Compile a CUE catalog and report errors",
		Long: `Compile a catalog directory and check its achievements and mastery rules.
Without an argument the --catalog flag, CYBERQUEST_CATALOG, or the
embedded default catalog is used.

Examples:
  cyberquest catalog validate ./catalog
  cyberquest catalog validate --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			dir, err := catalogDir(opts, args)
			if err != nil {
				return err
			}

			cat, source, err := loadCatalogFrom(dir)
			if err != nil {
				if outErr := f.Error(ErrCodeCatalog, err.Error(), nil); outErr != nil {
					return outErr
				}
				return WrapExitError(ExitFailure, "catalog validation failed", err)
			}
			return f.Success(CatalogSummary{
				Source:       source,
				Achievements: cat.Len(),
				Mastery:      len(cat.Mastery()),
			})
		},
	}
}

func newCatalogListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list [dir]",
		Short:         "List catalog achievements",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := catalogDir(opts, args)
			if err != nil {
				return err
			}
			cat, _, err := loadCatalogFrom(dir)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to load catalog", err)
			}

			entries := catalogEntries(cat)
			if opts.Format == "json" {
				return newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(entries)
			}
			return writeCatalogTable(cmd.OutOrStdout(), entries)
		},
	}
}

// catalogDir picks the positional argument, then flag and environment
// configuration. Empty means the embedded catalog.
func catalogDir(opts *RootOptions, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if opts.CatalogDir != "" {
		return opts.CatalogDir, nil
	}
	cfg, err := config.Parse()
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg.CatalogDir, nil
}

func loadCatalogFrom(dir string) (*catalog.Catalog, string, error) {
	if dir == "" {
		return catalog.Default(), "embedded", nil
	}
	cat, err := catalog.LoadDir(dir)
	return cat, dir, err
}

func catalogEntries(cat *catalog.Catalog) []CatalogEntry {
	achievements := cat.Achievements()
	entries := make([]CatalogEntry, 0, len(achievements))
	for _, a := range achievements {
		entries = append(entries, CatalogEntry{
			ID:               a.ID,
			Name:             a.Name,
			Points:           a.Points,
			RequirementType:  string(a.RequirementType),
			RequirementValue: a.RequirementValue,
		})
	}
	return entries
}

func writeCatalogTable(w io.Writer, entries []CatalogEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPOINTS\tREQUIREMENT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s >= %d\n",
			e.ID, e.Name, e.Points, e.RequirementType, e.RequirementValue)
	}
	return tw.Flush()
}
