package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberquest/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Backend overrides. Empty values keep the environment configuration.
	Backend    string
	Database   string
	Snapshot   string
	CatalogDir string
	Project    string

	// LogWriter receives slog output. Defaults to stderr.
	LogWriter io.Writer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cyberquest CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cyberquest",
		Short: "CyberQuest progression engine",
		Long: `Track points, challenges and achievements for CyberQuest players.

Progress is kept in a local snapshot and reconciled with a remote store
(SQLite or Cloud Firestore) whenever a player signs in.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "remote store: sqlite|firestore (env CYBERQUEST_BACKEND)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite database path (env CYBERQUEST_DB)")
	cmd.PersistentFlags().StringVar(&opts.Snapshot, "snapshot", "", "local snapshot file (env CYBERQUEST_SNAPSHOT)")
	cmd.PersistentFlags().StringVar(&opts.CatalogDir, "catalog", "", "CUE catalog directory (env CYBERQUEST_CATALOG)")
	cmd.PersistentFlags().StringVar(&opts.Project, "project", "", "GCP project for Firestore (env CYBERQUEST_GCP_PROJECT)")

	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewLabsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// loadConfig reads the environment and applies flag overrides.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Parse()
	if err != nil {
		return config.Config{}, err
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.Snapshot != "" {
		cfg.Snapshot = o.Snapshot
	}
	if o.CatalogDir != "" {
		cfg.CatalogDir = o.CatalogDir
	}
	if o.Project != "" {
		cfg.GCPProject = o.Project
	}
	return cfg, cfg.Validate()
}

// setupLogging installs the default slog logger. JSON logs carry the
// service name.
func (o *RootOptions) setupLogging(format string) {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	w := o.LogWriter
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var logger *slog.Logger
	if format == "json" {
		logger = slog.New(slog.NewJSONHandler(w, handlerOpts)).With(slog.String("service", "cyberquest"))
	} else {
		logger = slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	slog.SetDefault(logger)
}
