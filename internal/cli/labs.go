package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberquest/internal/ledger"
)

// labResetter is implemented by stores that allow clearing a user's labs.
type labResetter interface {
	DeleteLabCompletions(ctx context.Context, userID string) (int64, error)
}

// LabsResetResult reports a labs reset.
type LabsResetResult struct {
	UserID  string `json:"user_id"`
	Removed int64  `json:"removed"`
}

func (r LabsResetResult) String() string {
	return fmt.Sprintf("removed %d lab completion(s) for %s", r.Removed, r.UserID)
}

// NewLabsCommand creates the labs command group.
func NewLabsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labs",
		Short: "Administer lab completions",
	}
	cmd.AddCommand(newLabsResetCommand(rootOpts))
	return cmd
}

func newLabsResetCommand(opts *RootOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every lab completion for a user",
		Long: `Delete a user's lab completions so the labs can be claimed again.
Points already paid are not taken back. Only the SQLite backend supports
this.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			cfg, err := opts.loadConfig()
			if err != nil {
				_ = f.Error(ErrCodeConfig, err.Error(), nil)
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.setupLogging(cfg.LogFormat)

			rem, err := openRemote(ctx, cfg)
			if err != nil {
				_ = f.Error(ErrCodeBackend, err.Error(), nil)
				return err
			}
			defer closeRemote(rem)

			resetter, ok := rem.(labResetter)
			if !ok {
				msg := fmt.Sprintf("backend %s does not support lab resets", cfg.Backend)
				_ = f.Error(ErrCodeUnsupported, msg, nil)
				return NewExitError(ExitCommandError, msg)
			}

			userID := ledger.NormalizeID(user)
			n, err := resetter.DeleteLabCompletions(ctx, userID)
			if err != nil {
				_ = f.Error(ErrCodeLabWrite, err.Error(), nil)
				return WrapExitError(ExitFailure, "failed to reset labs", err)
			}
			return f.Success(LabsResetResult{UserID: userID, Removed: n})
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
