package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/cyberquest/internal/engine"
	"github.com/roach88/cyberquest/internal/ledger"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	User string
}

// RemoteStatus is a user's progress as the remote store records it.
type RemoteStatus struct {
	UserID       string                 `json:"user_id"`
	Points       int                    `json:"points"`
	Level        int                    `json:"level"`
	Achievements []string               `json:"achievements"`
	Awards       []ledger.Award         `json:"awards,omitempty"`
	Labs         []ledger.LabCompletion `json:"labs"`
}

func (s RemoteStatus) String() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	p.Fprintf(&b, "user:         %s\n", s.UserID)
	p.Fprintf(&b, "points:       %d (level %d)\n", s.Points, s.Level)
	fmt.Fprintf(&b, "achievements: %s\n", joinOrNone(s.Achievements))

	labs := make([]string, 0, len(s.Labs))
	for _, rec := range s.Labs {
		labs = append(labs, p.Sprintf("%s (+%d)", rec.Key(), rec.PointsEarned))
	}
	fmt.Fprintf(&b, "labs:         %s", joinOrNone(labs))
	return b.String()
}

// awardLister is implemented by stores that keep award timestamps.
type awardLister interface {
	Awards(ctx context.Context, userID string) ([]ledger.Award, error)
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a user's remote progress",
		Long: `Read a user's points, achievements and lab completions from the
configured remote store. Local snapshot state is not shown.

Examples:
  cyberquest status --user u1
  cyberquest status --user u1 --backend firestore --project my-project --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runStatus(cmd *cobra.Command, opts *StatusOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

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

	user := ledger.NormalizeID(opts.User)
	status, err := readRemoteStatus(ctx, rem, user)
	if err != nil {
		_ = f.Error(ErrCodeBackend, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to read remote progress", err)
	}
	return f.Success(status)
}

func readRemoteStatus(ctx context.Context, rem engine.RemoteStore, userID string) (RemoteStatus, error) {
	status := RemoteStatus{UserID: userID}

	points, err := rem.ReadPoints(ctx, userID)
	if err != nil {
		return status, fmt.Errorf("read points: %w", err)
	}
	status.Points = points
	status.Level = engine.Level(points)

	if lister, ok := rem.(awardLister); ok {
		awards, err := lister.Awards(ctx, userID)
		if err != nil {
			return status, fmt.Errorf("read awards: %w", err)
		}
		status.Awards = awards
		for _, a := range awards {
			status.Achievements = append(status.Achievements, a.AchievementID)
		}
	} else {
		granted, err := rem.GrantedAchievements(ctx, userID)
		if err != nil {
			return status, fmt.Errorf("read achievements: %w", err)
		}
		status.Achievements = granted
	}
	if status.Achievements == nil {
		status.Achievements = []string{}
	}

	labs, err := rem.LabCompletions(ctx, userID)
	if err != nil {
		return status, fmt.Errorf("read labs: %w", err)
	}
	if labs == nil {
		labs = []ledger.LabCompletion{}
	}
	status.Labs = labs
	return status, nil
}
