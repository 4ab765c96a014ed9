package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/engine"
	"github.com/roach88/cyberquest/internal/ledger"
	"github.com/roach88/cyberquest/internal/notify"
	"github.com/roach88/cyberquest/internal/snapshot"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	User string
}

const playHelp = `commands:
  points N                 add N points
  challenge ID             complete a challenge
  count KIND               increment a counter (` + "crypto_puzzles, sql_levels, terminal_flags, chat_messages, missions" + `)
  lab ID TYPE POINTS       claim a lab
  status                   show progress
  login USER | logout      change the signed-in user
  help | quit`

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Drive a progression engine from stdin",
		Long: `Read progression commands from stdin, one per line, and apply them to an
engine backed by the local snapshot and the configured remote store.

` + playHelp + `

Example:
  printf 'challenge xss-101\npoints 900\nstatus\n' | cyberquest play --user u1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user to sign in as (optional)")
	return cmd
}

// lockedWriter serializes writes from the REPL and the notification sink.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func runPlay(ctx context.Context, opts *PlayOptions, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	opts.setupLogging(cfg.LogFormat)

	rem, err := openRemote(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRemote(rem)

	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	local, err := snapshot.OpenFile(cfg.Snapshot)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open snapshot", err)
	}

	w := &lockedWriter{w: out}
	p := message.NewPrinter(language.English)
	eng := engine.New(cat, rem, local, engine.WithSink(notify.NewConsole(w, language.English)))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx) }()

	if opts.User != "" {
		eng.SignIn(ctx, opts.User)
	}

	r := &repl{ctx: ctx, eng: eng, out: w, p: p}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !r.exec(scanner.Text()) {
			break
		}
		if err := eng.Flush(ctx); err != nil {
			break
		}
	}

	if err := eng.Flush(ctx); err != nil {
		fmt.Fprintf(w, "warning: pending sync not finished: %v\n", err)
	}
	eng.Close()
	<-done

	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to read input", err)
	}
	return nil
}

type repl struct {
	ctx context.Context
	eng *engine.Engine
	out io.Writer
	p   *message.Printer
}

// exec runs one input line. Returns false to stop.
func (r *repl) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return true
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return false
	case "help":
		fmt.Fprintln(r.out, playHelp)
	case "points":
		n, ok := r.intArg(args, 0, "points N")
		if ok {
			r.eng.AddPoints(n)
		}
	case "challenge":
		if len(args) != 1 {
			r.usage("challenge ID")
			break
		}
		r.eng.CompleteChallenge(args[0])
	case "count":
		if len(args) != 1 {
			r.usage("count KIND")
			break
		}
		kind := catalog.CounterKind(args[0])
		if !catalog.IsIncrementable(kind) {
			fmt.Fprintf(r.out, "unknown counter %q\n", args[0])
			break
		}
		r.eng.IncrementCounter(kind)
	case "lab":
		if len(args) != 3 {
			r.usage("lab ID TYPE POINTS")
			break
		}
		points, ok := r.intArg(args, 2, "lab ID TYPE POINTS")
		if !ok {
			break
		}
		r.claimLab(args[0], args[1], points)
	case "status":
		fmt.Fprint(r.out, formatSummary(r.p, r.eng.Summary()))
	case "login":
		if len(args) != 1 {
			r.usage("login USER")
			break
		}
		r.eng.SignIn(r.ctx, args[0])
		r.p.Fprintf(r.out, "signed in as %s (%d points)\n", args[0], r.eng.Summary().Points)
	case "logout":
		r.eng.SignOut()
		fmt.Fprintln(r.out, "signed out")
	default:
		fmt.Fprintf(r.out, "unknown command %q (try help)\n", cmd)
	}
	return true
}

func (r *repl) claimLab(id, typ string, points int) {
	inserted, err := r.eng.ClaimLab(r.ctx, id, typ, points)
	key := ledger.LabKey{LabID: ledger.NormalizeID(id), LabType: ledger.NormalizeID(typ)}
	switch {
	case engine.IsNotSignedIn(err):
		fmt.Fprintln(r.out, "sign in to record labs")
	case engine.IsLabWriteFailed(err):
		fmt.Fprintf(r.out, "could not record %s, try again\n", key)
	case err != nil:
		fmt.Fprintf(r.out, "error: %v\n", err)
	case inserted:
		r.p.Fprintf(r.out, "lab %s recorded (+%d points)\n", key, points)
	default:
		fmt.Fprintf(r.out, "lab %s already complete\n", key)
	}
}

func (r *repl) intArg(args []string, i int, usage string) (int, bool) {
	if len(args) <= i {
		r.usage(usage)
		return 0, false
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		r.usage(usage)
		return 0, false
	}
	return n, true
}

func (r *repl) usage(u string) {
	fmt.Fprintf(r.out, "usage: %s\n", u)
}

// formatSummary renders progress for humans.
func formatSummary(p *message.Printer, sum engine.Summary) string {
	var b strings.Builder

	user := sum.UserID
	if user == "" {
		user = "(signed out)"
	}
	p.Fprintf(&b, "user:         %s\n", user)
	p.Fprintf(&b, "points:       %d (level %d, %d/%d)\n", sum.Points, sum.Level, sum.LevelProgress, engine.PointsPerLevel)
	p.Fprintf(&b, "challenges:   %d\n", len(sum.Challenges))

	kinds := make([]string, 0, len(sum.Counters))
	for kind, n := range sum.Counters {
		if n > 0 {
			kinds = append(kinds, fmt.Sprintf("%s=%d", kind, n))
		}
	}
	sort.Strings(kinds)
	fmt.Fprintf(&b, "counters:     %s\n", joinOrNone(kinds))
	fmt.Fprintf(&b, "achievements: %s\n", joinOrNone(sum.Achievements))

	labs := make([]string, 0, len(sum.Labs))
	for _, rec := range sum.Labs {
		labs = append(labs, rec.Key().String())
	}
	fmt.Fprintf(&b, "labs:         %s\n", joinOrNone(labs))
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
