package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberquest/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the progression API over HTTP",
		Long: `Run an HTTP server that keeps one engine per signed-in user. Requests
identify the user with the X-User-ID header.

Examples:
  cyberquest serve --addr :8080
  CYBERQUEST_BACKEND=firestore CYBERQUEST_GCP_PROJECT=my-project cyberquest serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (env CYBERQUEST_HTTP_ADDR)")
	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.Addr != "" {
		cfg.HTTPAddr = opts.Addr
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

	reg := httpapi.NewRegistry(cat, rem, nil, nil)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		reg.Close(closeCtx)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("serving progression api", "addr", cfg.HTTPAddr, "backend", cfg.Backend, "achievements", cat.Len())
	if err := httpapi.Serve(ctx, srv); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("server on %s failed", cfg.HTTPAddr), err)
	}
	return nil
}
