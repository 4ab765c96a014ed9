package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/config"
	"github.com/roach88/cyberquest/internal/engine"
	"github.com/roach88/cyberquest/internal/firestore"
	"github.com/roach88/cyberquest/internal/store"
)

// remote is a RemoteStore that must be closed.
type remote interface {
	engine.RemoteStore
	Close() error
}

// openRemote connects to the configured backend.
func openRemote(ctx context.Context, cfg config.Config) (remote, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		slog.Info("opening firestore", "project", cfg.GCPProject, "database", cfg.FirestoreDatabase)
		repo, err := firestore.Open(ctx, cfg.GCPProject, cfg.FirestoreDatabase)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open firestore", err)
		}
		return repo, nil
	default:
		slog.Info("opening database", "path", cfg.Database)
		st, err := store.Open(cfg.Database)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		return st, nil
	}
}

// openCatalog loads the catalog directory, or the embedded default.
func openCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogDir == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadDir(cfg.CatalogDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load catalog %s", cfg.CatalogDir), err)
	}
	return cat, nil
}

func closeRemote(r remote) {
	if err := r.Close(); err != nil {
		slog.Error("error closing remote store", "error", err)
	}
}
