// Package persist saves and restores migration ledger snapshots. Stores are
// synchronous; the Saver puts them behind an asynchronous, latest-wins queue
// so callers never wait on I/O.
package persist

import (
	"context"
	"fmt"

	"github.com/guimove/capviz/internal/config"
	"github.com/guimove/capviz/internal/ledger"
)

// Store persists ledger snapshots.
type Store interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap ledger.Snapshot) error
	// Load returns the stored snapshot, or nil when nothing has been saved.
	Load(ctx context.Context) (*ledger.Snapshot, error)
	// Name identifies the backend in logs and metrics.
	Name() string
	Close() error
}

// Open returns the store selected by cfg.
func Open(cfg config.PersistenceConfig) (Store, error) {
	switch cfg.Backend {
	case "file":
		return NewFileStore(cfg.Path), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "none", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Backend)
	}
}
