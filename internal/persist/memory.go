package persist

import (
	"context"
	"sync"

	"github.com/guimove/capviz/internal/ledger"
)

// MemoryStore keeps the snapshot in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	snap  *ledger.Snapshot
	saves int
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Save(ctx context.Context, snap ledger.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.Migrations = append([]ledger.Migration{}, snap.Migrations...)
	m.snap = &snap
	m.saves++
	return nil
}

func (m *MemoryStore) Load(ctx context.Context) (*ledger.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	out := *m.snap
	out.Migrations = append([]ledger.Migration{}, m.snap.Migrations...)
	return &out, nil
}

// Saves returns how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Close() error { return nil }
