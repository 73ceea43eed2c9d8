// Package ledger records simulated VM migrations. Entries are historical
// facts: a Ledger value is never modified, only replaced by a longer one or
// cleared wholesale.
package ledger

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a migration record.
type Status string

const (
	StatusPlanned Status = "planned"
	StatusApplied Status = "applied"
)

// Migration is one VM relocation performed by a MOVE_VMS action.
type Migration struct {
	ID     string `json:"id"`
	VMID   string `json:"vm_id"`
	VMName string `json:"vm_name"`

	SourceClusterID   string `json:"source_cluster_id"`
	SourceClusterName string `json:"source_cluster_name"`
	SourceHostID      string `json:"source_host_id"`
	SourceHostName    string `json:"source_host_name"`

	DestinationClusterID   string `json:"destination_cluster_id"`
	DestinationClusterName string `json:"destination_cluster_name"`
	DestinationHostID      string `json:"destination_host_id"`
	DestinationHostName    string `json:"destination_host_name"`

	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// Ledger is an immutable, ordered list of migrations.
type Ledger struct {
	entries []Migration
}

// New returns a ledger holding a copy of ms.
func New(ms ...Migration) Ledger {
	return Ledger{entries: slices.Clone(ms)}
}

// Len returns the number of entries.
func (l Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of the entries in append order.
func (l Ledger) Entries() []Migration {
	return slices.Clone(l.entries)
}

// Append returns a new ledger with ms added at the end. l is unchanged and
// does not share its backing array with the result.
func (l Ledger) Append(ms ...Migration) Ledger {
	if len(ms) == 0 {
		return l
	}
	out := make([]Migration, 0, len(l.entries)+len(ms))
	out = append(out, l.entries...)
	out = append(out, ms...)
	return Ledger{entries: out}
}

// Clear returns an empty ledger.
func (l Ledger) Clear() Ledger { return Ledger{} }

// Snapshot is the unit handed to the persistence adapter.
type Snapshot struct {
	Migrations  []Migration `json:"migrations"`
	LastSavedAt time.Time   `json:"last_saved_at"`
}

// Snapshot captures the ledger for persistence.
func (l Ledger) Snapshot(now time.Time) Snapshot {
	ms := l.Entries()
	if ms == nil {
		ms = []Migration{}
	}
	return Snapshot{Migrations: ms, LastSavedAt: now}
}

// FromSnapshot restores a ledger. A nil snapshot yields an empty ledger.
func FromSnapshot(s *Snapshot) Ledger {
	if s == nil {
		return Ledger{}
	}
	return New(s.Migrations...)
}
