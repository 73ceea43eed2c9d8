// Package engine is the single mutation surface of the capacity model. It
// applies typed actions to immutable states, keeps an undo/redo history of
// model snapshots and records VM migrations in the ledger.
package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/guimove/capviz/internal/ledger"
	"github.com/guimove/capviz/internal/model"
)

// ErrActionRejected is wrapped by every RejectedError.
var ErrActionRejected = errors.New("action rejected")

// RejectedError reports an action that referenced something that does not
// exist or violated the lock policy. The state is left unchanged.
type RejectedError struct {
	Kind   Kind
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Kind, e.Reason)
}

func (e *RejectedError) Unwrap() error { return ErrActionRejected }

func reject(k Kind, format string, args ...any) error {
	return &RejectedError{Kind: k, Reason: fmt.Sprintf(format, args...)}
}

// LockPolicy decides whether locked VMs may be moved.
type LockPolicy string

const (
	// LockAdvisory tracks locks but lets MOVE_VMS relocate locked VMs.
	LockAdvisory LockPolicy = "advisory"
	// LockEnforce rejects MOVE_VMS if any requested VM is locked.
	LockEnforce LockPolicy = "enforce"
)

// Options configures action application.
type Options struct {
	LockPolicy LockPolicy
	MaxHistory int // 0 = unlimited
	Now        func() time.Time
	NewID      func() string
}

// DefaultOptions returns advisory locking, 100 history entries, wall clock
// and random UUIDs.
func DefaultOptions() Options {
	return Options{
		LockPolicy: LockAdvisory,
		MaxHistory: 100,
		Now:        func() time.Time { return time.Now().UTC() },
		NewID:      uuid.NewString,
	}
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now()
}

func (o Options) newID() string {
	if o.NewID == nil {
		return uuid.NewString()
	}
	return o.NewID()
}

// NewRecord stamps a with an id and timestamp. An AddCluster without a
// cluster id gets one here so that applying the record is deterministic.
func (o Options) NewRecord(a Action) Record {
	if ac, ok := a.(AddCluster); ok && ac.ClusterID == "" {
		ac.ClusterID = "cluster-" + o.newID()
		a = ac
	}
	return Record{ID: o.newID(), Action: a, Timestamp: o.now()}
}

// Apply returns the state after rec. On success the record is pushed onto
// the undo stack and the redo stack is cleared. A rejected action returns s
// unchanged with a *RejectedError.
func Apply(s State, rec Record, opts Options) (State, error) {
	next := s
	next.Clusters = model.CloneClusters(s.Clusters)

	switch a := rec.Action.(type) {
	case MoveVMs:
		migrations, err := applyMove(next.Clusters, a, rec, opts)
		if err != nil {
			return s, err
		}
		next.Ledger = s.Ledger.Append(migrations...)

	case UpdateOCRatios:
		next.Ratios = model.OvercommitRatios{CPU: a.CPU, Memory: a.Memory}

	case ToggleClusterVisibility:
		ci := model.FindCluster(next.Clusters, a.ClusterID)
		if ci < 0 {
			return s, reject(a.Kind(), "cluster %q not found", a.ClusterID)
		}
		next.Clusters[ci].IsVisible = !next.Clusters[ci].IsVisible

	case AddCluster:
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return s, reject(a.Kind(), "cluster name is empty")
		}
		id := a.ClusterID
		if id == "" {
			id = "cluster-" + opts.newID()
		}
		if model.FindCluster(next.Clusters, id) >= 0 {
			return s, reject(a.Kind(), "cluster id %q already exists", id)
		}
		next.Clusters = append(next.Clusters, model.Cluster{
			ID:        id,
			Name:      name,
			IsVisible: true,
			Hosts:     []model.Host{},
		})

	case LockVMs:
		setLocked(next.Clusters, a.VMIDs, true)

	case UnlockVMs:
		setLocked(next.Clusters, a.VMIDs, false)

	default:
		panic(fmt.Sprintf("engine: unhandled action type %T", rec.Action))
	}

	next.UndoStack = push(s.UndoStack, HistoryEntry{Action: rec, Restore: s.Snapshot()}, opts.MaxHistory)
	next.RedoStack = nil
	return next, nil
}

// applyMove relocates VMs inside clusters, which must be a private copy.
// Every reference is checked before anything moves.
func applyMove(clusters []model.Cluster, a MoveVMs, rec Record, opts Options) ([]ledger.Migration, error) {
	if len(a.VMIDs) == 0 {
		return nil, reject(a.Kind(), "no VMs given")
	}
	target, ok := model.FindHost(clusters, a.TargetHostID)
	if !ok {
		return nil, reject(a.Kind(), "target host %q not found", a.TargetHostID)
	}

	seen := sets.New[string]()
	ids := make([]string, 0, len(a.VMIDs))
	for _, id := range a.VMIDs {
		if seen.Has(id) {
			continue
		}
		seen.Insert(id)

		loc, ok := model.FindVM(clusters, id)
		if !ok {
			return nil, reject(a.Kind(), "vm %q not found", id)
		}
		vm := clusters[loc.Cluster].Hosts[loc.Host].VMs[loc.VM]
		if vm.IsLocked && opts.LockPolicy == LockEnforce {
			return nil, reject(a.Kind(), "vm %q is locked", id)
		}
		ids = append(ids, id)
	}

	dstCluster := &clusters[target.Cluster]
	dstHost := &dstCluster.Hosts[target.Host]

	var out []ledger.Migration
	for _, id := range ids {
		loc, _ := model.FindVM(clusters, id)
		if loc.HostLocation == target {
			continue
		}
		srcCluster := &clusters[loc.Cluster]
		srcHost := &srcCluster.Hosts[loc.Host]
		vm := srcHost.VMs[loc.VM]

		out = append(out, ledger.Migration{
			ID:                     opts.newID(),
			VMID:                   vm.ID,
			VMName:                 vm.Name,
			SourceClusterID:        srcCluster.ID,
			SourceClusterName:      srcCluster.Name,
			SourceHostID:           srcHost.ID,
			SourceHostName:         srcHost.Name,
			DestinationClusterID:   dstCluster.ID,
			DestinationClusterName: dstCluster.Name,
			DestinationHostID:      dstHost.ID,
			DestinationHostName:    dstHost.Name,
			Timestamp:              rec.Timestamp,
			Status:                 ledger.StatusPlanned,
		})

		srcHost.VMs = slices.Delete(srcHost.VMs, loc.VM, loc.VM+1)
		vm.HostID = dstHost.ID
		vm.ClusterID = dstCluster.ID
		dstHost.VMs = append(dstHost.VMs, vm)
	}

	return out, nil
}

func setLocked(clusters []model.Cluster, vmIDs []string, locked bool) {
	ids := sets.New(vmIDs...)
	for ci := range clusters {
		for hi := range clusters[ci].Hosts {
			vms := clusters[ci].Hosts[hi].VMs
			for vi := range vms {
				if ids.Has(vms[vi].ID) {
					vms[vi].IsLocked = locked
				}
			}
		}
	}
}
