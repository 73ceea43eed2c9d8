package engine

import (
	"time"
)

// Kind names an action type.
type Kind string

const (
	KindMoveVMs                 Kind = "MOVE_VMS"
	KindUpdateOCRatios          Kind = "UPDATE_OC_RATIOS"
	KindToggleClusterVisibility Kind = "TOGGLE_CLUSTER_VISIBILITY"
	KindAddCluster              Kind = "ADD_CLUSTER"
	KindLockVM                  Kind = "LOCK_VM"
	KindUnlockVM                Kind = "UNLOCK_VM"
)

// Action is one of the six engine mutations. The set is closed: only types
// in this package implement it.
type Action interface {
	Kind() Kind
	isAction()
}

// MoveVMs relocates VMs onto a target host.
type MoveVMs struct {
	VMIDs        []string
	TargetHostID string
}

// UpdateOCRatios replaces the overcommitment ratios.
type UpdateOCRatios struct {
	CPU    float64
	Memory float64
}

// ToggleClusterVisibility flips a cluster's visibility.
type ToggleClusterVisibility struct {
	ClusterID string
}

// AddCluster appends an empty, visible cluster. ClusterID is filled in when
// the action is recorded if left empty.
type AddCluster struct {
	Name      string
	ClusterID string
}

// LockVMs marks VMs as locked.
type LockVMs struct {
	VMIDs []string
}

// UnlockVMs clears the lock on VMs.
type UnlockVMs struct {
	VMIDs []string
}

func (MoveVMs) Kind() Kind                 { return KindMoveVMs }
func (UpdateOCRatios) Kind() Kind          { return KindUpdateOCRatios }
func (ToggleClusterVisibility) Kind() Kind { return KindToggleClusterVisibility }
func (AddCluster) Kind() Kind              { return KindAddCluster }
func (LockVMs) Kind() Kind                 { return KindLockVM }
func (UnlockVMs) Kind() Kind               { return KindUnlockVM }

func (MoveVMs) isAction()                 {}
func (UpdateOCRatios) isAction()          {}
func (ToggleClusterVisibility) isAction() {}
func (AddCluster) isAction()              {}
func (LockVMs) isAction()                 {}
func (UnlockVMs) isAction()               {}

// Record is an action as it enters history: immutable, with a unique id and
// the time it was created.
type Record struct {
	ID        string
	Action    Action
	Timestamp time.Time
}

// Kind returns the kind of the recorded action.
func (r Record) Kind() Kind { return r.Action.Kind() }
