package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guimove/capviz/internal/model"
)

var (
	ErrUnknownAction = errors.New("unknown action type")
	ErrInvalidAction = errors.New("invalid action payload")
)

// ActionSpec is the flat wire form of an action used by plan files and the
// HTTP API.
type ActionSpec struct {
	Type         string   `json:"type"`
	VMIDs        []string `json:"vm_ids,omitempty"`
	TargetHostID string   `json:"target_host_id,omitempty"`
	CPU          float64  `json:"cpu,omitempty"`
	Memory       float64  `json:"memory,omitempty"`
	ClusterID    string   `json:"cluster_id,omitempty"`
	Name         string   `json:"name,omitempty"`
}

// Action converts the spec into a typed action. Ratios below 1 are
// collapsed to 1 here, before the action reaches the engine.
func (s ActionSpec) Action() (Action, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s.Type))) {
	case KindMoveVMs:
		if len(s.VMIDs) == 0 || s.TargetHostID == "" {
			return nil, fmt.Errorf("%w: %s needs vm_ids and target_host_id", ErrInvalidAction, KindMoveVMs)
		}
		return MoveVMs{VMIDs: s.VMIDs, TargetHostID: s.TargetHostID}, nil
	case KindUpdateOCRatios:
		return NewUpdateOCRatios(s.CPU, s.Memory), nil
	case KindToggleClusterVisibility:
		if s.ClusterID == "" {
			return nil, fmt.Errorf("%w: %s needs cluster_id", ErrInvalidAction, KindToggleClusterVisibility)
		}
		return ToggleClusterVisibility{ClusterID: s.ClusterID}, nil
	case KindAddCluster:
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("%w: %s needs name", ErrInvalidAction, KindAddCluster)
		}
		return AddCluster{Name: strings.TrimSpace(s.Name), ClusterID: s.ClusterID}, nil
	case KindLockVM:
		return LockVMs{VMIDs: s.VMIDs}, nil
	case KindUnlockVM:
		return UnlockVMs{VMIDs: s.VMIDs}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, s.Type)
}

// NewUpdateOCRatios builds a ratio update with values normalized to >= 1.
func NewUpdateOCRatios(cpu, memory float64) UpdateOCRatios {
	r := model.OvercommitRatios{CPU: cpu, Memory: memory}.Normalize()
	return UpdateOCRatios{CPU: r.CPU, Memory: r.Memory}
}

// SpecFor converts a typed action back to its wire form.
func SpecFor(a Action) ActionSpec {
	s := ActionSpec{Type: string(a.Kind())}
	switch a := a.(type) {
	case MoveVMs:
		s.VMIDs, s.TargetHostID = a.VMIDs, a.TargetHostID
	case UpdateOCRatios:
		s.CPU, s.Memory = a.CPU, a.Memory
	case ToggleClusterVisibility:
		s.ClusterID = a.ClusterID
	case AddCluster:
		s.Name, s.ClusterID = a.Name, a.ClusterID
	case LockVMs:
		s.VMIDs = a.VMIDs
	case UnlockVMs:
		s.VMIDs = a.VMIDs
	}
	return s
}

type recordJSON struct {
	ID        string     `json:"id"`
	Type      Kind       `json:"type"`
	Payload   ActionSpec `json:"payload"`
	Timestamp time.Time  `json:"timestamp"`
}

// MarshalJSON renders the record as {id, type, payload, timestamp}.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:        r.ID,
		Type:      r.Kind(),
		Payload:   SpecFor(r.Action),
		Timestamp: r.Timestamp,
	})
}

// UnmarshalJSON restores a record written by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw.Payload.Type = string(raw.Type)
	a, err := raw.Payload.Action()
	if err != nil {
		return err
	}
	*r = Record{ID: raw.ID, Action: a, Timestamp: raw.Timestamp}
	return nil
}
