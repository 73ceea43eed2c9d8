package model

import (
	"fmt"
	"math"
	"strings"
)

// ResourceView selects which resource dimension statistics and layout use.
type ResourceView string

const (
	ViewCPU     ResourceView = "cpu"
	ViewMemory  ResourceView = "memory"
	ViewStorage ResourceView = "storage"
)

// ParseResourceView converts a user-supplied string into a ResourceView.
func ParseResourceView(s string) (ResourceView, error) {
	switch v := ResourceView(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewCPU, ViewMemory, ViewStorage:
		return v, nil
	}
	return "", fmt.Errorf("resource view must be cpu, memory, or storage, got %q", s)
}

// Unit returns the display unit for the view.
func (v ResourceView) Unit() string {
	switch v {
	case ViewMemory, ViewStorage:
		return "GB"
	default:
		return "vCPU"
	}
}

// OvercommitRatios scales raw hardware capacity into effective capacity.
// Storage is never overcommitted.
type OvercommitRatios struct {
	CPU    float64 `json:"cpu" yaml:"cpu" mapstructure:"cpu"`
	Memory float64 `json:"memory" yaml:"memory" mapstructure:"memory"`
}

// DefaultRatios returns the ratios a new session starts with.
func DefaultRatios() OvercommitRatios {
	return OvercommitRatios{CPU: 4.0, Memory: 1.5}
}

// Normalize collapses ratios below 1 (and NaN) to 1.
func (r OvercommitRatios) Normalize() OvercommitRatios {
	return OvercommitRatios{CPU: atLeastOne(r.CPU), Memory: atLeastOne(r.Memory)}
}

// For returns the ratio applied to the given view.
func (r OvercommitRatios) For(view ResourceView) float64 {
	switch view {
	case ViewCPU:
		return atLeastOne(r.CPU)
	case ViewMemory:
		return atLeastOne(r.Memory)
	default:
		return 1
	}
}

// String renders ratios as "cpu:memory".
func (r OvercommitRatios) String() string {
	return fmt.Sprintf("%g:%g", r.CPU, r.Memory)
}

func atLeastOne(v float64) float64 {
	if math.IsNaN(v) || v < 1 {
		return 1
	}
	return v
}
