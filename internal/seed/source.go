// Package seed provides the initial inventory the engine starts from.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/guimove/capviz/internal/config"
	"github.com/guimove/capviz/internal/model"
)

// ErrEmptyInventory is returned when a source yields no clusters.
var ErrEmptyInventory = errors.New("inventory contains no clusters")

// Source loads an inventory.
type Source interface {
	Load(ctx context.Context) ([]model.Cluster, error)
	// Name returns the source type, e.g. "static", "mock" or "prometheus".
	Name() string
}

// New returns the source selected by cfg.
func New(cfg config.SeedConfig) (Source, error) {
	switch cfg.Source {
	case "file":
		return NewStaticSource(cfg.Path), nil
	case "prometheus":
		src, err := NewPrometheusSource(cfg.PrometheusURL, WithQueryTimeout(cfg.PrometheusTimeout))
		if err != nil {
			return nil, err
		}
		return src, nil
	case "mock", "":
		return NewMockSource(MockOptions{
			Seed:            cfg.MockSeed,
			Clusters:        cfg.MockClusters,
			HostsPerCluster: cfg.MockHostsPerCluster,
			VMsPerHost:      cfg.MockVMsPerHost,
		}), nil
	default:
		return nil, fmt.Errorf("unknown seed source %q", cfg.Source)
	}
}

// fillReferences sets missing back-references from the nesting, so
// inventory files need not repeat host and cluster ids on every VM.
func fillReferences(clusters []model.Cluster) {
	for ci := range clusters {
		c := &clusters[ci]
		if c.Hosts == nil {
			c.Hosts = []model.Host{}
		}
		for hi := range c.Hosts {
			h := &c.Hosts[hi]
			if h.ClusterID == "" {
				h.ClusterID = c.ID
			}
			if h.VMs == nil {
				h.VMs = []model.VM{}
			}
			for vi := range h.VMs {
				vm := &h.VMs[vi]
				if vm.HostID == "" {
					vm.HostID = h.ID
				}
				if vm.ClusterID == "" {
					vm.ClusterID = c.ID
				}
			}
		}
	}
}
