package seed

import (
	"context"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/guimove/capviz/internal/model"
)

// Inventory is the on-disk inventory document. Both JSON and YAML are
// accepted.
type Inventory struct {
	Clusters []InventoryCluster `json:"clusters"`
}

// InventoryCluster is a cluster whose visibility defaults to true when the
// field is absent.
type InventoryCluster struct {
	model.Cluster
	IsVisible *bool `json:"is_visible,omitempty"`
}

// StaticSource loads the inventory from a file, or returns a fixed one.
// Used for offline analysis and tests.
type StaticSource struct {
	filePath string
	clusters []model.Cluster
}

// NewStaticSource creates a source that reads from a JSON or YAML file.
func NewStaticSource(filePath string) *StaticSource {
	return &StaticSource{filePath: filePath}
}

// NewStaticSourceFromClusters creates a source returning clusters.
func NewStaticSourceFromClusters(clusters []model.Cluster) *StaticSource {
	return &StaticSource{clusters: clusters}
}

// Name returns "static".
func (s *StaticSource) Name() string { return "static" }

// Load reads and validates the inventory. Every call returns a fresh copy.
func (s *StaticSource) Load(ctx context.Context) ([]model.Cluster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var clusters []model.Cluster
	if s.clusters != nil {
		clusters = model.CloneClusters(s.clusters)
	} else {
		data, err := os.ReadFile(s.filePath)
		if err != nil {
			return nil, fmt.Errorf("reading inventory file: %w", err)
		}
		clusters, err = ParseInventory(data)
		if err != nil {
			return nil, fmt.Errorf("parsing inventory file %s: %w", s.filePath, err)
		}
	}

	if len(clusters) == 0 {
		return nil, ErrEmptyInventory
	}
	fillReferences(clusters)
	if err := model.Validate(clusters); err != nil {
		return nil, fmt.Errorf("invalid inventory: %w", err)
	}
	return clusters, nil
}

// ParseInventory decodes an inventory document.
func ParseInventory(data []byte) ([]model.Cluster, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, err
	}

	clusters := make([]model.Cluster, 0, len(inv.Clusters))
	for _, ic := range inv.Clusters {
		c := ic.Cluster
		c.IsVisible = ic.IsVisible == nil || *ic.IsVisible
		clusters = append(clusters, c)
	}
	return clusters, nil
}

// MarshalInventory encodes clusters as a YAML inventory document.
func MarshalInventory(clusters []model.Cluster) ([]byte, error) {
	inv := Inventory{Clusters: make([]InventoryCluster, 0, len(clusters))}
	for _, c := range clusters {
		visible := c.IsVisible
		inv.Clusters = append(inv.Clusters, InventoryCluster{Cluster: c, IsVisible: &visible})
	}
	return yaml.Marshal(inv)
}
