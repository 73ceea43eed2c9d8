package seed

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/guimove/capviz/internal/model"
)

// MockOptions sizes the generated inventory.
type MockOptions struct {
	Seed            uint64
	Clusters        int
	HostsPerCluster int
	VMsPerHost      int
}

// MockSource generates a synthetic inventory. The same options always
// produce the same inventory.
type MockSource struct {
	opts MockOptions
}

func NewMockSource(opts MockOptions) *MockSource {
	if opts.Clusters <= 0 {
		opts.Clusters = 3
	}
	if opts.HostsPerCluster <= 0 {
		opts.HostsPerCluster = 4
	}
	if opts.VMsPerHost < 0 {
		opts.VMsPerHost = 0
	}
	return &MockSource{opts: opts}
}

func (m *MockSource) Name() string { return "mock" }

var (
	clusterNames = []string{"Production", "Development", "DR-Site", "Edge", "Staging", "Analytics"}
	vmRoles      = []string{"web", "app", "db", "cache", "batch", "mq", "proxy", "mon"}

	hostCores   = []float64{32, 48, 64, 96}
	hostMemGB   = []float64{256, 384, 512, 768}
	hostStorGB  = []float64{4000, 8000, 12000}
	vmCPU       = []float64{1, 2, 4, 8, 16}
	vmMemGB     = []float64{2, 4, 8, 16, 32, 64}
	vmStorageGB = []float64{40, 80, 120, 250, 500}
)

// Load generates the inventory.
func (m *MockSource) Load(ctx context.Context) ([]model.Cluster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(m.opts.Seed, m.opts.Seed^0x9e3779b97f4a7c15))

	clusters := make([]model.Cluster, 0, m.opts.Clusters)
	for c := 1; c <= m.opts.Clusters; c++ {
		cluster := model.Cluster{
			ID:        fmt.Sprintf("cluster-%d", c),
			Name:      clusterNames[(c-1)%len(clusterNames)],
			IsVisible: true,
			Hosts:     make([]model.Host, 0, m.opts.HostsPerCluster),
		}
		if c > len(clusterNames) {
			cluster.Name = fmt.Sprintf("%s-%d", cluster.Name, (c-1)/len(clusterNames)+1)
		}

		for h := 1; h <= m.opts.HostsPerCluster; h++ {
			host := model.Host{
				ID:             fmt.Sprintf("host-%d-%d", c, h),
				Name:           fmt.Sprintf("esx-%02d-%02d", c, h),
				ClusterID:      cluster.ID,
				TotalCPUCores:  pick(rng, hostCores),
				TotalMemoryGB:  pick(rng, hostMemGB),
				TotalStorageGB: pick(rng, hostStorGB),
				VMs:            []model.VM{},
			}

			// vary the VM count by up to half around the target
			n := m.opts.VMsPerHost
			if n > 1 {
				n = n/2 + rng.IntN(n+1)
			}
			for v := 1; v <= n; v++ {
				role := pick(rng, vmRoles)
				host.VMs = append(host.VMs, model.VM{
					ID:                   fmt.Sprintf("vm-%d-%d-%d", c, h, v),
					Name:                 fmt.Sprintf("%s-%02d%02d%02d", role, c, h, v),
					AllocatedCPU:         pick(rng, vmCPU),
					AllocatedMemoryGB:    pick(rng, vmMemGB),
					ProvisionedStorageGB: pick(rng, vmStorageGB),
					HostID:               host.ID,
					ClusterID:            cluster.ID,
				})
			}
			cluster.Hosts = append(cluster.Hosts, host)
		}
		clusters = append(clusters, cluster)
	}
	return clusters, nil
}

func pick[T any](rng *rand.Rand, from []T) T {
	return from[rng.IntN(len(from))]
}
