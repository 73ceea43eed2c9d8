package model

import "slices"

// VM is a virtual machine placed on exactly one host.
type VM struct {
	ID                   string  `json:"id" validate:"required"`
	Name                 string  `json:"name"`
	AllocatedCPU         float64 `json:"allocated_cpu" validate:"gte=0"`
	AllocatedMemoryGB    float64 `json:"allocated_memory_gb" validate:"gte=0"`
	ProvisionedStorageGB float64 `json:"provisioned_storage_gb" validate:"gte=0"`
	HostID               string  `json:"host_id"`
	ClusterID            string  `json:"cluster_id"`

	// IsLocked is advisory unless the engine runs with the enforce lock policy.
	IsLocked bool `json:"is_locked"`
}

// Amount returns the VM's allocation for the given view.
func (v VM) Amount(view ResourceView) float64 {
	switch view {
	case ViewMemory:
		return v.AllocatedMemoryGB
	case ViewStorage:
		return v.ProvisionedStorageGB
	default:
		return v.AllocatedCPU
	}
}

// Host is a physical hypervisor. Capacity fields are hardware facts and are
// never changed by the engine.
type Host struct {
	ID             string  `json:"id" validate:"required"`
	Name           string  `json:"name"`
	ClusterID      string  `json:"cluster_id"`
	TotalCPUCores  float64 `json:"total_cpu_cores" validate:"gte=0"`
	TotalMemoryGB  float64 `json:"total_memory_gb" validate:"gte=0"`
	TotalStorageGB float64 `json:"total_storage_gb" validate:"gte=0"`
	VMs            []VM    `json:"vms" validate:"dive"`
}

// RawCapacity returns the unscaled hardware capacity for the given view.
func (h Host) RawCapacity(view ResourceView) float64 {
	switch view {
	case ViewMemory:
		return h.TotalMemoryGB
	case ViewStorage:
		return h.TotalStorageGB
	default:
		return h.TotalCPUCores
	}
}

// Allocated returns the sum of the view's field over the host's VMs.
func (h Host) Allocated(view ResourceView) float64 {
	var total float64
	for i := range h.VMs {
		total += h.VMs[i].Amount(view)
	}
	return total
}

// Cluster groups hosts. Hidden clusters keep their data but are left out of
// statistics and layout.
type Cluster struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name"`
	IsVisible bool   `json:"is_visible"`
	Hosts     []Host `json:"hosts" validate:"dive"`
}

// VMCount returns the number of VMs across all hosts of the cluster.
func (c Cluster) VMCount() int {
	n := 0
	for i := range c.Hosts {
		n += len(c.Hosts[i].VMs)
	}
	return n
}

// HostLocation identifies a host by its position in a cluster slice.
type HostLocation struct {
	Cluster int
	Host    int
}

// VMLocation identifies a VM by its position in a cluster slice.
type VMLocation struct {
	HostLocation
	VM int
}

// FindHost returns the position of the host with the given id.
func FindHost(clusters []Cluster, hostID string) (HostLocation, bool) {
	for ci := range clusters {
		for hi := range clusters[ci].Hosts {
			if clusters[ci].Hosts[hi].ID == hostID {
				return HostLocation{Cluster: ci, Host: hi}, true
			}
		}
	}
	return HostLocation{}, false
}

// FindVM returns the position of the VM with the given id.
func FindVM(clusters []Cluster, vmID string) (VMLocation, bool) {
	for ci := range clusters {
		for hi := range clusters[ci].Hosts {
			for vi := range clusters[ci].Hosts[hi].VMs {
				if clusters[ci].Hosts[hi].VMs[vi].ID == vmID {
					return VMLocation{HostLocation: HostLocation{Cluster: ci, Host: hi}, VM: vi}, true
				}
			}
		}
	}
	return VMLocation{}, false
}

// FindCluster returns the index of the cluster with the given id, or -1.
func FindCluster(clusters []Cluster, clusterID string) int {
	for i := range clusters {
		if clusters[i].ID == clusterID {
			return i
		}
	}
	return -1
}

// VisibleClusters returns the visible clusters in their original order.
// The returned slice shares host data with the input.
func VisibleClusters(clusters []Cluster) []Cluster {
	visible := make([]Cluster, 0, len(clusters))
	for i := range clusters {
		if clusters[i].IsVisible {
			visible = append(visible, clusters[i])
		}
	}
	return visible
}

// CloneClusters returns a deep copy of clusters.
func CloneClusters(clusters []Cluster) []Cluster {
	if clusters == nil {
		return nil
	}
	out := make([]Cluster, len(clusters))
	for ci, c := range clusters {
		out[ci] = c
		if c.Hosts == nil {
			continue
		}
		out[ci].Hosts = make([]Host, len(c.Hosts))
		for hi, h := range c.Hosts {
			out[ci].Hosts[hi] = h
			out[ci].Hosts[hi].VMs = slices.Clone(h.VMs)
		}
	}
	return out
}
