package seed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	promapi "github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	prommodel "github.com/prometheus/common/model"
	"go.uber.org/zap"

	"github.com/guimove/capviz/internal/model"
)

// ErrPrometheusUnreachable is returned when the endpoint does not answer.
var ErrPrometheusUnreachable = errors.New("prometheus endpoint unreachable")

// Queries against vmware_exporter series. Memory is reported in MB and
// disk capacity in bytes.
const (
	queryHostCPU      = `max by (cluster_name, host_name) (vmware_host_num_cpu)`
	queryHostMemoryMB = `max by (cluster_name, host_name) (vmware_host_memory_max)`
	queryVMCPU        = `max by (cluster_name, host_name, vm_name) (vmware_vm_num_cpu)`
	queryVMMemoryMB   = `max by (cluster_name, host_name, vm_name) (vmware_vm_memory_max)`
	queryVMDiskBytes  = `sum by (cluster_name, host_name, vm_name) (vmware_vm_guest_disk_capacity)`
)

// PrometheusSource builds an inventory from vSphere metrics scraped by
// vmware_exporter.
type PrometheusSource struct {
	api      promv1.API
	endpoint string
	timeout  time.Duration
	log      *zap.SugaredLogger
}

// PrometheusOption configures the Prometheus source.
type PrometheusOption func(*PrometheusSource)

// WithQueryTimeout sets the timeout for the whole inventory load.
func WithQueryTimeout(d time.Duration) PrometheusOption {
	return func(s *PrometheusSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithAPI replaces the query client.
func WithAPI(api promv1.API) PrometheusOption {
	return func(s *PrometheusSource) { s.api = api }
}

// NewPrometheusSource creates a source connected to the given endpoint.
func NewPrometheusSource(endpoint string, opts ...PrometheusOption) (*PrometheusSource, error) {
	client, err := promapi.NewClient(promapi.Config{Address: endpoint})
	if err != nil {
		return nil, fmt.Errorf("creating prometheus client: %w", err)
	}

	s := &PrometheusSource{
		api:      promv1.NewAPI(client),
		endpoint: endpoint,
		timeout:  30 * time.Second,
		log:      zap.S().Named("seed"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *PrometheusSource) Name() string { return "prometheus" }

// Load queries host and VM series in parallel and assembles the inventory.
func (s *PrometheusSource) Load(ctx context.Context) ([]model.Cluster, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type queryResult struct {
		name string
		data prommodel.Value
		err  error
	}

	queries := map[string]string{
		"host_cpu": queryHostCPU,
		"host_mem": queryHostMemoryMB,
		"vm_cpu":   queryVMCPU,
		"vm_mem":   queryVMMemoryMB,
		"vm_disk":  queryVMDiskBytes,
	}

	now := time.Now()
	results := make(chan queryResult, len(queries))
	for name, q := range queries {
		go func(n, query string) {
			data, warnings, err := s.api.Query(ctx, query, now)
			if len(warnings) > 0 {
				s.log.Warnw("prometheus query warnings", "query", n, "warnings", warnings)
			}
			results <- queryResult{name: n, data: data, err: err}
		}(name, q)
	}

	collected := make(map[string]prommodel.Value, len(queries))
	var errs []error
	for range queries {
		r := <-results
		if r.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.name, r.err))
			continue
		}
		collected[r.name] = r.data
	}

	// Host series are required; VM details degrade to zero.
	if _, ok := collected["host_cpu"]; !ok {
		return nil, fmt.Errorf("%w (%s): %w", ErrPrometheusUnreachable, s.endpoint, errors.Join(errs...))
	}
	if len(errs) > 0 {
		s.log.Warnw("some inventory queries failed", "errors", errors.Join(errs...).Error())
	}

	clusters := buildInventory(collected)
	if len(clusters) == 0 {
		return nil, ErrEmptyInventory
	}
	fillReferences(clusters)
	return clusters, nil
}

type hostKey struct{ cluster, host string }

type vmKey struct {
	hostKey
	vm string
}

// buildInventory assembles clusters from query results. Names double as
// ids since vmware_exporter exposes no stable object ids.
func buildInventory(data map[string]prommodel.Value) []model.Cluster {
	hostCPU := hostVector(data["host_cpu"])
	hostMem := hostVector(data["host_mem"])
	vmCPU := vmVector(data["vm_cpu"])
	vmMem := vmVector(data["vm_mem"])
	vmDisk := vmVector(data["vm_disk"])

	vmsByHost := make(map[hostKey][]model.VM)
	for k, cpu := range vmCPU {
		if _, ok := hostCPU[k.hostKey]; !ok {
			continue
		}
		vmsByHost[k.hostKey] = append(vmsByHost[k.hostKey], model.VM{
			ID:                   k.vm,
			Name:                 k.vm,
			AllocatedCPU:         cpu,
			AllocatedMemoryGB:    vmMem[k] / 1024,
			ProvisionedStorageGB: vmDisk[k] / (1 << 30),
		})
	}

	hostsByCluster := make(map[string][]model.Host)
	for k, cpu := range hostCPU {
		vms := vmsByHost[k]
		sort.Slice(vms, func(i, j int) bool { return vms[i].ID < vms[j].ID })
		hostsByCluster[k.cluster] = append(hostsByCluster[k.cluster], model.Host{
			ID:            k.host,
			Name:          k.host,
			TotalCPUCores: cpu,
			TotalMemoryGB: hostMem[k] / 1024,
			VMs:           vms,
		})
	}

	clusters := make([]model.Cluster, 0, len(hostsByCluster))
	for name, hosts := range hostsByCluster {
		sort.Slice(hosts, func(i, j int) bool { return hosts[i].ID < hosts[j].ID })
		clusters = append(clusters, model.Cluster{ID: name, Name: name, IsVisible: true, Hosts: hosts})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })
	return clusters
}

func hostVector(v prommodel.Value) map[hostKey]float64 {
	result := make(map[hostKey]float64)
	vec, ok := v.(prommodel.Vector)
	if !ok {
		return result
	}
	for _, sample := range vec {
		k := hostKey{string(sample.Metric["cluster_name"]), string(sample.Metric["host_name"])}
		if k.cluster == "" || k.host == "" {
			continue
		}
		result[k] = float64(sample.Value)
	}
	return result
}

func vmVector(v prommodel.Value) map[vmKey]float64 {
	result := make(map[vmKey]float64)
	vec, ok := v.(prommodel.Vector)
	if !ok {
		return result
	}
	for _, sample := range vec {
		k := vmKey{
			hostKey: hostKey{string(sample.Metric["cluster_name"]), string(sample.Metric["host_name"])},
			vm:      string(sample.Metric["vm_name"]),
		}
		if k.cluster == "" || k.host == "" || k.vm == "" {
			continue
		}
		result[k] = float64(sample.Value)
	}
	return result
}
