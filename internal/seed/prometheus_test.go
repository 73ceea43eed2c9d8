package seed

import (
	"context"
	"errors"
	"testing"
	"time"

	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	prommodel "github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guimove/capviz/internal/model"
)

// fakeAPI answers instant queries from a fixed table.
type fakeAPI struct {
	promv1.API
	results map[string]prommodel.Value
	fail    map[string]error
}

func (f *fakeAPI) Query(ctx context.Context, query string, ts time.Time, opts ...promv1.Option) (prommodel.Value, promv1.Warnings, error) {
	if err := f.fail[query]; err != nil {
		return nil, nil, err
	}
	if v, ok := f.results[query]; ok {
		return v, nil, nil
	}
	return prommodel.Vector{}, nil, nil
}

func sample(value float64, labels ...string) *prommodel.Sample {
	m := prommodel.Metric{}
	for i := 0; i+1 < len(labels); i += 2 {
		m[prommodel.LabelName(labels[i])] = prommodel.LabelValue(labels[i+1])
	}
	return &prommodel.Sample{Metric: m, Value: prommodel.SampleValue(value)}
}

func vsphereAPI() *fakeAPI {
	return &fakeAPI{results: map[string]prommodel.Value{
		queryHostCPU: prommodel.Vector{
			sample(32, "cluster_name", "prod", "host_name", "esx-02"),
			sample(16, "cluster_name", "prod", "host_name", "esx-01"),
			sample(8, "cluster_name", "lab", "host_name", "esx-lab"),
			sample(8, "host_name", "orphan"),
		},
		queryHostMemoryMB: prommodel.Vector{
			sample(131072, "cluster_name", "prod", "host_name", "esx-01"),
			sample(262144, "cluster_name", "prod", "host_name", "esx-02"),
		},
		queryVMCPU: prommodel.Vector{
			sample(4, "cluster_name", "prod", "host_name", "esx-01", "vm_name", "web-01"),
			sample(2, "cluster_name", "prod", "host_name", "esx-01", "vm_name", "api-01"),
			sample(2, "cluster_name", "prod", "host_name", "gone", "vm_name", "stale"),
		},
		queryVMMemoryMB: prommodel.Vector{
			sample(8192, "cluster_name", "prod", "host_name", "esx-01", "vm_name", "web-01"),
		},
		queryVMDiskBytes: prommodel.Vector{
			sample(100*(1<<30), "cluster_name", "prod", "host_name", "esx-01", "vm_name", "web-01"),
		},
	}}
}

func newTestPrometheusSource(t *testing.T, api promv1.API) *PrometheusSource {
	t.Helper()
	src, err := NewPrometheusSource("http://prometheus.invalid:9090", WithAPI(api), WithQueryTimeout(time.Second))
	require.NoError(t, err)
	return src
}

func TestPrometheusSource_Load(t *testing.T) {
	src := newTestPrometheusSource(t, vsphereAPI())
	assert.Equal(t, "prometheus", src.Name())

	clusters, err := src.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, model.Validate(clusters))

	require.Len(t, clusters, 2)
	assert.Equal(t, "lab", clusters[0].ID)
	prod := clusters[1]
	assert.Equal(t, "prod", prod.ID)
	require.Len(t, prod.Hosts, 2)

	h1 := prod.Hosts[0]
	assert.Equal(t, "esx-01", h1.ID)
	assert.Equal(t, "prod", h1.ClusterID)
	assert.Equal(t, 16.0, h1.TotalCPUCores)
	assert.Equal(t, 128.0, h1.TotalMemoryGB)
	require.Len(t, h1.VMs, 2)
	assert.Equal(t, "api-01", h1.VMs[0].ID)
	web := h1.VMs[1]
	assert.Equal(t, "web-01", web.ID)
	assert.Equal(t, "esx-01", web.HostID)
	assert.Equal(t, 8.0, web.AllocatedMemoryGB)
	assert.Equal(t, 100.0, web.ProvisionedStorageGB)

	assert.NotNil(t, prod.Hosts[1].VMs, "hosts without VMs get an empty slice")
}

func TestPrometheusSource_Unreachable(t *testing.T) {
	api := vsphereAPI()
	api.fail = map[string]error{queryHostCPU: errors.New("connection refused")}

	_, err := newTestPrometheusSource(t, api).Load(context.Background())
	assert.ErrorIs(t, err, ErrPrometheusUnreachable)
}

func TestPrometheusSource_PartialFailure(t *testing.T) {
	api := vsphereAPI()
	api.fail = map[string]error{queryVMDiskBytes: errors.New("timeout")}

	clusters, err := newTestPrometheusSource(t, api).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, clusters[1].Hosts[0].VMs[1].ProvisionedStorageGB)
}

func TestPrometheusSource_Empty(t *testing.T) {
	_, err := newTestPrometheusSource(t, &fakeAPI{}).Load(context.Background())
	assert.ErrorIs(t, err, ErrEmptyInventory)
}
