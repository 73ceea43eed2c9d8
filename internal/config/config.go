package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration for capviz.
type Config struct {
	Seed        SeedConfig        `mapstructure:"seed" yaml:"seed"`
	Engine      EngineConfig      `mapstructure:"engine" yaml:"engine"`
	Layout      LayoutConfig      `mapstructure:"layout" yaml:"layout"`
	Placement   PlacementConfig   `mapstructure:"placement" yaml:"placement"`
	Persistence PersistenceConfig `mapstructure:"persistence" yaml:"persistence"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
}

// SeedConfig selects where the initial inventory comes from.
type SeedConfig struct {
	Source string `mapstructure:"source" yaml:"source"` // mock | file | prometheus
	Path   string `mapstructure:"path" yaml:"path"`

	// vmware_exporter metrics endpoint
	PrometheusURL     string        `mapstructure:"prometheus_url" yaml:"prometheus_url"`
	PrometheusTimeout time.Duration `mapstructure:"prometheus_timeout" yaml:"prometheus_timeout"`

	MockSeed            uint64 `mapstructure:"mock_seed" yaml:"mock_seed"`
	MockClusters        int    `mapstructure:"mock_clusters" yaml:"mock_clusters"`
	MockHostsPerCluster int    `mapstructure:"mock_hosts_per_cluster" yaml:"mock_hosts_per_cluster"`
	MockVMsPerHost      int    `mapstructure:"mock_vms_per_host" yaml:"mock_vms_per_host"`
}

type EngineConfig struct {
	CPURatio    float64 `mapstructure:"cpu_ratio" yaml:"cpu_ratio"`
	MemoryRatio float64 `mapstructure:"memory_ratio" yaml:"memory_ratio"`
	View        string  `mapstructure:"view" yaml:"view"`
	LockPolicy  string  `mapstructure:"lock_policy" yaml:"lock_policy"` // advisory | enforce
	MaxHistory  int     `mapstructure:"max_history" yaml:"max_history"` // 0 = unlimited
	HAPolicy    string  `mapstructure:"ha_policy" yaml:"ha_policy"`     // none | n+0 | n+1 | n+2
}

type LayoutConfig struct {
	Width          float64 `mapstructure:"width" yaml:"width"`
	Height         float64 `mapstructure:"height" yaml:"height"`
	LevelBand      float64 `mapstructure:"level_band" yaml:"level_band"`
	Padding        float64 `mapstructure:"padding" yaml:"padding"`
	ClusterSpacing float64 `mapstructure:"cluster_spacing" yaml:"cluster_spacing"`
}

// PlacementConfig holds defaults for placement recommendations.
type PlacementConfig struct {
	Strategy string `mapstructure:"strategy" yaml:"strategy"` // first-fit | best-fit | balanced | performance
}

// PersistenceConfig configures where the migration ledger is saved.
type PersistenceConfig struct {
	Backend     string        `mapstructure:"backend" yaml:"backend"` // file | sqlite | none
	Path        string        `mapstructure:"path" yaml:"path"`
	SaveTimeout time.Duration `mapstructure:"save_timeout" yaml:"save_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console | json
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Seed: SeedConfig{
			Source:              "mock",
			MockSeed:            42,
			MockClusters:        3,
			MockHostsPerCluster: 4,
			MockVMsPerHost:      6,
		},
		Engine: EngineConfig{
			CPURatio:    4.0,
			MemoryRatio: 1.5,
			View:        "cpu",
			LockPolicy:  "advisory",
			MaxHistory:  100,
			HAPolicy:    "none",
		},
		Layout: LayoutConfig{
			Width:          1200,
			Height:         800,
			LevelBand:      160,
			Padding:        1,
			ClusterSpacing: 16,
		},
		Placement: PlacementConfig{
			Strategy: "best-fit",
		},
		Persistence: PersistenceConfig{
			Backend:     "file",
			Path:        ".capviz",
			SaveTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Output: OutputConfig{
			Format: "table",
		},
	}
}

// Validate checks the config for consistency.
func (c *Config) Validate() error {
	switch c.Seed.Source {
	case "mock":
		if c.Seed.MockClusters <= 0 || c.Seed.MockHostsPerCluster <= 0 || c.Seed.MockVMsPerHost < 0 {
			return fmt.Errorf("mock inventory needs at least one cluster and host, got %d clusters x %d hosts",
				c.Seed.MockClusters, c.Seed.MockHostsPerCluster)
		}
	case "file":
		if c.Seed.Path == "" {
			return fmt.Errorf("seed source file requires seed.path")
		}
	case "prometheus":
		if c.Seed.PrometheusURL == "" {
			return fmt.Errorf("seed source prometheus requires seed.prometheus_url")
		}
	default:
		return fmt.Errorf("seed source must be mock, file or prometheus, got %q", c.Seed.Source)
	}

	if c.Engine.CPURatio < 1 || c.Engine.MemoryRatio < 1 {
		return fmt.Errorf("overcommit ratios must be >= 1, got cpu %v memory %v", c.Engine.CPURatio, c.Engine.MemoryRatio)
	}
	validViews := map[string]bool{"cpu": true, "memory": true, "storage": true}
	if !validViews[c.Engine.View] {
		return fmt.Errorf("view must be cpu, memory, or storage, got %q", c.Engine.View)
	}
	if c.Engine.LockPolicy != "advisory" && c.Engine.LockPolicy != "enforce" {
		return fmt.Errorf("lock_policy must be advisory or enforce, got %q", c.Engine.LockPolicy)
	}
	if c.Engine.MaxHistory < 0 {
		return fmt.Errorf("max_history must be non-negative, got %d", c.Engine.MaxHistory)
	}
	switch c.Engine.HAPolicy {
	case "":
		c.Engine.HAPolicy = "none"
	case "none", "n+0", "n+1", "n+2":
	default:
		return fmt.Errorf("ha_policy must be none, n+0, n+1 or n+2, got %q", c.Engine.HAPolicy)
	}
	switch c.Placement.Strategy {
	case "":
		c.Placement.Strategy = "best-fit"
	case "first-fit", "best-fit", "balanced", "performance":
	default:
		return fmt.Errorf("placement strategy must be first-fit, best-fit, balanced or performance, got %q", c.Placement.Strategy)
	}

	if c.Layout.Width <= 0 || c.Layout.Height <= 0 {
		return fmt.Errorf("layout size must be positive, got %vx%v", c.Layout.Width, c.Layout.Height)
	}
	if c.Layout.LevelBand <= 0 {
		return fmt.Errorf("layout level_band must be positive, got %v", c.Layout.LevelBand)
	}
	if c.Layout.Padding < 0 || c.Layout.ClusterSpacing < 0 {
		return fmt.Errorf("layout padding and spacing must be non-negative")
	}

	switch c.Persistence.Backend {
	case "file", "sqlite":
		if c.Persistence.Path == "" {
			return fmt.Errorf("persistence backend %s requires persistence.path", c.Persistence.Backend)
		}
	case "none":
	default:
		return fmt.Errorf("persistence backend must be file, sqlite, or none, got %q", c.Persistence.Backend)
	}
	if c.Persistence.SaveTimeout <= 0 {
		c.Persistence.SaveTimeout = 5 * time.Second
	}

	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log format must be console or json, got %q", c.Log.Format)
	}

	validFormats := map[string]bool{"table": true, "json": true, "markdown": true, "xlsx": true}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("output format must be table, json, markdown, or xlsx, got %q", c.Output.Format)
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	return nil
}
