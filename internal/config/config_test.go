package config

import (
	"testing"
	"time"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown seed source", func(c *Config) { c.Seed.Source = "vcenter" }},
		{"file seed without path", func(c *Config) { c.Seed.Source = "file"; c.Seed.Path = "" }},
		{"prometheus seed without url", func(c *Config) { c.Seed.Source = "prometheus" }},
		{"mock without hosts", func(c *Config) { c.Seed.MockHostsPerCluster = 0 }},
		{"cpu ratio below one", func(c *Config) { c.Engine.CPURatio = 0.5 }},
		{"memory ratio below one", func(c *Config) { c.Engine.MemoryRatio = 0 }},
		{"unknown view", func(c *Config) { c.Engine.View = "network" }},
		{"unknown lock policy", func(c *Config) { c.Engine.LockPolicy = "strict" }},
		{"negative history", func(c *Config) { c.Engine.MaxHistory = -1 }},
		{"unknown ha policy", func(c *Config) { c.Engine.HAPolicy = "n+3" }},
		{"unknown placement strategy", func(c *Config) { c.Placement.Strategy = "worst-fit" }},
		{"zero width", func(c *Config) { c.Layout.Width = 0 }},
		{"zero level band", func(c *Config) { c.Layout.LevelBand = 0 }},
		{"negative padding", func(c *Config) { c.Layout.Padding = -1 }},
		{"unknown backend", func(c *Config) { c.Persistence.Backend = "s3" }},
		{"sqlite without path", func(c *Config) { c.Persistence.Backend = "sqlite"; c.Persistence.Path = "" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "logfmt" }},
		{"unknown output format", func(c *Config) { c.Output.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_NoneBackendNeedsNoPath(t *testing.T) {
	cfg := Default()
	cfg.Persistence.Backend = "none"
	cfg.Persistence.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_DefaultsEmptyPolicies(t *testing.T) {
	cfg := Default()
	cfg.Engine.HAPolicy = ""
	cfg.Placement.Strategy = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.HAPolicy != "none" || cfg.Placement.Strategy != "best-fit" {
		t.Errorf("got ha_policy %q strategy %q", cfg.Engine.HAPolicy, cfg.Placement.Strategy)
	}
}

func TestValidate_FixesZeroTimeouts(t *testing.T) {
	cfg := Default()
	cfg.Persistence.SaveTimeout = 0
	cfg.Server.ShutdownTimeout = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Persistence.SaveTimeout != 5*time.Second {
		t.Errorf("save timeout = %v, want 5s", cfg.Persistence.SaveTimeout)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
}
