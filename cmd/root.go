package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/guimove/capviz/internal/config"
	"github.com/guimove/capviz/internal/log"
	"github.com/guimove/capviz/internal/metrics"
)

var (
	cfgFile     string
	cfg         config.Config
	verbose     bool
	metricsFile string
	logger      *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "capviz",
	Short: "Capacity planning and VM migration simulator",
	Long: `capviz loads a virtualization inventory (clusters, hosts and VMs), computes
effective capacity under CPU and memory overcommitment, and simulates VM
migrations with undo/redo while recording every move in a migration ledger.

The ledger is persisted between runs and can be exported as a table, JSON,
markdown or an Excel workbook. 'capviz serve' exposes the engine over HTTP
for an interactive client.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		return setupLogging()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			_ = logger.Sync()
		}
		if metricsFile == "" {
			return nil
		}
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("writing metrics file: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: capviz.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	// Global flags that map to config
	rootCmd.PersistentFlags().String("inventory", "", "inventory file (JSON or YAML); implies --seed file")
	rootCmd.PersistentFlags().String("prometheus-url", "", "vmware_exporter Prometheus endpoint; implies --seed prometheus")
	rootCmd.PersistentFlags().String("seed", "", "seed source: mock, file or prometheus")
	rootCmd.PersistentFlags().Uint64("mock-seed", 0, "random seed for the mock inventory")
	rootCmd.PersistentFlags().String("view", "", "resource view: cpu, memory or storage")
	rootCmd.PersistentFlags().Float64("cpu-ratio", 0, "CPU overcommit ratio")
	rootCmd.PersistentFlags().Float64("memory-ratio", 0, "memory overcommit ratio")
	rootCmd.PersistentFlags().String("lock-policy", "", "locked VM handling: advisory or enforce")
	rootCmd.PersistentFlags().String("ha-policy", "", "HA reserve per cluster: none, n+0, n+1 or n+2")
	rootCmd.PersistentFlags().String("store", "", "ledger store: file, sqlite or none")
	rootCmd.PersistentFlags().String("store-path", "", "ledger store directory or database path")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
}

func loadConfig(cmd *cobra.Command) error {
	// Start with defaults
	cfg = config.Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("capviz")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.capviz")
	}

	// Environment variable overrides, e.g. CAPVIZ_ENGINE_CPU_RATIO
	viper.SetEnvPrefix("CAPVIZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (not an error if missing)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	// Explicit flags win over file and environment
	if err := applyFlagOverrides(cmd); err != nil {
		return err
	}

	if !cmd.Flags().Changed("seed") {
		switch {
		case cmd.Flags().Changed("inventory"):
			cfg.Seed.Source = "file"
		case cmd.Flags().Changed("prometheus-url"):
			cfg.Seed.Source = "prometheus"
		}
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	return cfg.Validate()
}

func applyFlagOverrides(cmd *cobra.Command) error {
	f := cmd.Flags()
	var err error
	str := func(name string, dst *string) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	num := func(name string, dst *float64) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetFloat64(name)
		}
	}

	str("inventory", &cfg.Seed.Path)
	str("seed", &cfg.Seed.Source)
	str("prometheus-url", &cfg.Seed.PrometheusURL)
	str("view", &cfg.Engine.View)
	num("cpu-ratio", &cfg.Engine.CPURatio)
	num("memory-ratio", &cfg.Engine.MemoryRatio)
	str("lock-policy", &cfg.Engine.LockPolicy)
	str("ha-policy", &cfg.Engine.HAPolicy)
	str("store", &cfg.Persistence.Backend)
	str("store-path", &cfg.Persistence.Path)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	if err == nil && f.Changed("mock-seed") {
		cfg.Seed.MockSeed, err = f.GetUint64("mock-seed")
	}
	return err
}

func setupLogging() error {
	l, err := log.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logger = l
	return nil
}
