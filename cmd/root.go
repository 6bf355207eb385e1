package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pon-dba/pon-dba-sim/sim/network"
	"github.com/pon-dba/pon-dba-sim/sim/stats"
)

var (
	configPath     string  // YAML network config; empty runs the built-in default
	seed           int64   // Seed for traffic generation
	horizonSeconds float64 // Simulated time in seconds
	logLevel       string  // Log verbosity level
	policy         string  // Grant policy applied to every tier
	traceLevel     string  // Decision trace level
	metricsOut     string  // File to write Prometheus text metrics to
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "pon-dba-sim",
	Short: "Discrete-event simulator for two-tier PON dynamic bandwidth allocation",
}

// runCmd executes the simulation using the config file and flag overrides
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the two-tier DBA simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		cfg, err := loadConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Starting simulation: horizon=%gs seed=%d outer=%s inner=%d",
			cfg.HorizonSeconds, cfg.Seed, cfg.Outer.Name, len(cfg.Inner))

		startTime := time.Now()
		if err := runSimulation(cfg, os.Stdout, metricsOut); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

// validateCmd checks a config without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a network config",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		cfg, err := loadConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		fmt.Fprintf(os.Stdout, "config OK: %d outer stations, %d inner tiers\n", cfg.Outer.Subordinates, len(cfg.Inner))
	},
}

// defaultConfigCmd prints the built-in config as YAML
var defaultConfigCmd = &cobra.Command{
	Use:   "default-config",
	Short: "Print the built-in network config as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeDefaultConfig(os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadConfig reads --config (or the default) and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (network.Config, error) {
	cfg := network.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = network.LoadConfig(configPath); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("horizon") {
		cfg.HorizonSeconds = horizonSeconds
	}
	if flags.Changed("policy") {
		cfg.Outer.Policy = policy
		for i := range cfg.Inner {
			cfg.Inner[i].Policy = policy
		}
	}
	if flags.Changed("trace") {
		cfg.Trace.Level = traceLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// runSimulation builds and runs cfg, prints the summary to out and, when
// metricsPath is set, writes the Prometheus metrics there.
func runSimulation(cfg network.Config, out io.Writer, metricsPath string) error {
	collector, err := stats.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	n, err := network.Build(cfg, collector)
	if err != nil {
		return err
	}
	n.Run().Print(out)

	if metricsPath == "" {
		return nil
	}
	f, err := os.Create(metricsPath)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	defer f.Close()
	if err := collector.WriteText(f); err != nil {
		return err
	}
	logrus.Infof("Metrics written to %s", metricsPath)
	return nil
}

func writeDefaultConfig(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(network.DefaultConfig()); err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	return enc.Close()
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Path to YAML network config (default: built-in two-tier network)")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().Int64Var(&seed, "seed", 42, "Seed for traffic generation (overrides the config)")
		c.Flags().Float64Var(&horizonSeconds, "horizon", network.DefaultHorizonSeconds, "Simulated time in seconds (overrides the config)")
		c.Flags().StringVar(&policy, "policy", "limited", "Grant policy for every tier: limited, fixed (overrides the config)")
		c.Flags().StringVar(&traceLevel, "trace", "none", "Decision trace level: none, decisions (overrides the config)")
	}
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write Prometheus text metrics to this file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(defaultConfigCmd)
}
