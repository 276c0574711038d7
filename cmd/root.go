package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/sorsim/sorsim/sim"
)

var (
	// CLI flags for the primary run mode
	configPath  string // Config file path (key=value or YAML)
	logLevel    string // Log verbosity for process diagnostics
	logFile     string // Simulation log file path override
	summaryFile string // Summary file path override
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "sorsim",
	Short: "Actor-based emergency department simulator",
}

// parsePositionalConfig overlays the legacy positional form
// `N K duration msPerMinute seed` onto cfg.
func parsePositionalConfig(cfg *sim.Config, args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("expected N K duration msPerMinute seed, got %d args", len(args))
	}
	vals := make([]int64, 5)
	for i, a := range args {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return fmt.Errorf("argument %d (%q): %w", i+1, a, err)
		}
		vals[i] = v
	}
	cfg.NWaitingRoom = int(vals[0])
	cfg.KRegistrationThreshold = int(vals[1])
	cfg.SimulationDurationMinutes = int(vals[2])
	cfg.TimeScaleMsPerSimMinute = int(vals[3])
	cfg.RandomSeed = vals[4]
	return nil
}

// loadRunConfig resolves the run configuration from flags, an
// optional config file and the environment.
func loadRunConfig(args []string) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		loaded, err := sim.LoadConfigFile(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if len(args) > 0 {
		if err := parsePositionalConfig(&cfg, args); err != nil {
			return cfg, err
		}
	}
	if logFile != "" {
		cfg.LogPath = logFile
	}
	if summaryFile != "" {
		cfg.SummaryPath = summaryFile
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// runCmd executes the full simulation
var runCmd = &cobra.Command{
	Use:   "run [N K duration msPerMinute seed]",
	Short: "Run the emergency department simulation",
	Args:  cobra.RangeArgs(0, 5),
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := loadRunConfig(args)
		if err != nil {
			logrus.Errorf("configuration error: %v", err)
			os.Exit(1)
		}

		// SIGINT stops the run; SIGTERM is the evacuation stimulus.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		os.Exit(sim.RunSimulation(cfg, sigCh))
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Config file (key=value or .yaml)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&logFile, "log-file", "", "Simulation log file path (default sor_run_<ts>.log)")
	runCmd.Flags().StringVar(&summaryFile, "summary-file", "", "Summary file path (default sor_summary_<ts>.txt)")

	rootCmd.AddCommand(runCmd)
}
