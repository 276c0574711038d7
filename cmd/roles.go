// Single-role sub-modes. In the multi-process deployment each of
// these attached to the director's IPC resources by key; here each
// runs the named role against a standalone kernel rig keyed by
// <keyBase>, which is what makes one role drivable in isolation.

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

// standaloneRig bootstraps a kernel with a logger writing to
// sor_<keyBase>.log and returns it with the logger handle.
func standaloneRig(keyBase string, cfg sim.Config) (*sim.Kernel, *sim.Handle, error) {
	k, err := sim.Bootstrap(cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	f, err := sim.OpenLogFile(fmt.Sprintf("sor_%s.log", keyBase))
	if err != nil {
		k.Destroy()
		return nil, nil, err
	}
	return k, k.SpawnLogger(f), nil
}

// runRoleUntilSignal blocks until SIGINT/SIGTERM, then stops the role
// and dismantles the rig.
func runRoleUntilSignal(k *sim.Kernel, logger, role *sim.Handle) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	<-sigCh

	role.Stop()
	<-role.Done()
	k.Destroy()
	<-logger.Done()
	return 0
}

func atoiArg(name, val string) (int, error) {
	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s (%q): %w", name, val, err)
	}
	return v, nil
}

func fail(err error) {
	logrus.Errorf("%v", err)
	os.Exit(1)
}

var loggerCmd = &cobra.Command{
	Use:   "logger <channelId> <path>",
	Short: "Run the log consumer over a standalone rig",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		k, err := sim.Bootstrap(sim.DefaultConfig(), nil)
		if err != nil {
			fail(err)
		}
		f, err := sim.OpenLogFile(args[1])
		if err != nil {
			k.Destroy()
			fail(err)
		}
		h := k.SpawnLogger(f)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		<-sigCh
		k.Destroy()
		<-h.Done()
	},
}

func registrationCmd(second bool) *cobra.Command {
	use, short := "registration <keyBase>", "Run a primary registration desk over a standalone rig"
	if second {
		use, short = "registration2 <keyBase>", "Run a secondary registration desk over a standalone rig"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			k, logger, err := standaloneRig(args[0], sim.DefaultConfig())
			if err != nil {
				fail(err)
			}
			os.Exit(runRoleUntilSignal(k, logger, k.SpawnRegistration(second)))
		},
	}
}

var triageCmd = &cobra.Command{
	Use:   "triage <keyBase>",
	Short: "Run the triage role over a standalone rig",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		k, logger, err := standaloneRig(args[0], sim.DefaultConfig())
		if err != nil {
			fail(err)
		}
		os.Exit(runRoleUntilSignal(k, logger, k.SpawnTriage()))
	},
}

var specialistCmd = &cobra.Command{
	Use:   "specialist <keyBase> <type>",
	Short: "Run one specialist role (type 0..5) over a standalone rig",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		t, err := atoiArg("type", args[1])
		if err != nil {
			fail(err)
		}
		if t < 0 || t >= sim.SpecialistCount {
			fail(fmt.Errorf("type must be in 0..%d, got %d", sim.SpecialistCount-1, t))
		}
		k, logger, err := standaloneRig(args[0], sim.DefaultConfig())
		if err != nil {
			fail(err)
		}
		os.Exit(runRoleUntilSignal(k, logger, k.SpawnSpecialist(sim.SpecialistType(t))))
	},
}

var patientGenCmd = &cobra.Command{
	Use:   "patient_generator <keyBase> <N> <K> <duration> <msPerMinute> <seed> [min] [max]",
	Short: "Run the patient factory over a standalone rig",
	Args:  cobra.RangeArgs(6, 8),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := sim.DefaultConfig()
		names := []string{"N", "K", "duration", "msPerMinute"}
		vals := make([]int, 4)
		for i, name := range names {
			v, err := atoiArg(name, args[i+1])
			if err != nil {
				fail(err)
			}
			vals[i] = v
		}
		cfg.NWaitingRoom, cfg.KRegistrationThreshold = vals[0], vals[1]
		cfg.SimulationDurationMinutes, cfg.TimeScaleMsPerSimMinute = vals[2], vals[3]
		seed, err := strconv.ParseInt(args[5], 10, 64)
		if err != nil {
			fail(fmt.Errorf("seed (%q): %w", args[5], err))
		}
		cfg.RandomSeed = seed
		if len(args) > 6 {
			if cfg.PatientGenMinMs, err = atoiArg("min", args[6]); err != nil {
				fail(err)
			}
		}
		if len(args) > 7 {
			if cfg.PatientGenMaxMs, err = atoiArg("max", args[7]); err != nil {
				fail(err)
			}
		}
		k, logger, err := standaloneRig(args[0], cfg)
		if err != nil {
			fail(err)
		}
		os.Exit(runRoleUntilSignal(k, logger, k.SpawnFactory()))
	},
}

var patientCmd = &cobra.Command{
	Use:   "patient <keyBase> <id> <age> <vip01> <guardian01> <persons>",
	Short: "Run a single patient over a standalone rig",
	Args:  cobra.ExactArgs(6),
	Run: func(cmd *cobra.Command, args []string) {
		names := []string{"id", "age", "vip01", "guardian01", "persons"}
		vals := make([]int, 5)
		for i, name := range names {
			v, err := atoiArg(name, args[i+1])
			if err != nil {
				fail(err)
			}
			vals[i] = v
		}
		p := sim.PatientProfile{
			ID:           vals[0],
			Age:          vals[1],
			IsVip:        vals[2] == 1,
			HasGuardian:  vals[3] == 1,
			PersonsCount: vals[4],
		}
		k, logger, err := standaloneRig(args[0], sim.DefaultConfig())
		if err != nil {
			fail(err)
		}
		h := k.SpawnPatient(p)
		<-h.Done()
		k.LogChan.Destroy()
		<-logger.Done()
		k.Destroy()
	},
}

func init() {
	rootCmd.AddCommand(loggerCmd)
	rootCmd.AddCommand(registrationCmd(false))
	rootCmd.AddCommand(registrationCmd(true))
	rootCmd.AddCommand(triageCmd)
	rootCmd.AddCommand(specialistCmd)
	rootCmd.AddCommand(patientGenCmd)
	rootCmd.AddCommand(patientCmd)
}
