// Simulation configuration: defaults, the key=value config file
// format, the strict YAML variant, environment overrides and
// validation.

package sim

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultTimeScaleMs is the time scale the service-time defaults are
// calibrated at. Other scales stretch every interval proportionally.
const defaultTimeScaleMs = 20

// EnvReconcileWaitSem overrides the reconcile toggle when set to "1".
const EnvReconcileWaitSem = "SORSIM_RECONCILE_WAITSEM"

// Config holds every tunable of a run. Immutable after Bootstrap.
type Config struct {
	NWaitingRoom              int   `yaml:"N_waitingRoom"`
	KRegistrationThreshold    int   `yaml:"K_registrationThreshold"`
	SimulationDurationMinutes int   `yaml:"simulationDurationMinutes"`
	TimeScaleMsPerSimMinute   int   `yaml:"timeScaleMsPerSimMinute"`
	RandomSeed                int64 `yaml:"randomSeed"`

	VisualizerRenderIntervalMs int `yaml:"visualizerRenderIntervalMs"`

	RegistrationServiceMs int `yaml:"registrationServiceMs"`
	TriageServiceMs       int `yaml:"triageServiceMs"`
	SpecialistExamMinMs   int `yaml:"specialistExamMinMs"`
	SpecialistExamMaxMs   int `yaml:"specialistExamMaxMs"`
	SpecialistLeaveMinMs  int `yaml:"specialistLeaveMinMs"`
	SpecialistLeaveMaxMs  int `yaml:"specialistLeaveMaxMs"`
	PatientGenMinMs       int `yaml:"patientGenMinMs"`
	PatientGenMaxMs       int `yaml:"patientGenMaxMs"`

	ReconcileWaitSem bool `yaml:"reconcileWaitSem"`

	ChannelCapacityRecords int `yaml:"channelCapacityRecords"`
	MaxPatientChildren     int `yaml:"maxPatientChildren"`

	LogPath     string `yaml:"logPath"`
	SummaryPath string `yaml:"summaryPath"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		NWaitingRoom:               10,
		KRegistrationThreshold:     5,
		SimulationDurationMinutes:  60,
		TimeScaleMsPerSimMinute:    defaultTimeScaleMs,
		RandomSeed:                 12345,
		VisualizerRenderIntervalMs: 200,
		RegistrationServiceMs:      20,
		TriageServiceMs:            10,
		SpecialistExamMinMs:        10,
		SpecialistExamMaxMs:        40,
		SpecialistLeaveMinMs:       100,
		SpecialistLeaveMaxMs:       500,
		PatientGenMinMs:            20,
		PatientGenMaxMs:            80,
		ReconcileWaitSem:           false,
		ChannelCapacityRecords:     2048,
		MaxPatientChildren:         2000,
	}
}

// LoadConfigFile reads path over the defaults. A .yaml/.yml path is
// parsed as strict YAML; anything else as key=value lines with '#'
// comments. Unknown keys are errors in both formats.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := parseKeyValues(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return cfg, nil
}

// parseKeyValues applies key=value lines onto cfg.
func parseKeyValues(data []byte, cfg *Config) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("line %d: expected key=value, got %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if err := cfg.set(key, val); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return sc.Err()
}

// set applies a single config key.
func (c *Config) set(key, val string) error {
	intVal := func() (int, error) { return strconv.Atoi(val) }
	switch key {
	case "N_waitingRoom":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.NWaitingRoom = v
	case "K_registrationThreshold":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.KRegistrationThreshold = v
	case "simulationDurationMinutes":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.SimulationDurationMinutes = v
	case "timeScaleMsPerSimMinute":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.TimeScaleMsPerSimMinute = v
	case "randomSeed":
		v, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.RandomSeed = v
	case "visualizerRenderIntervalMs":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.VisualizerRenderIntervalMs = v
	case "registrationServiceMs":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.RegistrationServiceMs = v
	case "triageServiceMs":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.TriageServiceMs = v
	case "specialistExamMinMs":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.SpecialistExamMinMs = v
	case "specialistExamMaxMs":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.SpecialistExamMaxMs = v
	case "specialistLeaveMinMs":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.SpecialistLeaveMinMs = v
	case "specialistLeaveMaxMs":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.SpecialistLeaveMaxMs = v
	case "patientGenMinMs":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.PatientGenMinMs = v
	case "patientGenMaxMs":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.PatientGenMaxMs = v
	case "reconcileWaitSem":
		c.ReconcileWaitSem = val == "1" || strings.EqualFold(val, "true")
	case "channelCapacityRecords":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.ChannelCapacityRecords = v
	case "maxPatientChildren":
		v, err := intVal()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.MaxPatientChildren = v
	case "logPath":
		c.LogPath = val
	case "summaryPath":
		c.SummaryPath = val
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// ApplyEnv folds environment overrides into the config.
func (c *Config) ApplyEnv() {
	if os.Getenv(EnvReconcileWaitSem) == "1" {
		c.ReconcileWaitSem = true
	}
}

// Normalize derives defaulted fields and validates the result.
// K=0 auto-derives to N/2; a duration <= 0 means run until signaled.
func (c *Config) Normalize() error {
	if c.NWaitingRoom <= 0 {
		return fmt.Errorf("N_waitingRoom must be > 0, got %d", c.NWaitingRoom)
	}
	if c.KRegistrationThreshold == 0 {
		c.KRegistrationThreshold = c.NWaitingRoom / 2
		if c.KRegistrationThreshold < 1 {
			c.KRegistrationThreshold = 1
		}
	}
	if c.KRegistrationThreshold < c.NWaitingRoom/2 {
		return fmt.Errorf("K_registrationThreshold must be >= N/2 (%d), got %d",
			c.NWaitingRoom/2, c.KRegistrationThreshold)
	}
	if c.SimulationDurationMinutes < 0 {
		c.SimulationDurationMinutes = 0
	}
	if c.TimeScaleMsPerSimMinute <= 0 {
		return fmt.Errorf("timeScaleMsPerSimMinute must be > 0, got %d", c.TimeScaleMsPerSimMinute)
	}
	if c.VisualizerRenderIntervalMs <= 0 {
		return fmt.Errorf("visualizerRenderIntervalMs must be > 0, got %d", c.VisualizerRenderIntervalMs)
	}
	if c.RegistrationServiceMs < 0 || c.TriageServiceMs < 0 {
		return fmt.Errorf("service times must be >= 0")
	}
	if c.SpecialistExamMinMs <= 0 || c.SpecialistExamMaxMs < c.SpecialistExamMinMs {
		return fmt.Errorf("specialist exam interval invalid: [%d,%d]",
			c.SpecialistExamMinMs, c.SpecialistExamMaxMs)
	}
	if c.SpecialistLeaveMinMs <= 0 || c.SpecialistLeaveMaxMs < c.SpecialistLeaveMinMs {
		return fmt.Errorf("specialist leave interval invalid: [%d,%d]",
			c.SpecialistLeaveMinMs, c.SpecialistLeaveMaxMs)
	}
	if c.PatientGenMinMs < 0 || c.PatientGenMaxMs < c.PatientGenMinMs {
		return fmt.Errorf("patient generation interval invalid: [%d,%d]",
			c.PatientGenMinMs, c.PatientGenMaxMs)
	}
	if c.ChannelCapacityRecords <= 0 {
		return fmt.Errorf("channelCapacityRecords must be > 0, got %d", c.ChannelCapacityRecords)
	}
	if c.MaxPatientChildren <= 0 {
		return fmt.Errorf("maxPatientChildren must be > 0, got %d", c.MaxPatientChildren)
	}
	return nil
}
