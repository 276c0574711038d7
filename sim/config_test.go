package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Normalize())
}

func TestParseKeyValues_AppliesKnownKeys(t *testing.T) {
	// GIVEN a key=value config with comments and blank lines
	data := []byte(`
# ED sizing
N_waitingRoom=12
K_registrationThreshold=7   # second desk opens here
simulationDurationMinutes=0
timeScaleMsPerSimMinute=50
randomSeed=777
registrationServiceMs=5
reconcileWaitSem=1
`)

	// WHEN parsed over the defaults
	cfg := DefaultConfig()
	require.NoError(t, parseKeyValues(data, &cfg))

	// THEN the listed keys are applied and the rest keep defaults
	assert.Equal(t, 12, cfg.NWaitingRoom)
	assert.Equal(t, 7, cfg.KRegistrationThreshold)
	assert.Equal(t, 0, cfg.SimulationDurationMinutes)
	assert.Equal(t, 50, cfg.TimeScaleMsPerSimMinute)
	assert.Equal(t, int64(777), cfg.RandomSeed)
	assert.Equal(t, 5, cfg.RegistrationServiceMs)
	assert.True(t, cfg.ReconcileWaitSem)
	assert.Equal(t, DefaultConfig().TriageServiceMs, cfg.TriageServiceMs)
}

func TestParseKeyValues_UnknownKeyIsError(t *testing.T) {
	cfg := DefaultConfig()
	err := parseKeyValues([]byte("N_waitingroom=3\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestParseKeyValues_MalformedLineIsError(t *testing.T) {
	cfg := DefaultConfig()
	err := parseKeyValues([]byte("N_waitingRoom 3\n"), &cfg)
	require.Error(t, err)
}

func TestLoadConfigFile_YAML(t *testing.T) {
	// GIVEN a strict YAML config
	path := filepath.Join(t.TempDir(), "sor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"N_waitingRoom: 8\nK_registrationThreshold: 4\nrandomSeed: 99\n"), 0o644))

	// WHEN loaded
	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	// THEN the keys land on the same fields as key=value ones
	assert.Equal(t, 8, cfg.NWaitingRoom)
	assert.Equal(t, 4, cfg.KRegistrationThreshold)
	assert.Equal(t, int64(99), cfg.RandomSeed)
}

func TestLoadConfigFile_YAMLUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("N_waitingRooms: 8\n"), 0o644))

	_, err := LoadConfigFile(path)
	require.Error(t, err)
}

func TestNormalize_KAutoDerivesToHalfN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NWaitingRoom = 10
	cfg.KRegistrationThreshold = 0

	require.NoError(t, cfg.Normalize())
	assert.Equal(t, 5, cfg.KRegistrationThreshold)
}

func TestNormalize_KBelowHalfNRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NWaitingRoom = 10
	cfg.KRegistrationThreshold = 4

	require.Error(t, cfg.Normalize())
}

func TestNormalize_NonPositiveDurationMeansUnbounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SimulationDurationMinutes = -3

	require.NoError(t, cfg.Normalize())
	assert.Equal(t, 0, cfg.SimulationDurationMinutes)
}

func TestNormalize_RejectsBadIntervals(t *testing.T) {
	for name, mut := range map[string]func(*Config){
		"zero N":            func(c *Config) { c.NWaitingRoom = 0 },
		"zero time scale":   func(c *Config) { c.TimeScaleMsPerSimMinute = 0 },
		"inverted exam":     func(c *Config) { c.SpecialistExamMinMs = 50; c.SpecialistExamMaxMs = 10 },
		"inverted leave":    func(c *Config) { c.SpecialistLeaveMinMs = 50; c.SpecialistLeaveMaxMs = 10 },
		"inverted arrival":  func(c *Config) { c.PatientGenMinMs = 50; c.PatientGenMaxMs = 10 },
		"zero channel cap":  func(c *Config) { c.ChannelCapacityRecords = 0 },
		"zero child cap":    func(c *Config) { c.MaxPatientChildren = 0 },
		"zero render tick":  func(c *Config) { c.VisualizerRenderIntervalMs = 0 },
		"negative services": func(c *Config) { c.RegistrationServiceMs = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mut(&cfg)
			require.Error(t, cfg.Normalize())
		})
	}
}

func TestApplyEnv_ReconcileOverride(t *testing.T) {
	t.Setenv(EnvReconcileWaitSem, "1")
	cfg := DefaultConfig()
	cfg.ReconcileWaitSem = false

	cfg.ApplyEnv()
	assert.True(t, cfg.ReconcileWaitSem)
}
