package sim

import (
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

// testJoinTimeout bounds every wait in the tests.
const testJoinTimeout = 2 * time.Second

// testConfig returns a configuration fast enough for unit tests:
// time scale 1 (every calibrated interval shrinks 20x) and tiny
// service times.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NWaitingRoom = 4
	cfg.KRegistrationThreshold = 2
	cfg.SimulationDurationMinutes = 0
	cfg.TimeScaleMsPerSimMinute = 1
	cfg.RegistrationServiceMs = 0
	cfg.TriageServiceMs = 0
	cfg.SpecialistExamMinMs = 1
	cfg.SpecialistExamMaxMs = 1
	cfg.SpecialistLeaveMinMs = 1
	cfg.SpecialistLeaveMaxMs = 1
	cfg.PatientGenMinMs = 1
	cfg.PatientGenMaxMs = 2
	cfg.ChannelCapacityRecords = 64
	cfg.MaxPatientChildren = 50
	return cfg
}

// newTestKernel bootstraps a kernel over cfg mutations and registers
// teardown.
func newTestKernel(t *testing.T, clk clock.Clock, mut func(*Config)) *Kernel {
	t.Helper()
	cfg := testConfig()
	if mut != nil {
		mut(&cfg)
	}
	k, err := Bootstrap(cfg, clk)
	require.NoError(t, err)
	t.Cleanup(k.Destroy)
	return k
}

// occupySeats claims n seats directly and mirrors the occupancy
// counter, as if a patient had entered.
func occupySeats(t *testing.T, k *Kernel, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.True(t, k.WaitSem.TryAcquire(), "no free seat to occupy")
	}
	k.State.Lock()
	k.State.InsideWaitingRoom += n
	k.State.Unlock()
}

// arrivalRecord builds the record a patient would enqueue.
func arrivalRecord(id int, isVip bool, persons int) Record {
	return Record{
		Key:          patientKey(isVip),
		PatientID:    id,
		Specialist:   SpecialistNone,
		Color:        ColorNone,
		IsVip:        isVip,
		Age:          40,
		PersonsCount: persons,
		SeatsHeld:    persons,
	}
}

// waitFor polls cond every millisecond until it holds or the deadline
// passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), msg)
}

// drainLogTexts empties LogChan and returns the texts containing
// substr, in arrival order.
func drainLogTexts(k *Kernel, substr string) []string {
	var out []string
	for {
		rec, ok := k.LogChan.TryReceive(1)
		if !ok {
			return out
		}
		if strings.Contains(rec.Text, substr) {
			out = append(out, rec.Text)
		}
	}
}
