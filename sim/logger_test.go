package sim

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLogLine_WithMetrics(t *testing.T) {
	rec := LogRecord{
		SimMinutes: 7,
		ActorID:    3,
		Role:       RoleReg1,
		Metrics: &MetricsSnapshot{
			Inside: 2, Capacity: 10, RegQ: 1, TriageQ: 0, SpecQ: 4, WaitSem: 8, StateLock: 1,
		},
		Text: "Registering patient id=5 vip=0 persons=1",
	}

	line := FormatLogLine(rec)
	assert.Equal(t,
		"7;3;wR=2/10;rQ=1;tQ=0;sQ=4;wSem=8;sSem=1;reg1;Registering patient id=5 vip=0 persons=1",
		line)
}

func TestFormatLogLine_WithoutMetrics(t *testing.T) {
	line := FormatLogLine(LogRecord{SimMinutes: 0, ActorID: 1, Role: RoleDirector, Text: "END"})
	assert.Equal(t, "0;1;director;END", line)
}

func TestLogger_WritesLinesAndStopsOnSentinel(t *testing.T) {
	// GIVEN a kernel with a logger over a temp file
	k := newTestKernel(t, nil, nil)
	path := filepath.Join(t.TempDir(), "run.log")
	f, err := OpenLogFile(path)
	require.NoError(t, err)
	logger := k.SpawnLogger(f)

	h, _ := k.Registry.NewHandle(k.BaseContext(), RoleTriage)

	// WHEN two records and the sentinel are emitted
	k.EmitLog(h, "Triage started")
	k.EmitLog(h, "Patient sent home from triage id=9")
	require.NoError(t, k.EmitSentinel(k.BaseContext(), h))

	// THEN the logger drains and terminates on its own
	require.True(t, logger.Join(k.Clock, testJoinTimeout), "logger did not stop on sentinel")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], ";triage;Triage started")
	assert.Contains(t, lines[1], "Patient sent home from triage id=9")
	assert.NotContains(t, string(data), "END")

	// AND the metrics block leads each body
	assert.Contains(t, lines[0], "wR=0/4;")
}

func TestLogger_StopsOnChannelDestroy(t *testing.T) {
	k := newTestKernel(t, nil, nil)
	f, err := OpenLogFile(filepath.Join(t.TempDir(), "run.log"))
	require.NoError(t, err)
	logger := k.SpawnLogger(f)

	k.LogChan.Destroy()
	require.True(t, logger.Join(k.Clock, testJoinTimeout))
}

func TestEmitLog_DropsOnSaturation(t *testing.T) {
	// GIVEN a kernel whose log channel is full and unconsumed
	k := newTestKernel(t, nil, func(c *Config) { c.ChannelCapacityRecords = 2 })
	h, _ := k.Registry.NewHandle(k.BaseContext(), RolePatient)

	k.EmitLog(h, "one")
	k.EmitLog(h, "two")

	// WHEN another record arrives
	k.EmitLog(h, "three")

	// THEN it is dropped and counted instead of blocking
	assert.Equal(t, int64(1), k.DroppedLogs.Load())
	assert.Equal(t, 2, k.LogChan.Depth())
}
