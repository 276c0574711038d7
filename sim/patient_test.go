package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPatientProfile_DerivedFields(t *testing.T) {
	adult := NewPatientProfile(1, 40, false)
	assert.False(t, adult.HasGuardian)
	assert.Equal(t, 1, adult.PersonsCount)

	minor := NewPatientProfile(2, 17, true)
	assert.True(t, minor.HasGuardian)
	assert.Equal(t, 2, minor.PersonsCount)

	edge := NewPatientProfile(3, 18, false)
	assert.False(t, edge.HasGuardian)
}

func TestPatient_EntersAndEnqueuesArrival(t *testing.T) {
	// GIVEN a kernel with four free seats
	k := newTestKernel(t, nil, nil)

	// WHEN a lone adult patient runs to completion
	h := k.SpawnPatient(NewPatientProfile(1, 40, false))
	require.True(t, h.Join(k.Clock, testJoinTimeout))

	// THEN one seat is taken and the arrival is queued for
	// registration
	assert.Equal(t, 3, k.WaitSem.Value())
	k.State.Lock()
	assert.Equal(t, 1, k.State.InsideWaitingRoom)
	assert.Equal(t, 1, k.State.RegistrationQueueLen)
	assert.Equal(t, 1, k.State.TotalPatients)
	k.State.Unlock()

	rec, ok := k.RegChan.TryReceive(KeyNormal)
	require.True(t, ok)
	assert.Equal(t, KeyNormal, rec.Key)
	assert.Equal(t, 1, rec.PatientID)
	assert.Equal(t, 1, rec.SeatsHeld)
	assert.Equal(t, SpecialistNone, rec.Specialist)
	assert.Equal(t, ColorNone, rec.Color)
}

func TestPatient_VIPCarriesVIPKey(t *testing.T) {
	k := newTestKernel(t, nil, nil)

	h := k.SpawnPatient(NewPatientProfile(7, 30, true))
	require.True(t, h.Join(k.Clock, testJoinTimeout))

	rec, ok := k.RegChan.TryReceive(KeyNormal)
	require.True(t, ok)
	assert.Equal(t, KeyVip, rec.Key)
	assert.True(t, rec.IsVip)
}

func TestPatient_GuardianTakesTwoSeatsAndLogsChild(t *testing.T) {
	// GIVEN a minor accompanied by a guardian
	k := newTestKernel(t, nil, nil)

	// WHEN the patient completes
	h := k.SpawnPatient(NewPatientProfile(2, 10, false))
	require.True(t, h.Join(k.Clock, testJoinTimeout))

	// THEN both persons hold seats, one record is queued, and the
	// companion left its enter/exit trace
	assert.Equal(t, 2, k.WaitSem.Value())
	k.State.Lock()
	assert.Equal(t, 2, k.State.InsideWaitingRoom)
	k.State.Unlock()

	rec, ok := k.RegChan.TryReceive(KeyNormal)
	require.True(t, ok)
	assert.Equal(t, 2, rec.SeatsHeld)
	assert.Equal(t, 2, rec.PersonsCount)
	assert.Equal(t, "guardian", rec.Extra)

	assert.NotEmpty(t, drainLogTexts(k, "Child active for patient id=2"))
}

func TestPatient_BlocksUntilSeatFreed(t *testing.T) {
	// GIVEN a single-seat waiting room already occupied by patient 1
	k := newTestKernel(t, nil, func(c *Config) {
		c.NWaitingRoom = 1
		c.KRegistrationThreshold = 1
	})
	first := k.SpawnPatient(NewPatientProfile(1, 40, false))
	require.True(t, first.Join(k.Clock, testJoinTimeout))

	// WHEN a second patient arrives
	second := k.SpawnPatient(NewPatientProfile(2, 40, false))

	// THEN it stays outside while the seat is held
	time.Sleep(20 * time.Millisecond)
	assert.True(t, second.Alive(), "second patient entered a full room")
	assert.Equal(t, 1, k.RegChan.Depth())

	// WHEN the desk forwards patient 1 and frees the seat
	rec, ok := k.RegChan.TryReceive(KeyNormal)
	require.True(t, ok)
	k.ReleaseSeats(rec.SeatsHeld)

	// THEN the second patient enters and enqueues in turn
	require.True(t, second.Join(k.Clock, testJoinTimeout))
	rec2, ok := k.RegChan.TryReceive(KeyNormal)
	require.True(t, ok)
	assert.Equal(t, 2, rec2.PatientID)
}

func TestPatient_TwoSeatGroupNeverTakesASplitSeat(t *testing.T) {
	// GIVEN a two-seat room with one seat occupied
	k := newTestKernel(t, nil, func(c *Config) {
		c.NWaitingRoom = 2
		c.KRegistrationThreshold = 1
	})
	occupySeats(t, k, 1)

	// WHEN a guardian pair arrives
	h := k.SpawnPatient(NewPatientProfile(3, 12, false))

	// THEN it must not be admitted on the single free seat
	time.Sleep(20 * time.Millisecond)
	assert.True(t, h.Alive())
	assert.Equal(t, 0, k.RegChan.Depth())

	// WHEN the occupied seat frees
	k.ReleaseSeats(1)

	// THEN the pair enters together
	require.True(t, h.Join(k.Clock, testJoinTimeout))
	assert.Equal(t, 0, k.WaitSem.Value())
	k.State.Lock()
	assert.Equal(t, 2, k.State.InsideWaitingRoom)
	k.State.Unlock()
}

func TestPatient_StopWhileBlockedExitsWithoutEntering(t *testing.T) {
	// GIVEN a full room
	k := newTestKernel(t, nil, func(c *Config) {
		c.NWaitingRoom = 1
		c.KRegistrationThreshold = 1
	})
	occupySeats(t, k, 1)

	h := k.SpawnPatient(NewPatientProfile(5, 40, false))
	time.Sleep(10 * time.Millisecond)

	// WHEN the blocked patient is stopped
	h.Stop()

	// THEN it exits without having arrived
	require.True(t, h.Join(k.Clock, testJoinTimeout))
	k.State.Lock()
	assert.Equal(t, 0, k.State.TotalPatients)
	k.State.Unlock()
	assert.Equal(t, 0, k.RegChan.Depth())
}
