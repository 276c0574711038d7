// Patient actor: claims waiting-room seats, announces the arrival to
// registration, and exits. The seats it claimed stay reserved until a
// downstream decider lets the patient leave the waiting room.

package sim

import (
	"context"
	"fmt"
	"sync"
)

// PatientProfile is the identity the factory draws for each patient.
type PatientProfile struct {
	ID           int
	Age          int
	IsVip        bool
	HasGuardian  bool
	PersonsCount int
}

// NewPatientProfile derives the dependent fields from age: minors
// arrive with a guardian, and the guardian occupies a seat too.
func NewPatientProfile(id, age int, isVip bool) PatientProfile {
	hasGuardian := age < 18
	persons := 1
	if hasGuardian {
		persons = 2
	}
	return PatientProfile{
		ID:           id,
		Age:          age,
		IsVip:        isVip,
		HasGuardian:  hasGuardian,
		PersonsCount: persons,
	}
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// runPatient is the patient actor body. Seats acquired here are
// deliberately not released on failure paths past the acquire: the
// decider that removes the patient from the waiting room owns the
// release, never the patient itself.
func runPatient(ctx context.Context, k *Kernel, h *Handle, p PatientProfile) {
	defer h.finish()

	k.EmitLog(h, fmt.Sprintf("Patient waiting to enter waiting room id=%d persons=%d",
		p.ID, p.PersonsCount))

	// Observability-only companion for minors. It never touches the
	// waiting-room semaphore and cannot outlive the patient.
	var childWG sync.WaitGroup
	defer childWG.Wait()
	if p.HasGuardian {
		childCtx, childCancel := context.WithCancel(ctx)
		defer childCancel()
		childWG.Add(1)
		go func() {
			defer childWG.Done()
			k.EmitLog(h, fmt.Sprintf("Child active for patient id=%d", p.ID))
			<-childCtx.Done()
			k.EmitLog(h, fmt.Sprintf("Child exiting for patient id=%d", p.ID))
		}()
	}

	// One seat per person; acquisitions are not atomic across the
	// group, so two groups may interleave on the semaphore.
	for i := 0; i < p.PersonsCount; i++ {
		if err := k.WaitSem.Acquire(ctx); err != nil {
			k.EmitLog(h, fmt.Sprintf("Patient aborted before entering id=%d: %v", p.ID, err))
			return
		}
	}

	st := k.State
	st.Lock()
	st.InsideWaitingRoom += p.PersonsCount
	st.RegistrationQueueLen++
	st.TotalPatients++
	st.Unlock()

	k.EmitLog(h, fmt.Sprintf("Patient arrived id=%d age=%d vip=%d persons=%d guardian=%d",
		p.ID, p.Age, boolFlag(p.IsVip), p.PersonsCount, boolFlag(p.HasGuardian)))

	extra := "solo"
	if p.HasGuardian {
		extra = "guardian"
	}
	rec := Record{
		Key:          patientKey(p.IsVip),
		PatientID:    p.ID,
		Specialist:   SpecialistNone,
		Color:        ColorNone,
		IsVip:        p.IsVip,
		Age:          p.Age,
		PersonsCount: p.PersonsCount,
		SeatsHeld:    p.PersonsCount,
		Extra:        clampExtra(extra),
	}
	if err := k.SendWithRetry(ctx, k.RegChan, rec); err != nil {
		// Channel gone or stop raised mid-send: the seats stay with
		// the waiting room; exit quietly.
		k.EmitLog(h, fmt.Sprintf("Patient enqueue failed id=%d: %v", p.ID, err))
		return
	}

	k.EmitLog(h, fmt.Sprintf("Patient registered id=%d", p.ID))
}
