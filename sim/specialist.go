// Specialist actor: drains its own queue in severity order, examines,
// records the disposition, and frees whatever waiting-room seats the
// patient still holds. Honors the temporary-leave stimulus between
// patients.

package sim

import (
	"context"
	"fmt"
	"math/rand"
)

// Disposition cutoffs over a 0..999 roll.
const (
	outcomeHomeCutoff = 850 // 85.0% discharged home
	outcomeWardCutoff = 995 // next 14.5% admitted to a ward
)

// outcomeFor maps a 0..999 roll to a disposition label.
func outcomeFor(roll int) string {
	switch {
	case roll < outcomeHomeCutoff:
		return "home"
	case roll < outcomeWardCutoff:
		return "ward"
	default:
		return "otherFacility"
	}
}

// runSpecialist is the exam-room body for specialist t.
func runSpecialist(ctx context.Context, k *Kernel, h *Handle, t SpecialistType, rng *rand.Rand) {
	defer h.finish()

	k.EmitLog(h, fmt.Sprintf("Specialist %s started", t))

	for !h.Stopping() {
		if h.LeavePending() {
			leaveMs := uniformInt(rng, k.Cfg.SpecialistLeaveMinMs, k.Cfg.SpecialistLeaveMaxMs)
			if err := k.Sleep(ctx, k.ScaleMs(leaveMs)); err != nil {
				break
			}
			h.clearLeave()
			k.EmitLog(h, fmt.Sprintf("Specialist %s temporary leave finished", t))
		}

		rec, err := k.SpecChan[t].Receive(ctx, SpecialistMaxKey(t))
		if err != nil {
			break
		}

		k.EmitLog(h, fmt.Sprintf("Received patient id=%d color=%s persons=%d",
			rec.PatientID, rec.Color, rec.PersonsCount))

		examMs := uniformInt(rng, k.Cfg.SpecialistExamMinMs, k.Cfg.SpecialistExamMaxMs)
		if err := k.Sleep(ctx, k.ScaleMs(examMs)); err != nil {
			k.ReleaseSeats(rec.SeatsHeld)
			break
		}

		roll := uniformInt(rng, 0, 999)
		st := k.State
		st.Lock()
		switch {
		case roll < outcomeHomeCutoff:
			st.OutcomeHome++
		case roll < outcomeWardCutoff:
			st.OutcomeWard++
		default:
			st.OutcomeOther++
		}
		st.Unlock()

		k.ReleaseSeats(rec.SeatsHeld)

		k.EmitLog(h, fmt.Sprintf("Handled patient id=%d outcome=%s persons=%d color=%s specIdx=%d",
			rec.PatientID, outcomeFor(roll), rec.PersonsCount, rec.Color, t))
	}

	k.EmitLog(h, fmt.Sprintf("Specialist %s shutting down (stop)", t))
}
