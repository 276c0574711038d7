// Registration desk actor. One instance always runs; the director
// opens and closes a second one against registration-queue pressure.

package sim

import (
	"context"
	"fmt"
	"time"
)

// heartbeatInterval is the wall-clock cadence of the desk's load line.
const heartbeatInterval = 5 * time.Second

// runRegistration is the desk body. VIP arrivals preempt normal ones
// via the key bound; forwarding a patient to triage is the decision
// that lets them leave the waiting room, so the desk releases their
// seats on forward — and on drop, so capacity never leaks.
func runRegistration(ctx context.Context, k *Kernel, h *Handle) {
	defer h.finish()

	second := h.Role == RoleReg2
	if second {
		k.EmitLog(h, "Registration2 started")
	} else {
		k.EmitLog(h, "Registration started")
	}

	var lastHeartbeat time.Time

	for !h.Stopping() {
		rec, err := k.RegChan.Receive(ctx, KeyNormal)
		if err != nil {
			// Canceled or destroyed: normal shutdown paths.
			break
		}

		st := k.State
		st.Lock()
		if st.RegistrationQueueLen > 0 {
			st.RegistrationQueueLen--
		}
		st.Unlock()

		k.EmitLog(h, fmt.Sprintf("Registering patient id=%d vip=%d persons=%d",
			rec.PatientID, boolFlag(rec.IsVip), rec.PersonsCount))

		held := rec.SeatsHeld
		if err := k.Sleep(ctx, k.ScaleMs(k.Cfg.RegistrationServiceMs)); err != nil {
			// Stop raised mid-service: don't finish the record, but
			// don't leak its seats either.
			k.ReleaseSeats(held)
			k.EmitLog(h, fmt.Sprintf("Dropped patient id=%d on shutdown; released waiting room seats", rec.PatientID))
			break
		}

		fwd := rec
		fwd.Key = patientKey(rec.IsVip)
		fwd.SeatsHeld = 0
		if err := k.SendWithRetry(ctx, k.TriChan, fwd); err == nil {
			k.ReleaseSeats(held)
			k.EmitLog(h, fmt.Sprintf("Forwarded patient id=%d vip=%d persons=%d",
				rec.PatientID, boolFlag(rec.IsVip), rec.PersonsCount))
		} else {
			// Triage channel gone: free the seats so capacity is not
			// stranded behind a dead pipeline.
			k.ReleaseSeats(held)
			k.EmitLog(h, fmt.Sprintf("Dropped patient id=%d due to triage send failure; released waiting room seats",
				rec.PatientID))
		}

		now := k.Clock.Now()
		if lastHeartbeat.IsZero() || now.Sub(lastHeartbeat) >= heartbeatInterval {
			lastHeartbeat = now
			st.Lock()
			inside := st.InsideWaitingRoom
			st.Unlock()
			k.EmitLog(h, fmt.Sprintf("HEARTBEAT REG qLen=%d waitSem=%d inside=%d regActor=%d",
				k.RegChan.Depth(), k.WaitSem.Value(), inside, h.ID))
		}
	}

	if second {
		k.EmitLog(h, "Registration2 shutting down (stop)")
	} else {
		k.EmitLog(h, "Registration shutting down (stop)")
	}
}
