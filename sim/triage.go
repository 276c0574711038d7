// Triage actor: assigns a severity color, occasionally sends patients
// straight home, and routes everyone else to a specialist queue keyed
// by specialist and severity.

package sim

import (
	"context"
	"fmt"
	"math/rand"
)

// Triage decision cutoffs. Rolls are uniform over [0,100) for the
// send-home and color draws, [0,6) for the specialist.
const (
	sentHomeCutoff = 5  // 5% sent home without a specialist
	redCutoff      = 10 // 10% red
	yellowCutoff   = 45 // next 35% yellow, remainder green
)

// colorFor maps a 0..99 roll to a severity color.
func colorFor(roll int) TriageColor {
	switch {
	case roll < redCutoff:
		return ColorRed
	case roll < yellowCutoff:
		return ColorYellow
	default:
		return ColorGreen
	}
}

// runTriage is the triage body. Sending a patient home is a
// leave-the-waiting-room decision, so triage releases whatever seats
// the record still holds; for routed patients the specialist decides.
func runTriage(ctx context.Context, k *Kernel, h *Handle, rng *rand.Rand) {
	defer h.finish()

	k.EmitLog(h, "Triage started")

	for !h.Stopping() {
		rec, err := k.TriChan.Receive(ctx, KeyNormal)
		if err != nil {
			break
		}

		if err := k.Sleep(ctx, k.ScaleMs(k.Cfg.TriageServiceMs)); err != nil {
			k.ReleaseSeats(rec.SeatsHeld)
			break
		}

		if uniformInt(rng, 0, 99) < sentHomeCutoff {
			st := k.State
			st.Lock()
			st.TriageSentHome++
			st.Unlock()
			k.ReleaseSeats(rec.SeatsHeld)
			k.EmitLog(h, fmt.Sprintf("Patient sent home from triage id=%d", rec.PatientID))
			continue
		}

		color := colorFor(uniformInt(rng, 0, 99))
		st := k.State
		st.Lock()
		switch color {
		case ColorRed:
			st.TriageRed++
		case ColorYellow:
			st.TriageYellow++
		case ColorGreen:
			st.TriageGreen++
		}
		st.Unlock()

		spec := SpecialistType(uniformInt(rng, 0, SpecialistCount-1))

		out := rec
		out.Color = color
		out.Specialist = spec
		out.Key = SpecialistKey(spec, color)
		if err := k.SendWithRetry(ctx, k.SpecChan[spec], out); err != nil {
			k.ReleaseSeats(rec.SeatsHeld)
			k.EmitLog(h, fmt.Sprintf("Dropped patient id=%d due to specialist send failure; released waiting room seats",
				rec.PatientID))
			continue
		}
		k.EmitLog(h, fmt.Sprintf("Forwarded patient id=%d to specialist=%d color=%s",
			rec.PatientID, spec, color))
	}

	k.EmitLog(h, "Triage shutting down (stop)")
}
