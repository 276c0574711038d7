// Patient factory: draws patient profiles and spawns a patient actor
// per admission, pacing itself on the configured inter-arrival range
// and a cap on live children.

package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

const (
	// childSlotRetry is the pause before re-checking the child cap.
	childSlotRetry = 50 * time.Millisecond

	vipPercent = 10 // ~10% of patients arrive as VIPs
	ageMin     = 1
	ageMax     = 90
)

// reapChildren drops finished handles from the tracking list.
func reapChildren(children []*Handle) []*Handle {
	live := children[:0]
	for _, c := range children {
		if c.Alive() {
			live = append(live, c)
		}
	}
	return live
}

// runFactory is the generator body. It never enqueues arrivals
// itself; each spawned patient claims its own seats and announces
// itself to registration.
func runFactory(ctx context.Context, k *Kernel, h *Handle, rng *rand.Rand) {
	defer h.finish()

	k.EmitLog(h, "PatientFactory running")

	var children []*Handle
	nextID := 0
	slotWaitLogged := false

	for !h.Stopping() {
		if d := k.Cfg.SimulationDurationMinutes; d > 0 && k.RealMinutes() >= d {
			k.EmitLog(h, "PatientFactory reached configured duration")
			break
		}

		children = reapChildren(children)
		if len(children) >= k.Cfg.MaxPatientChildren {
			if !slotWaitLogged {
				k.EmitLog(h, fmt.Sprintf("PatientFactory waiting for child slots (count=%d)", len(children)))
				slotWaitLogged = true
			}
			if err := k.Sleep(ctx, childSlotRetry); err != nil {
				break
			}
			continue
		}
		slotWaitLogged = false

		age := uniformInt(rng, ageMin, ageMax)
		isVip := uniformInt(rng, 0, 99) < vipPercent
		nextID++
		profile := NewPatientProfile(nextID, age, isVip)

		ph, pctx := k.Registry.NewHandle(ctx, RolePatient)
		children = append(children, ph)
		go runPatient(pctx, k, ph, profile)

		waitMs := uniformInt(rng, k.Cfg.PatientGenMinMs, k.Cfg.PatientGenMaxMs)
		if err := k.Sleep(ctx, k.ScaleMs(waitMs)); err != nil {
			break
		}
	}

	// Graceful stop: raise stop on every outstanding patient, then
	// join them all.
	for _, c := range children {
		if c.Alive() {
			c.Stop()
		}
	}
	for _, c := range children {
		<-c.done
	}

	k.EmitLog(h, "PatientFactory stopping (stop)")
}
