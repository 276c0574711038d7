// Spawn helpers: one per actor kind. The director records identities
// in shared state after spawning; the single-role CLI harness and the
// tests use these directly.

package sim

import (
	"os"
)

// SpawnLogger starts the logger actor over an already-opened file.
func (k *Kernel) SpawnLogger(f *os.File) *Handle {
	h, ctx := k.Registry.NewHandle(k.BaseContext(), RoleLogger)
	go runLogger(ctx, k, h, f)
	return h
}

// SpawnRegistration starts a registration desk actor.
func (k *Kernel) SpawnRegistration(second bool) *Handle {
	role := RoleReg1
	if second {
		role = RoleReg2
	}
	h, ctx := k.Registry.NewHandle(k.BaseContext(), role)
	go runRegistration(ctx, k, h)
	return h
}

// SpawnTriage starts the triage actor.
func (k *Kernel) SpawnTriage() *Handle {
	h, ctx := k.Registry.NewHandle(k.BaseContext(), RoleTriage)
	go runTriage(ctx, k, h, k.RNG.ForSubsystem(SubsystemTriage))
	return h
}

// SpawnSpecialist starts the specialist actor for type t.
func (k *Kernel) SpawnSpecialist(t SpecialistType) *Handle {
	h, ctx := k.Registry.NewHandle(k.BaseContext(), RoleSpecialist)
	go runSpecialist(ctx, k, h, t, k.RNG.ForSubsystem(SubsystemSpecialist(t)))
	return h
}

// SpawnFactory starts the patient factory.
func (k *Kernel) SpawnFactory() *Handle {
	h, ctx := k.Registry.NewHandle(k.BaseContext(), RolePatientGen)
	go runFactory(ctx, k, h, k.RNG.ForSubsystem(SubsystemFactory))
	return h
}

// SpawnPatient starts a single patient actor with the given profile.
func (k *Kernel) SpawnPatient(p PatientProfile) *Handle {
	h, ctx := k.Registry.NewHandle(k.BaseContext(), RolePatient)
	go runPatient(ctx, k, h, p)
	return h
}
