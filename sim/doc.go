// Package sim is the simulation kernel of sorsim: an emergency
// department modeled as cooperating actors that move synthetic
// patients through entrance → waiting room → registration → triage →
// specialist → disposition.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - record.go: event records and the priority-key scheme (VIP and severity routing)
//   - kernel.go: the shared resource bundle and the send/retry and seat-release disciplines
//   - director.go: actor lifecycle, second-desk provisioning, monitoring, shutdown
//
// # Architecture
//
// Every actor is a goroutine with private state, owning one serial
// control loop. Actors communicate only through the keyed channels
// (Chan), the waiting-room semaphore (Semaphore) and the shared-state
// region (State) guarded by the state lock. The director spawns the
// roles (logger.go, registration.go, triage.go, specialist.go,
// factory.go, patient.go), signals them by identity through the
// Registry, and is the only actor that reacts to external signals.
//
// The waiting-room contract is the subtle part: a patient acquires
// one seat per person, and the actor whose decision removes the
// patient from the waiting room — and only that actor — releases
// them. Records carry the outstanding count in SeatsHeld so the
// release happens exactly once even across drop paths.
//
// sim/viz renders log files produced by the logger actor; it never
// touches the kernel.
package sim
