// Shared-state region and the actor registry. The region is the only
// memory shared between actors besides the channels and the waiting
// room semaphore; every mutation happens with the state lock held.

package sim

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
)

// ActorID identifies an actor for logging and signal-equivalent
// targeting. Actors are goroutines, so this plays the role process
// ids play in a multi-process deployment.
type ActorID int

// State is the shared-state region. Callers hold the lock (Lock /
// Unlock) around every read-modify-write; the timing and service-time
// fields are immutable after Bootstrap and may be read without it.
type State struct {
	mu sync.Mutex

	InsideWaitingRoom    int
	WaitingRoomCapacity  int
	RegistrationQueueLen int // advisory mirror of RegChan depth
	Reg2Active           bool

	TotalPatients  int
	TriageRed      int
	TriageYellow   int
	TriageGreen    int
	TriageSentHome int

	OutcomeHome  int
	OutcomeWard  int
	OutcomeOther int

	DirectorID    ActorID
	Reg1ID        ActorID
	Reg2ID        ActorID
	TriageID      ActorID
	SpecialistIDs [SpecialistCount]ActorID
	Reg2History   []ActorID

	// Immutable after Bootstrap.
	SimStart                  time.Time
	TimeScaleMsPerSimMinute   int
	SimulationDurationMinutes int
	RegistrationServiceMs     int
	TriageServiceMs           int
	SpecialistExamMinMs       int
	SpecialistExamMaxMs       int
	SpecialistLeaveMinMs      int
	SpecialistLeaveMaxMs      int
}

// Lock acquires the state lock.
func (s *State) Lock() { s.mu.Lock() }

// Unlock releases the state lock.
func (s *State) Unlock() { s.mu.Unlock() }

// lockValue reports the state lock as a semaphore-style value for the
// metrics block: 1 free, 0 held.
func (s *State) lockValue() int {
	if s.mu.TryLock() {
		s.mu.Unlock()
		return 1
	}
	return 0
}

// Handle is the registry's view of a spawned actor: its identity plus
// the two signal-equivalent stimuli (stop, temporary leave).
type Handle struct {
	ID   ActorID
	Role Role

	cancel context.CancelFunc
	stop   *atomic.Bool
	leave  *atomic.Bool
	done   chan struct{}
}

// Stop raises the stop flag and cancels the actor's context, waking
// it from any blocking receive, acquire or sleep.
func (h *Handle) Stop() {
	h.stop.Store(true)
	h.cancel()
}

// Stopping reports whether the stop flag has been raised.
func (h *Handle) Stopping() bool { return h.stop.Load() }

// RequestLeave raises the temporary-leave flag. Only specialists
// honor it.
func (h *Handle) RequestLeave() { h.leave.Store(true) }

// LeavePending reports and does not clear the temporary-leave flag.
func (h *Handle) LeavePending() bool { return h.leave.Load() }

func (h *Handle) clearLeave() { h.leave.Store(false) }

// Done is closed when the actor goroutine exits.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Alive reports whether the actor goroutine is still running.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Join waits for the actor to finish, up to timeout. Returns false if
// the deadline passed first.
func (h *Handle) Join(clk clock.Clock, timeout time.Duration) bool {
	t := clk.Timer(timeout)
	defer t.Stop()
	select {
	case <-h.done:
		return true
	case <-t.C:
		return false
	}
}

// finish marks the actor as exited. Called exactly once, deferred by
// the actor body.
func (h *Handle) finish() { close(h.done) }

// Registry hands out actor identities and keeps the handles the
// director signals through.
type Registry struct {
	mu     sync.Mutex
	nextID ActorID
	byID   map[ActorID]*Handle
}

// NewRegistry creates an empty registry. IDs start at 1.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ActorID]*Handle)}
}

// NewHandle allocates an identity and a per-actor context derived
// from parent.
func (r *Registry) NewHandle(parent context.Context, role Role) (*Handle, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	r.nextID++
	h := &Handle{
		ID:     r.nextID,
		Role:   role,
		cancel: cancel,
		stop:   atomic.NewBool(false),
		leave:  atomic.NewBool(false),
		done:   make(chan struct{}),
	}
	r.byID[h.ID] = h
	r.mu.Unlock()
	return h, ctx
}

// Get returns the handle for id, or nil.
func (r *Registry) Get(id ActorID) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}
