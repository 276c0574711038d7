// Kernel: the resource bundle every actor runs against. Owns the
// keyed channels, the waiting-room semaphore, the shared-state region
// and the actor registry, plus the send/retry and seat-release
// disciplines shared by all actors.

package sim

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/atomic"
)

// sendRetryInterval is the fixed backoff between non-blocking send
// attempts on a saturated channel.
const sendRetryInterval = time.Millisecond

// Kernel bundles the run's shared resources.
type Kernel struct {
	Cfg   Config
	Clock clock.Clock

	State    *State
	WaitSem  *Semaphore
	RegChan  *Chan[Record]
	TriChan  *Chan[Record]
	SpecChan [SpecialistCount]*Chan[Record]
	LogChan  *Chan[LogRecord]

	Registry *Registry
	RNG      *PartitionedRNG

	// DroppedLogs counts log records discarded on LogChan saturation.
	DroppedLogs *atomic.Int64

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// Bootstrap validates cfg and creates every run resource. The caller
// owns the returned kernel and must Destroy it. Re-running Bootstrap
// is always safe: resources are per-kernel, so there is no stale
// identity to reclaim.
func Bootstrap(cfg Config, clk clock.Clock) (*Kernel, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}

	k := &Kernel{
		Cfg:         cfg,
		Clock:       clk,
		State:       &State{},
		WaitSem:     NewSemaphore(cfg.NWaitingRoom),
		RegChan:     NewChan[Record](cfg.ChannelCapacityRecords),
		TriChan:     NewChan[Record](cfg.ChannelCapacityRecords),
		LogChan:     NewChan[LogRecord](cfg.ChannelCapacityRecords),
		Registry:    NewRegistry(),
		RNG:         NewPartitionedRNG(NewSimulationKey(cfg.RandomSeed)),
		DroppedLogs: atomic.NewInt64(0),
	}
	for i := range k.SpecChan {
		k.SpecChan[i] = NewChan[Record](cfg.ChannelCapacityRecords)
	}
	k.baseCtx, k.baseCancel = context.WithCancel(context.Background())

	st := k.State
	st.WaitingRoomCapacity = cfg.NWaitingRoom
	st.SimStart = clk.Now()
	st.TimeScaleMsPerSimMinute = cfg.TimeScaleMsPerSimMinute
	st.SimulationDurationMinutes = cfg.SimulationDurationMinutes
	st.RegistrationServiceMs = cfg.RegistrationServiceMs
	st.TriageServiceMs = cfg.TriageServiceMs
	st.SpecialistExamMinMs = cfg.SpecialistExamMinMs
	st.SpecialistExamMaxMs = cfg.SpecialistExamMaxMs
	st.SpecialistLeaveMinMs = cfg.SpecialistLeaveMinMs
	st.SpecialistLeaveMaxMs = cfg.SpecialistLeaveMaxMs

	return k, nil
}

// Destroy dismantles every kernel resource: all channels and the
// waiting-room semaphore. Blocked receivers and acquirers wake with
// destroyed errors. Idempotent.
func (k *Kernel) Destroy() {
	k.baseCancel()
	k.RegChan.Destroy()
	k.TriChan.Destroy()
	for _, c := range k.SpecChan {
		c.Destroy()
	}
	k.LogChan.Destroy()
	k.WaitSem.Destroy()
}

// BaseContext is the run-wide parent of every actor context.
func (k *Kernel) BaseContext() context.Context { return k.baseCtx }

// SimMinutes converts wall clock elapsed since SimStart into
// simulated minutes using the configured time scale.
func (k *Kernel) SimMinutes() int {
	delta := k.Clock.Now().Sub(k.State.SimStart)
	if delta < 0 {
		return 0
	}
	return int(delta.Milliseconds() / int64(k.Cfg.TimeScaleMsPerSimMinute))
}

// RealMinutes is wall-clock minutes since SimStart; the duration stop
// condition is defined on it.
func (k *Kernel) RealMinutes() int {
	delta := k.Clock.Now().Sub(k.State.SimStart)
	if delta < 0 {
		return 0
	}
	return int(delta / time.Minute)
}

// ScaleMs stretches a service-time calibrated at the default scale to
// the configured one. Positive inputs never collapse below 1ms.
func (k *Kernel) ScaleMs(baseMs int) time.Duration {
	if baseMs <= 0 {
		return 0
	}
	scaled := int64(baseMs) * int64(k.Cfg.TimeScaleMsPerSimMinute) / defaultTimeScaleMs
	if scaled < 1 {
		scaled = 1
	}
	return time.Duration(scaled) * time.Millisecond
}

// Sleep blocks for d on the kernel clock, returning early with
// ctx.Err() on cancelation. A non-positive d returns immediately.
func (k *Kernel) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := k.Clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SendWithRetry delivers rec with the sender discipline: non-blocking
// send, fixed 1ms backoff on saturation, retry until delivered, the
// channel is destroyed, or ctx is canceled. The two failure modes are
// permanent and surface as the returned error.
func (k *Kernel) SendWithRetry(ctx context.Context, ch *Chan[Record], rec Record) error {
	op := func() error {
		err := ch.TrySend(rec)
		if errors.Is(err, ErrChanFull) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	bo := backoff.WithContext(backoff.NewConstantBackOff(sendRetryInterval), ctx)
	return backoff.Retry(op, bo)
}

// ReleaseSeats frees n waiting-room seats: decrements the occupancy
// counter under the state lock (floored at zero) and posts the
// semaphore n times.
func (k *Kernel) ReleaseSeats(n int) {
	if n <= 0 {
		return
	}
	k.State.Lock()
	if k.State.InsideWaitingRoom >= n {
		k.State.InsideWaitingRoom -= n
	} else {
		k.State.InsideWaitingRoom = 0
	}
	k.State.Unlock()
	k.WaitSem.Release(n)
}

// Metrics snapshots the observable load indicators for a log line.
func (k *Kernel) Metrics() MetricsSnapshot {
	specTotal := 0
	for _, c := range k.SpecChan {
		specTotal += c.Depth()
	}
	k.State.Lock()
	inside := k.State.InsideWaitingRoom
	capacity := k.State.WaitingRoomCapacity
	k.State.Unlock()
	return MetricsSnapshot{
		Inside:    inside,
		Capacity:  capacity,
		RegQ:      k.RegChan.Depth(),
		TriageQ:   k.TriChan.Depth(),
		SpecQ:     specTotal,
		WaitSem:   k.WaitSem.Value(),
		StateLock: k.State.lockValue(),
	}
}

// EmitLog sends a log record for actor h. Saturation drops the record
// rather than stalling the simulation; drops are counted.
func (k *Kernel) EmitLog(h *Handle, text string) {
	m := k.Metrics()
	rec := LogRecord{
		SimMinutes: k.SimMinutes(),
		ActorID:    h.ID,
		Role:       h.Role,
		Metrics:    &m,
		Text:       text,
	}
	if err := k.LogChan.TrySend(rec); err != nil {
		k.DroppedLogs.Inc()
	}
}

// EmitSentinel posts the logger termination record. Unlike EmitLog it
// retries on saturation: the sentinel must arrive.
func (k *Kernel) EmitSentinel(ctx context.Context, from *Handle) error {
	rec := LogRecord{
		SimMinutes: k.SimMinutes(),
		ActorID:    from.ID,
		Role:       from.Role,
		Text:       logSentinel,
	}
	op := func() error {
		err := k.LogChan.TrySend(rec)
		if errors.Is(err, ErrChanFull) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	bo := backoff.WithContext(backoff.NewConstantBackOff(sendRetryInterval), ctx)
	return backoff.Retry(op, bo)
}
