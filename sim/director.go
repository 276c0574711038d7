// Director: owns every run resource, spawns and tracks the actors,
// runs the second-desk provisioning loop, the temporary-leave
// stimulus and the capacity monitor, and orchestrates the coordinated
// shutdown.

package sim

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

const (
	provisionInterval = 100 * time.Millisecond
	stimulusInterval  = time.Second
	monitorInterval   = 5 * time.Second

	// joinTimeout bounds every per-actor wait during shutdown and
	// second-desk closing.
	joinTimeout = 5 * time.Second

	// leaveChancePercent is the per-second probability of sending one
	// random specialist on temporary leave.
	leaveChancePercent = 5
)

// Director drives a simulation run.
type Director struct {
	k    *Kernel
	self *Handle
	rng  *rand.Rand

	// signals delivers the external interrupt (stop) and evacuation
	// stimuli; the caller owns the subscription.
	signals <-chan os.Signal

	logger      *Handle
	reg1        *Handle
	reg2        *Handle
	triage      *Handle
	factory     *Handle
	specialists [SpecialistCount]*Handle

	logPath     string
	summaryPath string
}

// NewDirector creates a director over a bootstrapped kernel. signals
// may be nil for runs stopped only by the configured duration.
func NewDirector(k *Kernel, signals <-chan os.Signal) *Director {
	d := &Director{
		k:       k,
		rng:     k.RNG.ForSubsystem(SubsystemDirector),
		signals: signals,
	}
	d.logPath = k.Cfg.LogPath
	if d.logPath == "" {
		d.logPath = fmt.Sprintf("sor_run_%d.log", k.Clock.Now().Unix())
	}
	d.summaryPath = k.Cfg.SummaryPath
	if d.summaryPath == "" {
		d.summaryPath = fmt.Sprintf("sor_summary_%d.txt", k.Clock.Now().Unix())
	}
	return d
}

// LogPath returns the resolved log file path.
func (d *Director) LogPath() string { return d.logPath }

// SummaryPath returns the resolved summary file path.
func (d *Director) SummaryPath() string { return d.summaryPath }

// RunSimulation bootstraps a kernel, runs the director until a stop
// condition, and dismantles everything. Returns a process exit code.
func RunSimulation(cfg Config, signals <-chan os.Signal) int {
	k, err := Bootstrap(cfg, clock.New())
	if err != nil {
		logrus.Errorf("bootstrap failed: %v", err)
		return 1
	}
	d := NewDirector(k, signals)
	if err := d.Run(); err != nil {
		logrus.Errorf("simulation failed: %v", err)
		k.Destroy()
		return 1
	}
	return 0
}

// Run executes the full lifecycle: spawn, steer, shut down, reclaim.
func (d *Director) Run() error {
	k := d.k

	logFile, err := OpenLogFile(d.logPath)
	if err != nil {
		k.Destroy()
		return err
	}

	d.self, _ = k.Registry.NewHandle(k.BaseContext(), RoleDirector)
	defer d.self.finish()
	k.State.Lock()
	k.State.DirectorID = d.self.ID
	k.State.Unlock()

	// Logger first so every later line is captured.
	d.logger = k.SpawnLogger(logFile)

	k.EmitLog(d.self, fmt.Sprintf("Director: resources initialized, logger spawned: %s", d.logPath))
	k.EmitLog(d.self, fmt.Sprintf(
		"Simulation config N=%d K=%d simMinutes=%d msPerMinute=%d seed=%d reconcile=%t",
		k.Cfg.NWaitingRoom, k.Cfg.KRegistrationThreshold, k.Cfg.SimulationDurationMinutes,
		k.Cfg.TimeScaleMsPerSimMinute, k.Cfg.RandomSeed, k.Cfg.ReconcileWaitSem))

	d.spawnWorkers()

	reason := d.steer()

	d.shutdown(reason)
	return nil
}

// spawnWorkers starts the pipeline actors and records their
// identities in shared state.
func (d *Director) spawnWorkers() {
	k := d.k

	d.reg1 = k.SpawnRegistration(false)
	k.State.Lock()
	k.State.Reg1ID = d.reg1.ID
	k.State.Unlock()
	k.EmitLog(d.self, "Registration1 spawned")

	d.triage = k.SpawnTriage()
	k.State.Lock()
	k.State.TriageID = d.triage.ID
	k.State.Unlock()
	k.EmitLog(d.self, "Triage spawned")

	d.factory = k.SpawnFactory()
	k.EmitLog(d.self, "Patient factory spawned")

	for i := 0; i < SpecialistCount; i++ {
		h := k.SpawnSpecialist(SpecialistType(i))
		d.specialists[i] = h
		k.State.Lock()
		k.State.SpecialistIDs[i] = h.ID
		k.State.Unlock()
		k.EmitLog(d.self, fmt.Sprintf("Specialist spawned type %d", i))
	}
}

// steer runs the control loops until a stop condition fires and
// returns the human-readable reason.
func (d *Director) steer() string {
	k := d.k
	ticker := k.Clock.Ticker(provisionInterval)
	defer ticker.Stop()

	var sinceStimulus, sinceMonitor time.Duration
	for {
		select {
		case sig := <-d.signals:
			if sig == syscall.SIGTERM {
				return "evacuation signal"
			}
			return "interrupt signal"
		case <-ticker.C:
			if dur := k.Cfg.SimulationDurationMinutes; dur > 0 && k.RealMinutes() >= dur {
				return "duration reached"
			}
			d.provisionTick()
			sinceStimulus += provisionInterval
			if sinceStimulus >= stimulusInterval {
				sinceStimulus = 0
				d.leaveStimulusTick()
			}
			sinceMonitor += provisionInterval
			if sinceMonitor >= monitorInterval {
				sinceMonitor = 0
				d.monitorTick()
			}
		}
	}
}

// provisionTick opens or closes the second registration desk against
// registration-queue pressure. The channel depth is authoritative;
// the shared counter only widens the estimate when the two disagree.
func (d *Director) provisionTick() {
	k := d.k

	k.State.Lock()
	advisory := k.State.RegistrationQueueLen
	active := k.State.Reg2Active
	k.State.Unlock()

	regLen := k.RegChan.Depth()
	if advisory > regLen {
		regLen = advisory
	}

	openAt := k.Cfg.KRegistrationThreshold
	closeBelow := k.Cfg.NWaitingRoom / 3

	switch {
	case !active && regLen >= openAt:
		h := k.SpawnRegistration(true)
		d.reg2 = h
		k.State.Lock()
		k.State.Reg2Active = true
		k.State.Reg2ID = h.ID
		k.State.Reg2History = append(k.State.Reg2History, h.ID)
		k.State.Unlock()
		k.EmitLog(d.self, fmt.Sprintf("Registration2 spawned (regQ=%d threshold=%d)", regLen, openAt))

	case active && regLen < closeBelow:
		k.EmitLog(d.self, fmt.Sprintf("Registration2 closing (regQ=%d)", regLen))
		if d.reg2 != nil {
			d.reg2.Stop()
			if !d.reg2.Join(k.Clock, joinTimeout) {
				k.EmitLog(d.self, "Force abandoned registration2")
			}
			d.reg2 = nil
		}
		k.State.Lock()
		k.State.Reg2Active = false
		k.State.Reg2ID = 0
		k.State.Unlock()
	}
}

// leaveStimulusTick occasionally sends one random specialist on a
// temporary leave.
func (d *Director) leaveStimulusTick() {
	if uniformInt(d.rng, 0, 99) >= leaveChancePercent {
		return
	}
	i := uniformInt(d.rng, 0, SpecialistCount-1)
	d.specialists[i].RequestLeave()
	d.k.EmitLog(d.self, fmt.Sprintf("Director sent temporary-leave to specialist type %d actor=%d",
		i, d.specialists[i].ID))
}

// monitorTick logs the liveness/load line and checks the seat
// invariant: free seats plus occupants must equal capacity. Drift is
// logged, and forcibly repaired only when the reconcile guardrail is
// enabled.
func (d *Director) monitorTick() {
	k := d.k
	m := k.Metrics()

	reg2Alive := d.reg2 != nil && d.reg2.Alive()
	k.EmitLog(d.self, fmt.Sprintf(
		"MON wSem=%d rQ=%d tQ=%d inside=%d reg1Alive=%t reg2Alive=%t triageAlive=%t",
		m.WaitSem, m.RegQ, m.TriageQ, m.Inside,
		d.reg1.Alive(), reg2Alive, d.triage.Alive()))

	expectedFree := k.Cfg.NWaitingRoom - m.Inside
	missing := expectedFree - m.WaitSem
	if missing <= 0 {
		return
	}
	if k.Cfg.ReconcileWaitSem {
		k.WaitSem.Reset(expectedFree)
		k.EmitLog(d.self, fmt.Sprintf(
			"ERROR MON RECONCILE wSem reset to %d (was %d, inside=%d, missing=%d)",
			expectedFree, m.WaitSem, m.Inside, missing))
	} else {
		k.EmitLog(d.self, fmt.Sprintf(
			"MON waitSem drift detected missing=%d expectedFree=%d wSem=%d",
			missing, expectedFree, m.WaitSem))
	}
}

// shutdown stops every actor, writes the summary, terminates the
// logger via the sentinel and reclaims all resources.
func (d *Director) shutdown(reason string) {
	k := d.k
	k.EmitLog(d.self, fmt.Sprintf("Director initiating shutdown (%s)", reason))

	workers := []*Handle{d.reg1, d.reg2, d.triage}
	for _, h := range d.specialists {
		workers = append(workers, h)
	}
	workers = append(workers, d.factory)

	for _, h := range workers {
		if h != nil {
			h.Stop()
		}
	}
	for _, h := range workers {
		if h == nil {
			continue
		}
		if !h.Join(k.Clock, joinTimeout) {
			k.EmitLog(d.self, fmt.Sprintf("Force abandoned %s actor=%d", h.Role.Label(), h.ID))
		}
	}

	if dropped := k.DroppedLogs.Load(); dropped > 0 {
		k.EmitLog(d.self, fmt.Sprintf("Log records dropped on saturation: %d", dropped))
	}

	// Best effort: a failing summary must not block reclamation.
	if err := WriteSummary(d.summaryPath, BuildSummary(k)); err != nil {
		logrus.Warnf("summary write failed: %v", err)
	}

	sentCtx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()
	if err := k.EmitSentinel(sentCtx, d.self); err != nil {
		logrus.Warnf("log sentinel not delivered: %v", err)
	}
	if !d.logger.Join(k.Clock, joinTimeout) {
		logrus.Warnf("logger did not drain in time")
	}

	k.Destroy()
}
