package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roasbeef/actorcore/toolbox"
)

// WheelConfig sizes a Wheel. Resolution is the duration one tick
// represents; Slots is the ring size. A job is stored in slot
// deadline % Slots together with its absolute deadline tick; a job whose
// deadline is more than Slots ticks away is skipped each time the wheel
// cycles past its slot until that tick is reached. This is a single-ring
// hashed timing wheel with no separate per-level arrays.
type WheelConfig struct {
	Resolution time.Duration
	Slots      int
	Backlog    BacklogPolicy
}

// DefaultWheelConfig returns a 10ms-resolution, 512-slot wheel (~5.12s
// single-round span) with the default backlog policy.
func DefaultWheelConfig() WheelConfig {
	return WheelConfig{
		Resolution: 10 * time.Millisecond,
		Slots:      512,
		Backlog:    DefaultBacklogPolicy(),
	}
}

// DriftSample is one recorded (scheduled tick, actual fire tick) pair, used
// by DriftMonitor to detect a wheel runner falling behind its configured
// resolution.
type DriftSample struct {
	ScheduledTick uint64
	ActualTick    uint64
}

// DriftMonitor retains the most recent drift samples and flags when a
// budget (in ticks) is exceeded.
type DriftMonitor struct {
	mu      sync.Mutex
	samples []DriftSample
	cap     int
	budget  uint64
}

// NewDriftMonitor creates a monitor retaining up to capacity samples and
// treating a drift over budget ticks as excessive.
func NewDriftMonitor(capacity int, budget uint64) *DriftMonitor {
	if capacity <= 0 {
		capacity = 64
	}
	return &DriftMonitor{cap: capacity, budget: budget}
}

// Record adds a sample, evicting the oldest if at capacity, and reports
// whether this sample's drift exceeds budget.
func (d *DriftMonitor) Record(sample DriftSample) (exceeded bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.samples) >= d.cap {
		d.samples = d.samples[1:]
	}
	d.samples = append(d.samples, sample)

	drift := sample.ActualTick - sample.ScheduledTick
	return drift > d.budget
}

// DumpFrame is a diagnostics snapshot of the wheel's pending job count and
// current tick, matching the scheduler dump event shape.
type DumpFrame struct {
	CurrentTick uint64
	PendingJobs int
}

// WarningKind distinguishes SchedulerWarning conditions. A Wheel publishes
// only WarningBacklogExceeded: it records no samples into its DriftMonitor,
// so it never publishes WarningDriftExceeded.
type WarningKind int

const (
	WarningBacklogExceeded WarningKind = iota
	WarningDriftExceeded
)

// Warning is delivered to a Wheel's configured Sink when a fixed-rate job's
// coalesced backlog exceeds the configured BacklogLimit.
type Warning struct {
	Kind WarningKind
	Tick uint64
}

// Sink receives scheduler warnings. actor.eventStreamSink-style adapters
// implement this to forward onto an eventstream.Stream without this
// package importing eventstream.
type Sink interface {
	Publish(event any)
}

// Wheel is a hashed timing wheel scheduler. It is driven either manually
// (Advance, for tests and bare-metal targets) or by a toolbox.TickSource
// (Run, for hosted targets); exactly one of the two drives a given Wheel
// instance.
type Wheel struct {
	cfg   WheelConfig
	clock toolbox.Clock

	mu          sync.Mutex
	slots       [][]*job
	currentSlot int
	currentTick uint64
	byID        map[uint64]*job

	drift *DriftMonitor
	sink  Sink
}

// NewWheel creates a Wheel with the given configuration. sink, if non-nil,
// receives Warning notifications.
func NewWheel(cfg WheelConfig, clock toolbox.Clock, sink Sink) *Wheel {
	if cfg.Slots <= 0 {
		cfg = DefaultWheelConfig()
	}
	return &Wheel{
		cfg:   cfg,
		clock: clock,
		slots: make([][]*job, cfg.Slots),
		byID:  make(map[uint64]*job),
		drift: NewDriftMonitor(64, 5),
		sink:  sink,
	}
}

func (w *Wheel) scheduleLocked(delayTicks uint64, mode JobMode, periodTicks uint64, cmd Command) Handle {
	id := allocJobID()
	j := &job{
		id:           id,
		cancelled:    new(atomic.Bool),
		cmd:          cmd,
		mode:         mode,
		deadlineTick: w.currentTick + delayTicks,
		periodTicks:  periodTicks,
	}

	slot := int((w.currentTick + delayTicks) % uint64(len(w.slots)))
	j.slot = slot
	w.slots[slot] = append(w.slots[slot], j)
	w.byID[id] = j

	return j.handle()
}

// ScheduleOnce arms cmd to run once after delay.
func (w *Wheel) ScheduleOnce(delay time.Duration, cmd Command) (Handle, error) {
	ticks, err := w.toTicks(delay)
	if err != nil {
		return Handle{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scheduleLocked(ticks, ModeOnce, 0, cmd), nil
}

// ScheduleFixedRate arms cmd to run every period, recomputing each
// deadline from the previous *scheduled* deadline so a slow consumer
// catches up (and coalesces) rather than drifting later over time.
func (w *Wheel) ScheduleFixedRate(initial, period time.Duration, cmd Command) (Handle, error) {
	initTicks, err := w.toTicks(initial)
	if err != nil {
		return Handle{}, err
	}
	periodTicks, err := w.toTicks(period)
	if err != nil || periodTicks == 0 {
		return Handle{}, ErrInvalidSchedule
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scheduleLocked(initTicks, ModeFixedRate, periodTicks, cmd), nil
}

// ScheduleFixedDelay arms cmd to run repeatedly, recomputing each deadline
// from the tick it actually fired on, so a slow consumer simply pushes
// later firings back rather than coalescing a backlog.
func (w *Wheel) ScheduleFixedDelay(initial, delay time.Duration, cmd Command) (Handle, error) {
	initTicks, err := w.toTicks(initial)
	if err != nil {
		return Handle{}, err
	}
	delayTicks, err := w.toTicks(delay)
	if err != nil || delayTicks == 0 {
		return Handle{}, ErrInvalidSchedule
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scheduleLocked(initTicks, ModeFixedDelay, delayTicks, cmd), nil
}

func (w *Wheel) toTicks(d time.Duration) (uint64, error) {
	if d <= 0 {
		return 0, ErrInvalidSchedule
	}
	ticks := uint64(d / w.cfg.Resolution)
	if ticks == 0 {
		ticks = 1
	}
	return ticks, nil
}

// Advance moves the wheel forward by n ticks, firing any job whose deadline
// falls within the advanced range. A single Advance spanning multiple
// periods of the same fixed-rate job coalesces those firings into one
// Command.Run call carrying the accumulated FireInfo, capped by the
// configured BacklogPolicy. Fixed-delay jobs are not coalesced: each of
// their firings is a separate Command.Run call.
func (w *Wheel) Advance(n uint64) {
	w.mu.Lock()

	type pending struct {
		j    *job
		info FireInfo
	}
	var toFire []pending
	end := w.currentTick + n

	for i := uint64(0); i < n; i++ {
		w.currentTick++
		w.currentSlot = int(w.currentTick % uint64(len(w.slots)))

		bucket := w.slots[w.currentSlot]
		kept := bucket[:0]
		for _, j := range bucket {
			if j.cancelled.Load() {
				delete(w.byID, j.id)
				continue
			}
			if j.deadlineTick > w.currentTick {
				kept = append(kept, j)
				continue
			}

			runs := 1
			for j.periodTicks > 0 {
				next := j.nextDeadline(w.currentTick)
				if next > end || j.mode == ModeFixedDelay {
					j.deadlineTick = next
					break
				}
				runs++
				j.deadlineTick = next
			}

			limit := w.cfg.Backlog.BacklogLimit
			if limit <= 0 {
				limit = DefaultBacklogPolicy().BacklogLimit
			}
			capped := runs
			exceeded := false
			if capped > limit {
				capped = limit
				exceeded = true
			}
			if exceeded && w.sink != nil {
				w.sink.Publish(Warning{Kind: WarningBacklogExceeded, Tick: w.currentTick})
			}

			toFire = append(toFire, pending{j: j, info: FireInfo{
				Runs:       capped,
				MissedRuns: capped - 1,
				Mode:       j.mode,
			}})

			if j.periodTicks > 0 {
				newSlot := int(j.deadlineTick % uint64(len(w.slots)))
				j.slot = newSlot
				if newSlot == w.currentSlot {
					kept = append(kept, j)
				} else {
					w.slots[newSlot] = append(w.slots[newSlot], j)
				}
			} else {
				delete(w.byID, j.id)
			}
		}
		w.slots[w.currentSlot] = kept
	}

	w.mu.Unlock()

	for _, p := range toFire {
		p.j.cmd.Run(p.info)
	}
}

// Run drives the wheel from a toolbox.TickSource until ctx is cancelled or
// the source is closed.
func (w *Wheel) Run(ctx context.Context, source toolbox.TickSource) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-source.Ticks():
			if !ok {
				return
			}
			w.Advance(uint64(evt.Count))
		}
	}
}

// Dump returns a diagnostics snapshot of the wheel's current state.
func (w *Wheel) Dump() DumpFrame {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending := 0
	for _, bucket := range w.slots {
		pending += len(bucket)
	}
	return DumpFrame{CurrentTick: w.currentTick, PendingJobs: pending}
}
