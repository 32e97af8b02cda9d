// Package pomodoro implements a work/break countdown driven by a one second tick.
package pomodoro

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"dailyflow/internal/clock"
)

type State string

const (
	StateStopped State = "STOPPED"
	StateWork    State = "WORK"
	StateBreak   State = "BREAK"
)

const (
	DefaultWorkMinutes  = 25
	DefaultBreakMinutes = 5
	MaxWorkMinutes      = 120
	MaxBreakMinutes     = 60

	tickPeriod = time.Second
)

type (
	TickFunc     func(remaining int)
	CompleteFunc func(finished State)
)

// Timer is safe for concurrent use. Observers run outside the timer's lock
// and may call back into it.
type Timer struct {
	clock clock.Clock

	mu           sync.Mutex
	state        State
	remaining    int
	paused       bool
	workMinutes  int
	breakMinutes int
	session      string

	ticker clock.Timer
	// gen invalidates ticks of a tick source that was replaced or stopped.
	gen int

	nextObserver int
	onTick       []observer[TickFunc]
	onComplete   []observer[CompleteFunc]
}

type observer[F any] struct {
	id int
	fn F
}

func New(c clock.Clock) *Timer {
	return &Timer{
		clock:        c,
		state:        StateStopped,
		workMinutes:  DefaultWorkMinutes,
		breakMinutes: DefaultBreakMinutes,
	}
}

// OnTick registers f to run after every counted second. The returned func unregisters it.
func (t *Timer) OnTick(f TickFunc) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextObserver++
	id := t.nextObserver
	t.onTick = append(t.onTick, observer[TickFunc]{id: id, fn: f})
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.onTick = without(t.onTick, id)
	}
}

// OnComplete registers f to run when an interval counts down to zero.
func (t *Timer) OnComplete(f CompleteFunc) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextObserver++
	id := t.nextObserver
	t.onComplete = append(t.onComplete, observer[CompleteFunc]{id: id, fn: f})
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.onComplete = without(t.onComplete, id)
	}
}

func (t *Timer) StartWork() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startLocked(StateWork, t.workMinutes)
}

func (t *Timer) StartBreak() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startLocked(StateBreak, t.breakMinutes)
}

func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateStopped {
		t.paused = true
	}
}

func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = false
}

// Stop abandons the current interval without completing it.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTickerLocked()
	t.state = StateStopped
	t.remaining = 0
	t.paused = false
}

// SetWorkDuration takes effect on the next StartWork. Minutes are clamped to 1..120.
func (t *Timer) SetWorkDuration(minutes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.workMinutes = clamp(minutes, 1, MaxWorkMinutes)
}

// SetBreakDuration takes effect on the next StartBreak. Minutes are clamped to 1..60.
func (t *Timer) SetBreakDuration(minutes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.breakMinutes = clamp(minutes, 1, MaxBreakMinutes)
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Remaining is the number of seconds left in the current interval.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Timer) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Session identifies the interval most recently started, for log correlation.
func (t *Timer) Session() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

func (t *Timer) WorkMinutes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.workMinutes
}

func (t *Timer) BreakMinutes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.breakMinutes
}

// Formatted renders the remaining time as MM:SS.
func (t *Timer) Formatted() string {
	return FormatSeconds(t.Remaining())
}

func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func (t *Timer) startLocked(state State, minutes int) {
	t.stopTickerLocked()
	t.state = state
	t.remaining = minutes * 60
	t.paused = false
	t.session = uuid.NewString()

	gen := t.gen
	t.ticker = t.clock.Every(tickPeriod, func() { t.tick(gen) })
}

func (t *Timer) stopTickerLocked() {
	t.gen++
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
}

func (t *Timer) tick(gen int) {
	t.mu.Lock()
	if gen != t.gen || t.state == StateStopped || t.paused {
		t.mu.Unlock()
		return
	}

	t.remaining--
	remaining := t.remaining
	ticks := funcs(t.onTick)

	var finished State
	var completes []CompleteFunc
	if t.remaining <= 0 {
		finished = t.state
		t.stopTickerLocked()
		t.state = StateStopped
		t.remaining = 0
		completes = funcs(t.onComplete)
	}
	t.mu.Unlock()

	for _, f := range ticks {
		f(remaining)
	}
	for _, f := range completes {
		f(finished)
	}
}

func funcs[F any](obs []observer[F]) []F {
	out := make([]F, len(obs))
	for i, o := range obs {
		out[i] = o.fn
	}
	return out
}

func without[F any](obs []observer[F], id int) []observer[F] {
	out := obs[:0:0]
	for _, o := range obs {
		if o.id != id {
			out = append(out, o)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
