package clock

import (
	"sync"
	"time"

	"dailyflow/pkg/datemath"
)

// Fake is a manually driven Clock for tests. Timers fire synchronously, on
// the goroutine calling Advance or Set, in deadline order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	seq    int
}

func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Fake) Today() datemath.Date {
	return datemath.FromTime(c.Now())
}

func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	return c.add(d, 0, f)
}

func (c *Fake) Every(period time.Duration, f func()) Timer {
	return c.add(period, period, f)
}

func (c *Fake) add(d, period time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, when: c.now.Add(d), period: period, f: f, seq: c.seq}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that comes due.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.when
		if next.period > 0 {
			next.when = next.when.Add(next.period)
		} else {
			c.removeLocked(next)
		}
		f := next.f
		c.mu.Unlock()

		f()
	}
}

// Set moves the clock to t. Moving backwards fires nothing.
func (c *Fake) Set(t time.Time) {
	c.Advance(t.Sub(c.Now()))
}

// Pending reports how many timers are still armed.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Fake) nextDueLocked(target time.Time) *fakeTimer {
	var next *fakeTimer
	for _, t := range c.timers {
		if t.when.After(target) {
			continue
		}
		if next == nil || t.when.Before(next.when) || (t.when.Equal(next.when) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (c *Fake) removeLocked(target *fakeTimer) bool {
	for i, t := range c.timers {
		if t == target {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

type fakeTimer struct {
	clock  *Fake
	when   time.Time
	period time.Duration
	f      func()
	seq    int
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.removeLocked(t)
}
