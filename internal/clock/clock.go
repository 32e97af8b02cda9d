package clock

import (
	"sync"
	"time"

	"dailyflow/pkg/datemath"
)

// Clock is the source of "now" and of timers for everything time-driven.
type Clock interface {
	Now() time.Time
	Today() datemath.Date
	// AfterFunc calls f once, on its own goroutine, after d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
	// Every calls f once per period until the returned Timer is stopped.
	Every(period time.Duration, f func()) Timer
}

// Timer is a handle to a pending AfterFunc or Every registration.
type Timer interface {
	// Stop prevents further calls. It reports whether the call stopped a pending timer.
	Stop() bool
}

// Real is the wall clock in a fixed location.
type Real struct {
	loc *time.Location
}

func NewReal(loc *time.Location) *Real {
	if loc == nil {
		loc = time.Local
	}
	return &Real{loc: loc}
}

func (c *Real) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *Real) Today() datemath.Date {
	return datemath.FromTime(c.Now())
}

func (c *Real) Location() *time.Location {
	return c.loc
}

func (c *Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (c *Real) Every(period time.Duration, f func()) Timer {
	t := &ticker{ticker: time.NewTicker(period), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.ticker.C:
				f()
			case <-t.done:
				return
			}
		}
	}()
	return t
}

type ticker struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
		stopped = true
	})
	return stopped
}
