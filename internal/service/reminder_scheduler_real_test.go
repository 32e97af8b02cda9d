package service_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyflow/internal/clock"
	"dailyflow/internal/service"
	pkgLog "dailyflow/pkg/log"
)

// countingSink tallies messages; it is safe for concurrent Notify calls.
type countingSink struct {
	mu     sync.Mutex
	counts map[string]int
	total  int
}

func (s *countingSink) Notify(_, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[message]++
	s.total++
}

func (s *countingSink) snapshot() (map[string]int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out, s.total
}

func TestSchedulerWithRealTimersUnderConcurrentChurn(t *testing.T) {
	c := clock.NewReal(time.UTC)
	sink := &countingSink{counts: make(map[string]int)}
	s := service.NewReminderScheduler(c, sink, pkgLog.NewNop())
	defer s.Shutdown()

	const tasks = 8
	var wg sync.WaitGroup
	for id := uint(1); id <= tasks; id++ {
		wg.Add(2)
		go func(id uint) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.Schedule(id, "churn", c.Now().Add(time.Duration(1+i%5)*time.Millisecond))
			}
		}(id)
		go func(id uint) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.Cancel(id)
				s.Pending()
			}
		}(id)
	}
	wg.Wait()

	for id := uint(1); id <= tasks; id++ {
		s.Cancel(id)
	}
	assert.Empty(t, s.Pending())

	// Let deliveries that passed their check before the cancels finish.
	time.Sleep(20 * time.Millisecond)
	_, settled := sink.snapshot()
	time.Sleep(30 * time.Millisecond)
	_, after := sink.snapshot()
	assert.Equal(t, settled, after, "cancelled reminders must not fire")

	for id := uint(1); id <= tasks; id++ {
		s.Schedule(id, fmt.Sprintf("final %d", id), c.Now().Add(10*time.Millisecond))
	}
	require.Eventually(t, func() bool {
		_, total := sink.snapshot()
		return total == settled+tasks
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	counts, total := sink.snapshot()
	assert.Equal(t, settled+tasks, total)
	for id := uint(1); id <= tasks; id++ {
		assert.Equal(t, 1, counts[service.ReminderMessage(fmt.Sprintf("final %d", id))], "task %d", id)
	}
	assert.Empty(t, s.Pending())
}
