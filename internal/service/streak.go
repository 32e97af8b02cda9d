package service

import (
	"context"
	"fmt"
	"sync"

	"dailyflow/internal/clock"
	"dailyflow/internal/model"
	"dailyflow/pkg/datemath"
)

// AdvanceStreak applies one completion on today to the record. It reports
// false when the record is unchanged: a second completion on the same day, or
// a today earlier than the last completion.
func AdvanceStreak(s model.Streak, today datemath.Date) (model.Streak, bool) {
	if !s.LastCompletionDate.Valid {
		s.CurrentStreak = 1
	} else {
		gap := datemath.DaysBetween(s.LastCompletionDate.Date, today)
		switch {
		case gap < 0, gap == 0:
			return s, false
		case gap == 1:
			s.CurrentStreak++
		default:
			s.CurrentStreak = 1
		}
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastCompletionDate = datemath.Some(today)
	return s, true
}

// StreakAsOf is the streak as it should be shown on today: a run that missed
// a whole day reads as zero even though the stored record still holds it.
func StreakAsOf(s model.Streak, today datemath.Date) model.Streak {
	if s.LastCompletionDate.Valid && datemath.DaysBetween(s.LastCompletionDate.Date, today) > 1 {
		s.CurrentStreak = 0
	}
	return s
}

func DisplayStreak(s model.Streak) string {
	return fmt.Sprintf("🔥 %d Day Streak", s.CurrentStreak)
}

// StreakTracker keeps the persisted streak in step with task completions.
type StreakTracker struct {
	store StreakStore
	clock clock.Clock

	// mu serializes load-advance-save so two completions cannot both read the old record.
	mu sync.Mutex
}

func NewStreakTracker(store StreakStore, c clock.Clock) *StreakTracker {
	return &StreakTracker{store: store, clock: c}
}

// OnCompleted records a completion happening now.
func (t *StreakTracker) OnCompleted(ctx context.Context) (model.Streak, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.store.Get(ctx)
	if err != nil {
		return model.Streak{}, fmt.Errorf("load streak: %w", err)
	}

	next, changed := AdvanceStreak(current, t.clock.Today())
	if !changed {
		return current, nil
	}
	next.ID = model.StreakID
	if err := t.store.Save(ctx, next); err != nil {
		return current, fmt.Errorf("save streak: %w", err)
	}
	return next, nil
}

// Current returns the stored streak corrected for today.
func (t *StreakTracker) Current(ctx context.Context) (model.Streak, error) {
	s, err := t.store.Get(ctx)
	if err != nil {
		return model.Streak{}, fmt.Errorf("load streak: %w", err)
	}
	return StreakAsOf(s, t.clock.Today()), nil
}
