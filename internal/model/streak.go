package model

import (
	"time"

	"dailyflow/pkg/datemath"
)

// StreakID is the primary key of the single streak row.
const StreakID = 1

// Streak counts consecutive calendar days with at least one completed task.
type Streak struct {
	ID                 uint `gorm:"primaryKey"`
	CurrentStreak      int
	LongestStreak      int
	LastCompletionDate datemath.NullDate `gorm:"type:text"`
	UpdatedAt          time.Time
}
