package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dailyflow/internal/model"
)

// StreakRepository persists the single streak row.
type StreakRepository struct {
	db *gorm.DB
}

func NewStreakRepository(db *gorm.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// Get returns the stored streak, or an empty one before the first completion.
func (r *StreakRepository) Get(ctx context.Context) (model.Streak, error) {
	var streak model.Streak
	err := r.db.WithContext(ctx).First(&streak, model.StreakID).Error
	switch {
	case err == nil:
		return streak, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.Streak{ID: model.StreakID}, nil
	default:
		return model.Streak{}, fmt.Errorf("load streak: %w", err)
	}
}

func (r *StreakRepository) Save(ctx context.Context, streak model.Streak) error {
	streak.ID = model.StreakID
	if err := r.db.WithContext(ctx).Save(&streak).Error; err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}
