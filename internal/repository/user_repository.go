package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dailyflow/internal/model"
)

// UserRepository keeps the Telegram users that reminders and reports go to.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram finds or creates a user based on TelegramID and refreshes the profile.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"username":   username,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		user.FirstName, user.LastName, user.Username = firstName, lastName, username
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{
			TelegramID: telegramID,
			FirstName:  firstName,
			LastName:   lastName,
			Username:   username,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

// ChatIDs returns the private chat of every unmuted user; for private chats
// the chat id equals the user id.
func (r *UserRepository) ChatIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("muted = ?", false).
		Order("id").
		Pluck("telegram_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

// SetMuted turns broadcast notifications off or on for a user.
func (r *UserRepository) SetMuted(ctx context.Context, telegramID int64, muted bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("telegram_id = ?", telegramID).
		Update("muted", muted)
	if res.Error != nil {
		return fmt.Errorf("update user %d: %w", telegramID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", telegramID, ErrNotFound)
	}
	return nil
}
