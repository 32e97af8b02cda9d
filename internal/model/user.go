package model

import "time"

// User is a Telegram account the bot has talked to. Unmuted users receive
// reminders and scheduled reports in their private chat.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	Muted      bool `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName prefers the first name, then the username.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return ""
	}
}
