// Package notify delivers user-visible notifications.
package notify

import (
	"context"
	"fmt"
	"html"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	pkgLog "dailyflow/pkg/log"
)

const sendTimeout = 30 * time.Second

// Sender is the part of tgbotapi.BotAPI the Telegram sink needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ChatSource lists the chats that receive notifications.
type ChatSource interface {
	ChatIDs(ctx context.Context) ([]int64, error)
}

// Telegram sends each notification to every known chat, spacing messages
// with a shared rate limiter to stay under the Bot API limits.
type Telegram struct {
	sender  Sender
	chats   ChatSource
	limiter *rate.Limiter
	l       pkgLog.Logger
}

func NewTelegram(sender Sender, chats ChatSource, perSecond float64, burst int, l pkgLog.Logger) *Telegram {
	if burst < 1 {
		burst = 1
	}
	return &Telegram{
		sender:  sender,
		chats:   chats,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		l:       l,
	}
}

func (t *Telegram) Notify(title, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	ids, err := t.chats.ChatIDs(ctx)
	if err != nil {
		t.l.Errorf(ctx, "notify %q: list chats: %v", title, err)
		return
	}
	if len(ids) == 0 {
		t.l.Warnf(ctx, "notify %q: no chats to deliver to", title)
		return
	}

	text := FormatHTML(title, message)
	for _, id := range ids {
		if err := t.limiter.Wait(ctx); err != nil {
			t.l.Warnf(ctx, "notify chat %d: %v", id, err)
			return
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := t.sender.Send(msg); err != nil {
			t.l.Errorf(ctx, "notify chat %d: %v", id, err)
		}
	}
}

func FormatHTML(title, message string) string {
	return fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(title), html.EscapeString(message))
}

// Log writes notifications to the logger; the CLI uses it in place of a chat.
type Log struct {
	l pkgLog.Logger
}

func NewLog(l pkgLog.Logger) *Log {
	return &Log{l: l}
}

func (s *Log) Notify(title, message string) {
	s.l.Infof(context.Background(), "%s: %s", title, message)
}

// Multi fans a notification out to several sinks in order.
type Multi []interface{ Notify(title, message string) }

func (m Multi) Notify(title, message string) {
	for _, s := range m {
		s.Notify(title, message)
	}
}
