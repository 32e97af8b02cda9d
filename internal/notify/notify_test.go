package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyflow/internal/notify"
	pkgLog "dailyflow/pkg/log"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	fail map[int64]bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)
	if f.fail[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("blocked by user")
	}
	return tgbotapi.Message{}, nil
}

type chatList struct {
	ids []int64
	err error
}

func (c chatList) ChatIDs(context.Context) ([]int64, error) {
	return c.ids, c.err
}

func TestTelegramBroadcasts(t *testing.T) {
	sender := &fakeSender{fail: map[int64]bool{20: true}}
	sink := notify.NewTelegram(sender, chatList{ids: []int64{10, 20, 30}}, 1000, 10, pkgLog.NewNop())

	sink.Notify("Task Reminder", "📌 <pay> rent")

	require.Len(t, sender.sent, 3)
	assert.Equal(t, int64(30), sender.sent[2].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, sender.sent[0].ParseMode)
	assert.Equal(t, "<b>Task Reminder</b>\n📌 &lt;pay&gt; rent", sender.sent[0].Text)
}

func TestTelegramWithoutChats(t *testing.T) {
	sender := &fakeSender{}
	notify.NewTelegram(sender, chatList{err: errors.New("db closed")}, 1, 1, pkgLog.NewNop()).Notify("a", "b")
	notify.NewTelegram(sender, chatList{}, 1, 1, pkgLog.NewNop()).Notify("a", "b")
	assert.Empty(t, sender.sent)
}

type countingSink struct{ n int }

func (c *countingSink) Notify(string, string) { c.n++ }

func TestMulti(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	notify.Multi{a, b, notify.NewLog(pkgLog.NewNop())}.Notify("t", "m")
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}
