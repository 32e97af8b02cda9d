package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dailyflow/internal/pomodoro"
)

// pomodoroSession is one chat's running timer, bound to a task.
type pomodoroSession struct {
	timer  *pomodoro.Timer
	taskID uint
	title  string
}

func (b *Bot) handlePomodoro(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	if msg.CommandArguments() == "" {
		return b.sendPomodoroStatus(chatID)
	}

	taskID, err := parseIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(chatID, "Укажи ID задачи: /pomodoro 12")
	}
	task, err := b.taskSvc.GetTask(ctx, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	if task.IsCompleted() {
		return b.sendText(chatID, "Задача уже выполнена.")
	}

	timer := pomodoro.New(b.clock)
	timer.SetWorkDuration(b.cfg.Pomodoro.WorkMinutes)
	timer.SetBreakDuration(b.cfg.Pomodoro.BreakMinutes)
	session := &pomodoroSession{timer: timer, taskID: task.ID, title: task.Title}
	timer.OnComplete(func(finished pomodoro.State) { b.pomodoroFinished(chatID, session, finished) })

	b.mu.Lock()
	old := b.pomodoros[chatID]
	b.pomodoros[chatID] = session
	b.mu.Unlock()
	if old != nil {
		old.timer.Stop()
	}

	timer.StartWork()
	b.l.Infof(ctx, "pomodoro %s started chat=%d task=%d", timer.Session(), chatID, task.ID)
	return b.sendText(chatID, fmt.Sprintf("🍅 Помидор для «%s» запущен: %d мин. работы.", escape(task.Title), timer.WorkMinutes()))
}

// pomodoroFinished runs on the timer's tick goroutine.
func (b *Bot) pomodoroFinished(chatID int64, session *pomodoroSession, finished pomodoro.State) {
	ctx := context.Background()
	if b.currentPomodoro(chatID) != session {
		return
	}

	switch finished {
	case pomodoro.StateWork:
		task, err := b.taskSvc.RecordPomodoro(ctx, session.taskID)
		if err != nil {
			b.l.Errorf(ctx, "record pomodoro task=%d: %v", session.taskID, err)
		}
		count := 0
		if task != nil {
			count = task.PomodoroCount
		}
		session.timer.StartBreak()
		text := fmt.Sprintf("🍅 Помидор для «%s» завершён (всего %d). Перерыв %d мин.", escape(session.title), count, session.timer.BreakMinutes())
		if err := b.sendText(chatID, text); err != nil {
			b.l.Errorf(ctx, "send pomodoro to %d: %v", chatID, err)
		}
	case pomodoro.StateBreak:
		b.mu.Lock()
		if b.pomodoros[chatID] == session {
			delete(b.pomodoros, chatID)
		}
		b.mu.Unlock()
		text := fmt.Sprintf("☕ Перерыв окончен. Продолжить: /pomodoro %d", session.taskID)
		if err := b.sendText(chatID, text); err != nil {
			b.l.Errorf(ctx, "send pomodoro to %d: %v", chatID, err)
		}
	case pomodoro.StateStopped:
	}
}

func (b *Bot) sendPomodoroStatus(chatID int64) error {
	session := b.currentPomodoro(chatID)
	if session == nil {
		return b.sendText(chatID, "Помидор не запущен. Начни с /pomodoro &lt;id&gt;.")
	}
	t := session.timer
	state := "работа"
	if t.State() == pomodoro.StateBreak {
		state = "перерыв"
	}
	text := fmt.Sprintf("🍅 «%s»: %s, осталось %s", escape(session.title), state, t.Formatted())
	if t.Paused() {
		text += " (пауза)"
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handlePomodoroPause(msg *tgbotapi.Message) error {
	session := b.currentPomodoro(msg.Chat.ID)
	if session == nil {
		return b.sendText(msg.Chat.ID, "Помидор не запущен.")
	}
	session.timer.Pause()
	return b.sendText(msg.Chat.ID, fmt.Sprintf("⏸ Пауза. Осталось %s.", session.timer.Formatted()))
}

func (b *Bot) handlePomodoroResume(msg *tgbotapi.Message) error {
	session := b.currentPomodoro(msg.Chat.ID)
	if session == nil {
		return b.sendText(msg.Chat.ID, "Помидор не запущен.")
	}
	session.timer.Resume()
	return b.sendText(msg.Chat.ID, fmt.Sprintf("▶️ Продолжаем. Осталось %s.", session.timer.Formatted()))
}

func (b *Bot) handlePomodoroStop(msg *tgbotapi.Message) error {
	b.mu.Lock()
	session := b.pomodoros[msg.Chat.ID]
	delete(b.pomodoros, msg.Chat.ID)
	b.mu.Unlock()

	if session == nil {
		return b.sendText(msg.Chat.ID, "Помидор не запущен.")
	}
	session.timer.Stop()
	return b.sendText(msg.Chat.ID, "⏹ Помидор остановлен.")
}

func (b *Bot) currentPomodoro(chatID int64) *pomodoroSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pomodoros[chatID]
}

func (b *Bot) stopAllPomodoros() {
	b.mu.Lock()
	sessions := b.pomodoros
	b.pomodoros = make(map[int64]*pomodoroSession)
	b.mu.Unlock()

	for _, s := range sessions {
		s.timer.Stop()
	}
}
