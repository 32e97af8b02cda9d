package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyflow/internal/clock"
	"dailyflow/internal/config"
	"dailyflow/internal/model"
	"dailyflow/internal/repository"
	"dailyflow/internal/service"
	"dailyflow/pkg/datemath"
	pkgLog "dailyflow/pkg/log"
)

const testChat int64 = 7

var start = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []string
	updates chan tgbotapi.Update
	once    sync.Once
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.once.Do(func() { close(f.updates) })
}

func (f *fakeAPI) all() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.sent, "\n---\n")
}

func (f *fakeAPI) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type recordingSink struct {
	mu       sync.Mutex
	messages []string
}

func (s *recordingSink) Notify(_, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

type harness struct {
	bot   *Bot
	api   *fakeAPI
	clock *clock.Fake
	tasks *service.TaskService
	users *repository.UserRepository
	sink  *recordingSink
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := pkgLog.NewNop()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "bot.db"), l)
	require.NoError(t, err)

	c := clock.NewFake(start)
	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	sink := &recordingSink{}

	graph := service.NewDependencyGraph(taskRepo, l)
	streaks := service.NewStreakTracker(repository.NewStreakRepository(db), c)
	reminders := service.NewReminderScheduler(c, sink, l)
	tasks := service.NewTaskService(taskRepo, graph, streaks, reminders, c, l)

	cfg := config.Config{
		Pomodoro: config.PomodoroConfig{WorkMinutes: 25, BreakMinutes: 5},
		Bot:      config.BotConfig{RequestsPerMinute: 600},
	}
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
	b := New(api, Deps{
		Users:   userRepo,
		Tasks:   tasks,
		Reports: service.NewReportService(taskRepo, graph, streaks),
		Clock:   c,
		Config:  cfg,
		Logger:  l,
	})
	return &harness{bot: b, api: api, clock: c, tasks: tasks, users: userRepo, sink: sink}
}

func message(text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: testChat, FirstName: "Ann"},
		Chat: &tgbotapi.Chat{ID: testChat, Type: "private"},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		n := strings.IndexByte(text, ' ')
		if n < 0 {
			n = len(text)
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return msg
}

func (h *harness) say(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, h.bot.handleMessage(context.Background(), message(line)), line)
	}
}

func (h *harness) onlyTask(t *testing.T) model.Task {
	t.Helper()
	tasks, err := h.tasks.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	return tasks[0]
}

func TestNewTaskConversationWithCount(t *testing.T) {
	h := newHarness(t)
	h.say(t, "/newtask", "  Buy   milk ", btnPriorityHigh, "завтра", btnRecurDaily, btnEndAfter, "3")

	task := h.onlyTask(t)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, datemath.Some(datemath.New(2024, time.January, 2)), task.DueDate)
	assert.Equal(t, model.RecurrenceDaily, task.Recurrence.Type)
	assert.Equal(t, model.EndAfter, task.Recurrence.End)
	assert.Equal(t, 3, task.Recurrence.Remaining)
	assert.Contains(t, h.api.all(), "Задача сохранена")
	assert.False(t, h.bot.hasConversation(testChat))
}

func TestNewTaskConversationCustomWeeks(t *testing.T) {
	h := newHarness(t)
	h.say(t, "/newtask", "Gym", "средний", "-", btnRecurCustom, "0", "2", btnUnitWeeks, "пн, чт", btnEndNever)

	task := h.onlyTask(t)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.False(t, task.DueDate.Valid)
	assert.Equal(t, model.RecurrenceCustom, task.Recurrence.Type)
	assert.Equal(t, 2, task.Recurrence.Interval)
	assert.Equal(t, model.UnitWeeks, task.Recurrence.Unit)
	assert.Equal(t, model.NewWeekdaySet(time.Monday, time.Thursday), task.Recurrence.Weekdays)
	assert.Contains(t, h.api.all(), "Интервал должен быть числом")
}

func TestNewTaskConversationCancel(t *testing.T) {
	h := newHarness(t)
	h.say(t, "/newtask", "Something", btnCancelDialog)

	tasks, err := h.tasks.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.False(t, h.bot.hasConversation(testChat))
}

func TestCompleteRespectsDependencies(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first, err := h.tasks.CreateTask(ctx, service.TaskInput{Title: "draft"})
	require.NoError(t, err)
	second, err := h.tasks.CreateTask(ctx, service.TaskInput{Title: "review"})
	require.NoError(t, err)

	h.say(t, "/depend 1 2")
	assert.Contains(t, h.api.last(), "ждёт задачу #1")

	h.say(t, "/depend 2 1")
	assert.Contains(t, h.api.last(), "цикл")

	h.say(t, "/complete 2")
	assert.Contains(t, h.api.last(), "нельзя завершить")
	assert.Contains(t, h.api.last(), "#1")

	h.say(t, "/complete 1", "/complete 2")
	assert.Contains(t, h.api.last(), "выполнена")
	assert.Contains(t, h.api.last(), "🔥 1 Day Streak")

	got, err := h.tasks.GetTask(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted())

	h.say(t, "/reopen 1")
	got, err = h.tasks.GetTask(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted())

	h.say(t, "/complete 99")
	assert.Contains(t, h.api.last(), "Задача не найдена")
}

func TestCompleteThroughConfirmation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	task, err := h.tasks.CreateTask(ctx, service.TaskInput{Title: "confirm me"})
	require.NoError(t, err)

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: testChat},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChat, Type: "private"}},
		Data:    "complete:1",
	}
	require.NoError(t, h.bot.handleCallback(ctx, cb))
	assert.Contains(t, h.api.last(), "как выполненную?")

	h.say(t, "подтвердить")
	got, err := h.tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted())
}

func TestRemindAndUnremind(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	task, err := h.tasks.CreateTask(ctx, service.TaskInput{Title: "call bank"})
	require.NoError(t, err)

	h.say(t, "/remind 1 +30m")
	assert.Contains(t, h.api.last(), "Напомню")

	got, err := h.tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReminderAt)
	assert.Equal(t, "2024-01-01T09:30:00", *got.ReminderAt)

	h.clock.Advance(31 * time.Minute)
	assert.Equal(t, []string{"📌 call bank"}, h.sink.messages)

	h.say(t, "/remind 1 morning", "/unremind 1")
	h.clock.Advance(48 * time.Hour)
	assert.Len(t, h.sink.messages, 1)

	h.say(t, "/remind 1 soonish")
	assert.Contains(t, h.api.last(), "Не понял время")
}

func TestPomodoroSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	task, err := h.tasks.CreateTask(ctx, service.TaskInput{Title: "focus"})
	require.NoError(t, err)

	h.say(t, "/pomodoro 1")
	assert.Contains(t, h.api.last(), "25 мин")

	h.clock.Advance(10 * time.Minute)
	h.say(t, "/pause")
	assert.Contains(t, h.api.last(), "15:00")
	h.clock.Advance(time.Hour)
	h.say(t, "/resume", "/pomodoro")
	assert.Contains(t, h.api.last(), "работа, осталось 15:00")

	h.clock.Advance(15 * time.Minute)
	assert.Contains(t, h.api.last(), "завершён (всего 1)")
	got, err := h.tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PomodoroCount)

	h.clock.Advance(5 * time.Minute)
	assert.Contains(t, h.api.last(), "Перерыв окончен")
	assert.Nil(t, h.bot.currentPomodoro(testChat))

	h.say(t, "/pomodoro 1", "/stop")
	assert.Contains(t, h.api.last(), "остановлен")
	h.clock.Advance(time.Hour)
	got, err = h.tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PomodoroCount)
}

func TestStartPollsUntilCancelled(t *testing.T) {
	h := newHarness(t)
	h.api.updates <- tgbotapi.Update{Message: message("/start")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.bot.Start(ctx) }()

	require.Eventually(t, func() bool { return strings.Contains(h.api.all(), "Привет, Ann") }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop")
	}

	ids, err := h.users.ChatIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{testChat}, ids)

	require.NoError(t, h.bot.SendReports(context.Background()))
	assert.Contains(t, h.api.last(), "Ежедневный отчёт")
}

func TestMuteStopsBroadcasts(t *testing.T) {
	h := newHarness(t)
	h.say(t, "/mute")
	assert.Contains(t, h.api.last(), "выключены")

	require.NoError(t, h.bot.SendReports(context.Background()))
	assert.NotContains(t, h.api.all(), "Ежедневный отчёт")

	h.say(t, "/unmute")
	assert.Contains(t, h.api.last(), "снова включены")

	require.NoError(t, h.bot.SendReports(context.Background()))
	assert.Contains(t, h.api.last(), "Ежедневный отчёт")
}
