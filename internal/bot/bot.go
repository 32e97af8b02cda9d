package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dailyflow/internal/clock"
	"dailyflow/internal/config"
	"dailyflow/internal/model"
	"dailyflow/internal/repository"
	"dailyflow/internal/service"
	pkgLog "dailyflow/pkg/log"
)

// API is the subset of tgbotapi.BotAPI the bot talks to.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Deps wires the bot to the rest of the application.
type Deps struct {
	Users   *repository.UserRepository
	Tasks   *service.TaskService
	Reports *service.ReportService
	Clock   clock.Clock
	Config  config.Config
	Logger  pkgLog.Logger
}

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
)

type confirmationRequest struct {
	taskID uint
	action confirmationAction
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api       API
	userRepo  *repository.UserRepository
	taskSvc   *service.TaskService
	reportSvc *service.ReportService
	clock     clock.Clock
	cfg       config.Config
	l         pkgLog.Logger
	limiter   *chatLimiter

	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	pomodoros     map[int64]*pomodoroSession
	mu            sync.Mutex
}

func New(api API, deps Deps) *Bot {
	return &Bot{
		api:           api,
		userRepo:      deps.Users,
		taskSvc:       deps.Tasks,
		reportSvc:     deps.Reports,
		clock:         deps.Clock,
		cfg:           deps.Config,
		l:             deps.Logger,
		limiter:       newChatLimiter(deps.Config.Bot.RequestsPerMinute),
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
		pomodoros:     make(map[int64]*pomodoroSession),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.l.Info(ctx, "start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	b.stopAllPomodoros()
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.l.Errorf(ctx, "handle callback: %v", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.l.Errorf(ctx, "handle message: %v", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if err := b.limiter.Allow(msg.Chat.ID); err != nil {
		b.l.Warnf(ctx, "drop message from %d: %v", msg.From.ID, err)
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён. Можно начать заново.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.l.Infof(ctx, "command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /newtask, чтобы добавить задачу, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "complete":
		return b.handleComplete(ctx, msg)
	case "reopen":
		return b.handleReopen(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "depend":
		return b.handleDepend(ctx, msg)
	case "undepend":
		return b.handleUndepend(ctx, msg)
	case "remind":
		return b.handleRemind(ctx, msg)
	case "unremind":
		return b.handleUnremind(ctx, msg)
	case "streak":
		return b.handleStreak(ctx, msg)
	case "pomodoro":
		return b.handlePomodoro(ctx, msg)
	case "pause":
		return b.handlePomodoroPause(msg)
	case "resume":
		return b.handlePomodoroResume(msg)
	case "stop":
		return b.handlePomodoroStop(msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "mute":
		return b.handleMute(ctx, msg, true)
	case "unmute":
		return b.handleMute(ctx, msg, false)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Диалог создания задачи отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(user.DisplayName())
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я ежедневный планировщик: задачи, повторы, напоминания и помидоры.</b>\n\n"+
			"Начни с /newtask, а полный список команд есть в /help.",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /newtask — добавить задачу пошагово\n" +
		"• /tasks — показать задачи и завершить по кнопке\n" +
		"• /complete &lt;id&gt; — отметить задачу выполненной\n" +
		"• /reopen &lt;id&gt; — вернуть задачу в работу\n" +
		"• /delete &lt;id&gt; — удалить задачу полностью\n" +
		"• /depend &lt;id&gt; &lt;id&gt; — вторая задача ждёт первую\n" +
		"• /undepend &lt;id&gt; &lt;id&gt; — убрать зависимость\n" +
		"• /remind &lt;id&gt; &lt;later|morning|+30m|2025-11-30T18:00&gt; — напоминание\n" +
		"• /unremind &lt;id&gt; — снять напоминание\n" +
		"• /streak — серия дней с выполненными задачами\n" +
		"• /pomodoro &lt;id&gt; — запустить помидор по задаче\n" +
		"• /pause, /resume, /stop — управление помидором\n" +
		"• /report — отчёт прямо сейчас\n" +
		"• /mute, /unmute — выключить или включить рассылку\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	text, err := b.reportSvc.DailySummary(ctx, b.clock.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сформировать отчёт: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleStreak(ctx context.Context, msg *tgbotapi.Message) error {
	streak, err := b.taskSvc.Streak(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}
	text := fmt.Sprintf("%s\n🏆 Рекорд: %d", service.DisplayStreak(streak), streak.LongestStreak)
	if streak.LastCompletionDate.Valid {
		text += fmt.Sprintf("\n✅ Последнее выполнение: %s", streak.LastCompletionDate)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleMute(ctx context.Context, msg *tgbotapi.Message, muted bool) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	if err := b.userRepo.SetMuted(ctx, msg.From.ID, muted); err != nil {
		return err
	}
	if muted {
		return b.sendText(msg.Chat.ID, "🔕 Напоминания и отчёты выключены. Вернуть: /unmute")
	}
	return b.sendText(msg.Chat.ID, "🔔 Напоминания и отчёты снова включены.")
}

// SendReports sends a summary to every known user.
func (b *Bot) SendReports(ctx context.Context) error {
	chats, err := b.userRepo.ChatIDs(ctx)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		return nil
	}
	text, err := b.reportSvc.DailySummary(ctx, b.clock.Now())
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	for _, chatID := range chats {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(chatID, text); err != nil {
			b.l.Errorf(ctx, "send report to %d: %v", chatID, err)
		}
	}
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

// replyError turns a service error into a message for the user.
func (b *Bot) replyError(chatID int64, err error) error {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return b.sendText(chatID, "Задача не найдена.")
	case errors.Is(err, service.ErrDependencyCycle):
		return b.sendText(chatID, "⛔ Такая зависимость создаст цикл.")
	case errors.Is(err, service.ErrEmptyTitle):
		return b.sendText(chatID, "Название задачи не может быть пустым.")
	default:
		b.l.Errorf(context.Background(), "chat %d: %v", chatID, err)
		return b.sendText(chatID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "🔹 Главное меню")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelStreak):
		return true, b.handleStreak(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}
