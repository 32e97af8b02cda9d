package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dailyflow/internal/model"
	"dailyflow/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbConfirmPrefix  = "confirm:"
	cbCancelPrefix   = "cancel:"
)

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64) error {
	tasks, err := b.taskSvc.ListTasks(ctx)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}

	var pending []model.Task
	for _, task := range tasks {
		if !task.IsCompleted() {
			pending = append(pending, task)
		}
	}
	if len(pending) == 0 {
		return b.sendText(chatID, "У тебя нет активных задач. Добавь новую через /newtask.")
	}

	blocked := b.blockedSet(ctx)
	today := b.clock.Today()

	var builder strings.Builder
	builder.WriteString("📋 <b>Текущие задачи</b>\n")
	builder.WriteString("Нажми на кнопку, чтобы отметить задачу выполненной или удалить её.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range pending {
		builder.WriteString(service.FormatTaskLine(task, blocked[task.ID], today))
		builder.WriteByte('\n')

		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 20)), fmt.Sprintf("%s%d", cbCompletePrefix, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

// blockedSet marks pending tasks that wait on unfinished predecessors.
// A failed lookup shows nothing as blocked.
func (b *Bot) blockedSet(ctx context.Context) map[uint]bool {
	blocked, err := b.taskSvc.BlockedTasks(ctx)
	if err != nil {
		b.l.Warnf(ctx, "list blocked tasks: %v", err)
		return map[uint]bool{}
	}
	return blocked
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.l.Warnf(ctx, "callback ack: %v", err)
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	b.l.Infof(ctx, "callback %q from %d", data, cb.From.ID)

	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		taskID, err := parseTaskID(data, cbCompletePrefix)
		if err != nil {
			return nil
		}
		return b.askConfirmation(ctx, chatID, cb.From.ID, taskID, actionComplete)
	case strings.HasPrefix(data, cbDeletePrefix):
		taskID, err := parseTaskID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		return b.askConfirmation(ctx, chatID, cb.From.ID, taskID, actionDelete)
	case strings.HasPrefix(data, cbConfirmPrefix):
		taskID, err := parseTaskID(data, cbConfirmPrefix)
		if err != nil {
			return nil
		}
		b.clearConfirmation(cb.From.ID)
		return b.completeTaskAndRefresh(ctx, chatID, taskID)
	case strings.HasPrefix(data, cbCancelPrefix):
		b.clearConfirmation(cb.From.ID)
		return nil
	default:
		return nil
	}
}

func (b *Bot) askConfirmation(ctx context.Context, chatID, userID int64, taskID uint, action confirmationAction) error {
	task, err := b.taskSvc.GetTask(ctx, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}

	var text string
	switch action {
	case actionDelete:
		text = fmt.Sprintf("Удалить задачу «%s» (#%d)?", escape(task.Title), task.ID)
	default:
		if task.IsCompleted() {
			return b.sendText(chatID, "Задача уже выполнена.")
		}
		text = fmt.Sprintf("Отметить задачу «%s» (#%d) как выполненную?", escape(task.Title), task.ID)
	}

	b.setConfirmation(userID, confirmationRequest{taskID: task.ID, action: action})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDelete {
			return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, req.taskID)
		}
		return b.completeTaskAndRefresh(ctx, msg.Chat.ID, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		prompt := "Подтверди или отмени выполнение задачи."
		if req.action == actionDelete {
			prompt = "Подтверди или отмени удаление задачи."
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmKeyboard())
	}
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /complete 12")
	}
	res, err := b.taskSvc.CompleteTask(ctx, taskID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, completionText(res))
}

func (b *Bot) completeTaskAndRefresh(ctx context.Context, chatID int64, taskID uint) error {
	res, err := b.taskSvc.CompleteTask(ctx, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	if err := b.sendTextWithRemove(chatID, completionText(res)); err != nil {
		return err
	}
	if res.Outcome != service.OutcomeCompleted {
		return nil
	}
	return b.sendTaskList(ctx, chatID)
}

func completionText(res service.CompletionResult) string {
	title := escape(res.Task.Title)
	switch res.Outcome {
	case service.OutcomeAlreadyCompleted:
		return fmt.Sprintf("Задача «%s» уже выполнена.", title)
	case service.OutcomeBlocked:
		ids := make([]string, 0, len(res.BlockedBy))
		for _, id := range res.BlockedBy {
			ids = append(ids, fmt.Sprintf("#%d", id))
		}
		text := fmt.Sprintf("🔒 Задачу «%s» пока нельзя завершить: сначала выполни предыдущие.", title)
		if len(ids) > 0 {
			text += "\nЖдёт: " + strings.Join(ids, ", ")
		}
		return text
	default:
		text := fmt.Sprintf("✅ Задача «%s» выполнена.\n%s", title, service.DisplayStreak(res.Streak))
		if res.Next != nil {
			text += fmt.Sprintf("\n♻️ Следующая: #%d на %s", res.Next.ID, res.Next.DueDate)
		}
		return text
	}
}

func (b *Bot) handleReopen(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /reopen 12")
	}
	task, err := b.taskSvc.ReopenTask(ctx, taskID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("↩️ Задача «%s» снова в работе.", escape(task.Title)))
}

// handleDelete удаляет задачу вместе с напоминанием и зависимостями.
func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /delete 12")
	}
	task, err := b.taskSvc.GetTask(ctx, taskID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if err := b.taskSvc.DeleteTask(ctx, taskID); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Задача «%s» удалена.", escape(task.Title)))
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, taskID uint) error {
	task, err := b.taskSvc.GetTask(ctx, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	if err := b.taskSvc.DeleteTask(ctx, taskID); err != nil {
		return b.replyError(chatID, err)
	}
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Задача «%s» удалена.", escape(task.Title))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) handleDepend(ctx context.Context, msg *tgbotapi.Message) error {
	pred, succ, err := parseTwoIDs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи две задачи: /depend 3 5 — задача 5 ждёт задачу 3.")
	}
	if err := b.taskSvc.AddDependency(ctx, pred, succ); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔗 Задача #%d теперь ждёт задачу #%d.", succ, pred))
}

func (b *Bot) handleUndepend(ctx context.Context, msg *tgbotapi.Message) error {
	pred, succ, err := parseTwoIDs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи две задачи: /undepend 3 5")
	}
	if err := b.taskSvc.RemoveDependency(ctx, pred, succ); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✂️ Задача #%d больше не ждёт задачу #%d.", succ, pred))
}

func (b *Bot) handleRemind(ctx context.Context, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		return b.sendText(msg.Chat.ID, "Формат: /remind 12 later, /remind 12 morning, /remind 12 +30m или /remind 12 2025-11-30T18:00")
	}
	taskID, err := parseIDArg(fields[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "ID задачи должен быть числом.")
	}
	when, err := parseReminderArg(fields[1], b.clock.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Не понял время напоминания.")
	}
	task, err := b.taskSvc.SetReminder(ctx, taskID, when)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔔 Напомню о «%s» %s.", escape(task.Title), when.Format("02.01.2006 15:04")))
}

func (b *Bot) handleUnremind(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /unremind 12")
	}
	task, err := b.taskSvc.ClearReminder(ctx, taskID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔕 Напоминание для «%s» снято.", escape(task.Title)))
}
