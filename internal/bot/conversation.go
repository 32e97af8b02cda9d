package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dailyflow/internal/model"
	"dailyflow/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stagePriority
	stageDueDate
	stageRecurrence
	stageInterval
	stageUnit
	stageWeekdays
	stageEnd
	stageEndDate
	stageEndCount
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.l.Infof(ctx, "start new task conversation user=%d", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Создаём новую задачу.\n<b>Шаг 1:</b> как её назвать?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if model.NormalizeTitle(text) == "" {
			return b.sendWithReplyMarkup(chatID, "Название не может быть пустым. Как назвать задачу?", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stagePriority
		return b.sendWithReplyMarkup(chatID, "❗ Какой приоритет?", priorityKeyboard())

	case stagePriority:
		priority, err := parsePriorityInput(text)
		if err != nil {
			return b.sendWithReplyMarkup(chatID, "Выбери приоритет кнопкой.", priorityKeyboard())
		}
		state.input.Priority = priority
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(chatID, "⏰ Укажи срок в формате <code>2025-11-30</code>, «сегодня» или «завтра» (или «Пропустить»).", skipKeyboard())

	case stageDueDate:
		if !isSkipInput(text) {
			due, err := parseDateInput(text, b.clock.Today())
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "Не могу распознать дату. Используй формат <code>2025-11-30</code> или «Пропустить».", skipKeyboard())
			}
			state.input.DueDate = due
		}
		state.stage = stageRecurrence
		return b.sendWithReplyMarkup(chatID, "🔁 Повторять задачу?", recurrenceKeyboard())

	case stageRecurrence:
		kind, err := parseRecurrenceInput(text)
		if err != nil {
			return b.sendWithReplyMarkup(chatID, "Выбери вариант повтора кнопкой.", recurrenceKeyboard())
		}
		state.input.Recurrence = model.Recurrence{Type: kind, Interval: 1}
		switch kind {
		case model.RecurrenceNone:
			return b.finishConversation(ctx, msg, state)
		case model.RecurrenceCustom:
			state.stage = stageInterval
			return b.sendWithReplyMarkup(chatID, "🔢 С каким интервалом? Например, <code>2</code> — каждые два периода.", cancelKeyboard())
		default:
			state.stage = stageEnd
			return b.sendWithReplyMarkup(chatID, "🏁 Когда остановить повторы?", endKeyboard())
		}

	case stageInterval:
		interval, err := strconv.Atoi(text)
		if err != nil || interval < 1 || interval > 365 {
			return b.sendWithReplyMarkup(chatID, "Интервал должен быть числом от 1 до 365.", cancelKeyboard())
		}
		state.input.Recurrence.Interval = interval
		state.stage = stageUnit
		return b.sendWithReplyMarkup(chatID, "📏 В каких единицах?", unitKeyboard())

	case stageUnit:
		unit, err := parseUnitInput(text)
		if err != nil {
			return b.sendWithReplyMarkup(chatID, "Выбери единицу кнопкой.", unitKeyboard())
		}
		state.input.Recurrence.Unit = unit
		if unit == model.UnitWeeks {
			state.stage = stageWeekdays
			return b.sendWithReplyMarkup(chatID, "📅 По каким дням недели? Например, <code>пн, ср, пт</code> (или «Пропустить»).", skipKeyboard())
		}
		state.stage = stageEnd
		return b.sendWithReplyMarkup(chatID, "🏁 Когда остановить повторы?", endKeyboard())

	case stageWeekdays:
		if !isSkipInput(text) {
			days, err := parseWeekdaysInput(text)
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "Не понял дни недели. Пример: <code>вт, чт</code>.", skipKeyboard())
			}
			state.input.Recurrence.Weekdays = days
		}
		state.stage = stageEnd
		return b.sendWithReplyMarkup(chatID, "🏁 Когда остановить повторы?", endKeyboard())

	case stageEnd:
		end, err := parseEndInput(text)
		if err != nil {
			return b.sendWithReplyMarkup(chatID, "Выбери вариант кнопкой.", endKeyboard())
		}
		state.input.Recurrence.End = end
		switch end {
		case model.EndOnDate:
			state.stage = stageEndDate
			return b.sendWithReplyMarkup(chatID, "📆 До какой даты повторять? Формат <code>2025-12-31</code>.", cancelKeyboard())
		case model.EndAfter:
			state.stage = stageEndCount
			return b.sendWithReplyMarkup(chatID, "🔢 Сколько ещё раз повторить?", cancelKeyboard())
		default:
			return b.finishConversation(ctx, msg, state)
		}

	case stageEndDate:
		end, err := parseDateInput(text, b.clock.Today())
		if err != nil || !end.Valid {
			return b.sendWithReplyMarkup(chatID, "Не могу распознать дату. Формат <code>2025-12-31</code>.", cancelKeyboard())
		}
		state.input.Recurrence.EndDate = end
		return b.finishConversation(ctx, msg, state)

	case stageEndCount:
		count, err := strconv.Atoi(text)
		if err != nil || count < 1 || count > 1000 {
			return b.sendWithReplyMarkup(chatID, "Нужно число от 1 до 1000.", cancelKeyboard())
		}
		state.input.Recurrence.Remaining = count
		return b.finishConversation(ctx, msg, state)

	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(chatID, "Диалог сброшен. Попробуй ещё раз через /newtask.")
	}
}

func (b *Bot) finishConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	b.clearConversation(msg.From.ID)
	return b.finishTaskCreation(ctx, state.input, msg.Chat.ID)
}

func (b *Bot) finishTaskCreation(ctx context.Context, input service.TaskInput, chatID int64) error {
	task, err := b.taskSvc.CreateTask(ctx, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось сохранить задачу: %s", escape(err.Error())))
	}

	var summary strings.Builder
	summary.WriteString("✅ <b>Задача сохранена</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	summary.WriteString(fmt.Sprintf("• <b>Название:</b> %s\n", escape(task.Title)))
	summary.WriteString(fmt.Sprintf("• <b>Приоритет:</b> %s\n", priorityLabel(task.Priority)))
	if task.DueDate.Valid {
		summary.WriteString(fmt.Sprintf("• <b>Срок:</b> %s\n", task.DueDate))
	}
	if task.Recurrence.IsRecurring() {
		summary.WriteString(fmt.Sprintf("• <b>Повтор:</b> %s\n", escape(service.DescribeRecurrence(task.Recurrence))))
	}

	if err := b.sendTextWithRemove(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID)
}
