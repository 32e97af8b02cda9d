package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnSkip         = "⏭️ Пропустить"
	btnConfirm      = "✅ Подтвердить"
	btnCancel       = "↩️ Отмена"
	btnCancelDialog = "⏪ Отменить ввод"

	btnPriorityHigh   = "🔴 Высокий"
	btnPriorityMedium = "🟡 Средний"
	btnPriorityLow    = "🟢 Низкий"

	btnRecurNone   = "Без повтора"
	btnRecurDaily  = "Каждый день"
	btnRecurWeekly = "Каждую неделю"
	btnRecurCustom = "Свой интервал"

	btnUnitDays   = "Дни"
	btnUnitWeeks  = "Недели"
	btnUnitMonths = "Месяцы"

	btnEndNever = "Бессрочно"
	btnEndDate  = "До даты"
	btnEndAfter = "Несколько раз"

	menuLabelNewTask = "➕ Новая задача"
	menuLabelTasks   = "📋 Задачи"
	menuLabelStreak  = "🔥 Серия"
	menuLabelHelp    = "ℹ️ Помощь"
)

func replyKeyboard(rows ...[]string) tgbotapi.ReplyKeyboardMarkup {
	buttons := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			r = append(r, tgbotapi.NewKeyboardButton(label))
		}
		buttons = append(buttons, tgbotapi.NewKeyboardButtonRow(r...))
	}
	kb := tgbotapi.NewReplyKeyboard(buttons...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := replyKeyboard(
		[]string{menuLabelNewTask, menuLabelTasks},
		[]string{menuLabelStreak, menuLabelHelp},
	)
	kb.OneTimeKeyboard = false
	return kb
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard([]string{btnConfirm, btnCancel, btnCancelDialog})
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard([]string{btnCancelDialog})
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard([]string{btnSkip}, []string{btnCancelDialog})
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard([]string{btnPriorityHigh, btnPriorityMedium, btnPriorityLow}, []string{btnCancelDialog})
}

func recurrenceKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard(
		[]string{btnRecurNone, btnRecurDaily},
		[]string{btnRecurWeekly, btnRecurCustom},
		[]string{btnCancelDialog},
	)
}

func unitKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard([]string{btnUnitDays, btnUnitWeeks, btnUnitMonths}, []string{btnCancelDialog})
}

func endKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard([]string{btnEndNever, btnEndDate, btnEndAfter}, []string{btnCancelDialog})
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "пропустить" || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "подтвердить" || value == "да"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "отмена"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод"
}
