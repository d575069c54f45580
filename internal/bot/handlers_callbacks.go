package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/expense-client/internal/logger"
)

const (
	actionEditExpense   = "edit_expense"
	actionDeleteExpense = "delete_expense"
	logFieldExpenseID   = "expense_id"
	logFieldData        = "data"
)

// handleExpenseActionCallback handles the Edit and Delete buttons under /list.
func (b *Bot) handleExpenseActionCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleExpenseActionCallbackCore(ctx, tgBot, update)
}

// handleExpenseActionCallbackCore is the testable implementation.
func (b *Bot) handleExpenseActionCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	data := update.CallbackQuery.Data
	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	msg := update.CallbackQuery.Message.Message
	if msg == nil {
		logger.Log.Warn().Str(logFieldData, data).Msg("Callback without accessible message")
		return
	}
	chatID := msg.Chat.ID

	var action, rawID string
	switch {
	case strings.HasPrefix(data, editExpensePrefix):
		action, rawID = actionEditExpense, strings.TrimPrefix(data, editExpensePrefix)
	case strings.HasPrefix(data, deleteExpensePrefix):
		action, rawID = actionDeleteExpense, strings.TrimPrefix(data, deleteExpensePrefix)
	default:
		logger.Log.Error().Str(logFieldData, data).Msg("Invalid callback data format")
		return
	}

	expenseID, ok := parseExpenseID(rawID)
	if !ok {
		logger.Log.Error().Str(logFieldData, data).Msg("Failed to parse expense ID")
		return
	}

	ctl := b.loggedInSession(ctx, tg, chatID)
	if ctl == nil {
		return
	}

	switch action {
	case actionEditExpense:
		b.startEditCore(ctx, tg, chatID, ctl, expenseID)

	case actionDeleteExpense:
		if err := ctl.DeleteExpense(ctx, expenseID); err != nil {
			logger.Log.Warn().Err(err).Int64(logFieldExpenseID, expenseID).Msg("Inline delete failed")
			sendHTML(ctx, tg, chatID, errorText(err), nil)
			return
		}

		s := ctl.Snapshot()
		params := &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: msg.ID,
			Text:      fmt.Sprintf("🗑️ Expense #%d deleted.\n\n", expenseID) + formatExpenseList(s),
			ParseMode: models.ParseModeHTML,
		}
		if kb := listKeyboard(s.Expenses); kb != nil {
			params.ReplyMarkup = kb
		}
		if _, err := tg.EditMessageText(ctx, params); err != nil {
			logger.Log.Error().Err(err).Int64(logFieldExpenseID, expenseID).Msg("Failed to update list after delete")
		}
	}
}
