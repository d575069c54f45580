package bot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/expense-client/internal/logger"
	appmodels "gitlab.com/yelinaung/expense-client/internal/models"
)

// handleChart handles the /chart command to send a category breakdown chart.
func (b *Bot) handleChart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleChartCore(ctx, tgBot, update)
}

// handleChartCore is the testable implementation of handleChart.
func (b *Bot) handleChartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	ctl := b.loggedInSession(ctx, tg, chatID)
	if ctl == nil {
		return
	}

	expenses := ctl.Snapshot().Expenses
	if len(expenses) == 0 {
		sendHTML(ctx, tg, chatID, "📊 No expenses to chart yet.", nil)
		return
	}

	chartData, err := GenerateExpenseChart(expenses, "Expenses by Category")
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate chart")
		sendHTML(ctx, tg, chatID, "❌ Failed to generate chart. Please try again.", nil)
		return
	}

	total := appmodels.Total(expenses)
	caption := fmt.Sprintf("📊 <b>Expenses by Category</b>\n\nTotal: %s\nCount: %d expenses",
		appmodels.FormatMoney(total), len(expenses))

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: chartFilename(time.Now()), Data: bytes.NewReader(chartData)},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send chart document")
		sendHTML(ctx, tg, chatID, "❌ Failed to send chart. Please try again.", nil)
		return
	}

	logger.Log.Info().
		Str("chat_hash", logger.HashChatID(chatID)).
		Int("expense_count", len(expenses)).
		Msg("Chart generated successfully")
}

// handleExport handles the /export command to send the list as CSV.
func (b *Bot) handleExport(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleExportCore(ctx, tgBot, update)
}

// handleExportCore is the testable implementation of handleExport.
func (b *Bot) handleExportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	ctl := b.loggedInSession(ctx, tg, chatID)
	if ctl == nil {
		return
	}

	expenses := ctl.Snapshot().Expenses
	if len(expenses) == 0 {
		sendHTML(ctx, tg, chatID, "📄 No expenses to export yet.", nil)
		return
	}

	data, err := GenerateExpensesCSV(expenses)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate CSV")
		sendHTML(ctx, tg, chatID, "❌ Failed to generate report. Please try again.", nil)
		return
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: exportFilename(time.Now()), Data: bytes.NewReader(data)},
		Caption:   fmt.Sprintf("📄 %d expenses, total %s", len(expenses), appmodels.FormatMoney(appmodels.Total(expenses))),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send CSV document")
		sendHTML(ctx, tg, chatID, "❌ Failed to send report. Please try again.", nil)
	}
}
