package bot

import (
	"context"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-client/internal/bot/mocks"
	"gitlab.com/yelinaung/expense-client/internal/session"
)

func TestHandleExpenseActionCallbackCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("nil callback returns early", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend())
		mockBot := mocks.NewMockBot()
		b.handleExpenseActionCallbackCore(ctx, mockBot, &models.Update{})
		require.Empty(t, mockBot.AnsweredCallbacks)
	})

	t.Run("inaccessible message is answered and ignored", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend())
		mockBot := mocks.NewMockBot()
		update := &models.Update{CallbackQuery: &models.CallbackQuery{ID: "cb", Data: "edit_expense_1"}}

		b.handleExpenseActionCallbackCore(ctx, mockBot, update)

		require.Len(t, mockBot.AnsweredCallbacks, 1)
		require.Equal(t, 0, mockBot.SentMessageCount())
	})

	t.Run("logged out chat is asked to log in", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend())
		mockBot := mocks.NewMockBot()

		b.handleExpenseActionCallbackCore(ctx, mockBot, mocks.CallbackQueryUpdate(testChatID, testUserID, 50, "delete_expense_1"))

		require.Equal(t, loginPromptText, mockBot.LastSentMessage().Text)
	})

	t.Run("malformed id is ignored", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend(sampleExpenses()...))
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleExpenseActionCallbackCore(ctx, mockBot, mocks.CallbackQueryUpdate(testChatID, testUserID, 50, "delete_expense_x"))

		require.Len(t, mockBot.AnsweredCallbacks, 1)
		require.Equal(t, 0, mockBot.SentMessageCount())
		require.Len(t, b.sessions.Get(testChatID).Snapshot().Expenses, 2)
	})

	t.Run("edit button opens the form", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend(sampleExpenses()...))
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleExpenseActionCallbackCore(ctx, mockBot, mocks.CallbackQueryUpdate(testChatID, testUserID, 50, "edit_expense_1"))

		require.Contains(t, mockBot.LastSentMessage().Text, "Editing Expense #1")
		s := b.sessions.Get(testChatID).Snapshot()
		require.NotNil(t, s.EditingID)
		require.Equal(t, session.ExpenseForm{Name: "Coffee", Amount: "4.5", Category: "Food"}, s.Form)
	})

	t.Run("delete button re-renders the list in place", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend(sampleExpenses()...))
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleExpenseActionCallbackCore(ctx, mockBot, mocks.CallbackQueryUpdate(testChatID, testUserID, 50, "delete_expense_1"))

		edited := mockBot.LastEditedMessage()
		require.NotNil(t, edited)
		require.Equal(t, 50, edited.MessageID)
		require.Contains(t, edited.Text, "Expense #1 deleted")
		require.NotContains(t, edited.Text, "Coffee")
		require.Contains(t, edited.Text, "Bus")
		require.IsType(t, &models.InlineKeyboardMarkup{}, edited.ReplyMarkup)
	})

	t.Run("deleting the last expense drops the keyboard", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend(sampleExpenses()[:1]...))
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleExpenseActionCallbackCore(ctx, mockBot, mocks.CallbackQueryUpdate(testChatID, testUserID, 50, "delete_expense_1"))

		edited := mockBot.LastEditedMessage()
		require.Contains(t, edited.Text, emptyListText)
		require.Nil(t, edited.ReplyMarkup)
	})

	t.Run("delete failure is reported", func(t *testing.T) {
		backend := newFakeBackend(sampleExpenses()...)
		backend.deleteErr = errBackendDown
		b := setupTestBot(t, backend)
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleExpenseActionCallbackCore(ctx, mockBot, mocks.CallbackQueryUpdate(testChatID, testUserID, 50, "delete_expense_2"))

		require.Nil(t, mockBot.LastEditedMessage())
		require.Equal(t, "❌ "+session.MsgDeleteFailed, mockBot.LastSentMessage().Text)
	})
}
