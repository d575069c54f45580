package bot

import (
	"context"
	"math"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-client/internal/bot/mocks"
	"gitlab.com/yelinaung/expense-client/internal/gemini"
	appmodels "gitlab.com/yelinaung/expense-client/internal/models"
	"gitlab.com/yelinaung/expense-client/internal/session"
)

const nilMessageReturnsEarly = "nil message returns early"

func TestHandleStartAndHelpCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := setupTestBot(t, newFakeBackend())

	t.Run(nilMessageReturnsEarly, func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleStartCore(ctx, mockBot, &models.Update{})
		b.handleHelpCore(ctx, mockBot, &models.Update{})
		require.Equal(t, 0, mockBot.SentMessageCount())
	})

	t.Run("start greets by first name", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		update := mocks.NewUpdateBuilder().
			WithMessage(testChatID, testUserID, "/start").
			WithFrom(testUserID, "alice", "Alice <3").
			Build()

		b.handleStartCore(ctx, mockBot, update)

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "Welcome, Alice &lt;3!")
		require.Equal(t, models.ParseModeHTML, msg.ParseMode)
	})

	t.Run("help lists every command", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleHelpCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/help"))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		for _, cmd := range []string{"/login", "/register", "/auth", "/mode", "/list", "/refresh", "/save", "/edit", "/cancel", "/delete", "/logout", "/chart", "/export", "/suggest"} {
			require.Contains(t, msg.Text, cmd)
		}
	})
}

func TestHandleLoginCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("logs in, deletes the password and shows the list", func(t *testing.T) {
		backend := newFakeBackend(sampleExpenses()...)
		b := setupTestBot(t, backend)
		mockBot := mocks.NewMockBot()
		update := mocks.NewUpdateBuilder().
			WithMessage(testChatID, testUserID, "/login alice secret").
			WithMessageID(77).
			Build()

		b.handleCredentialsCore(ctx, mockBot, update, "/login", session.ModeLogin)

		require.Equal(t, 1, mockBot.DeletedMessageCount())
		require.Equal(t, 77, mockBot.DeletedMessages[0].MessageID)
		require.Equal(t, 2, mockBot.SentMessageCount())
		require.Equal(t, "✅ Logged in.", mockBot.SentMessages[0].Text)

		list := mockBot.LastSentMessage()
		require.Contains(t, list.Text, "Coffee")
		require.Contains(t, list.Text, "Total: $6.75")
		require.IsType(t, &models.InlineKeyboardMarkup{}, list.ReplyMarkup)

		require.True(t, b.sessions.Get(testChatID).LoggedIn())
		require.Equal(t, 1, backend.listCalls)
	})

	t.Run("missing password shows usage and deletes nothing", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend())
		mockBot := mocks.NewMockBot()

		b.handleCredentialsCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/login"), "/login", session.ModeLogin)

		require.Equal(t, 0, mockBot.DeletedMessageCount())
		msg := mockBot.LastSentMessage()
		require.Contains(t, msg.Text, session.MsgCredentialsRequired)
		require.Contains(t, msg.Text, "Usage: <code>/login")
		require.False(t, b.sessions.Get(testChatID).LoggedIn())
	})

	t.Run("username only is rejected", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend())
		mockBot := mocks.NewMockBot()

		b.handleCredentialsCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/login alice"), "/login", session.ModeLogin)

		require.Contains(t, mockBot.LastSentMessage().Text, session.MsgCredentialsRequired)
		require.Equal(t, 1, mockBot.DeletedMessageCount())
	})

	t.Run("server rejection shows auth failure", func(t *testing.T) {
		backend := newFakeBackend()
		backend.authErr = errBackendDown
		b := setupTestBot(t, backend)
		mockBot := mocks.NewMockBot()

		b.handleCredentialsCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/register bob pw"), "/register", session.ModeRegister)

		require.Equal(t, "❌ "+session.MsgAuthFailed, mockBot.LastSentMessage().Text)
		require.False(t, b.sessions.Get(testChatID).LoggedIn())
	})

	t.Run("already logged in", func(t *testing.T) {
		backend := newFakeBackend()
		b := setupTestBot(t, backend)
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleCredentialsCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/login alice secret"), "/login", session.ModeLogin)

		require.Equal(t, loggedInText, mockBot.LastSentMessage().Text)
		require.Equal(t, 1, backend.listCalls)
	})

	t.Run("failed initial load still logs in", func(t *testing.T) {
		backend := newFakeBackend()
		backend.listErr = errBackendDown
		b := setupTestBot(t, backend)
		mockBot := mocks.NewMockBot()

		b.handleCredentialsCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/login alice secret"), "/login", session.ModeLogin)

		require.True(t, b.sessions.Get(testChatID).LoggedIn())
		require.Contains(t, mockBot.LastSentMessage().Text, session.MsgLoadFailed)
	})
}

func TestHandleModeAndAuthCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := setupTestBot(t, newFakeBackend())
	mockBot := mocks.NewMockBot()

	b.handleModeCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/mode"))
	require.Contains(t, mockBot.LastSentMessage().Text, "Mode: <b>register</b>")

	b.handleAuthCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/auth bob pw"))
	require.True(t, b.sessions.Get(testChatID).LoggedIn())
	require.Equal(t, 1, mockBot.DeletedMessageCount())

	mockBot.Reset()
	b.handleModeCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/mode"))
	require.Equal(t, loggedInText, mockBot.LastSentMessage().Text)
}

func TestHandleLogoutCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := setupTestBot(t, newFakeBackend(sampleExpenses()...))
	loginTestChat(t, b)
	mockBot := mocks.NewMockBot()

	b.handleLogoutCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/logout"))

	require.Equal(t, "👋 Logged out.", mockBot.LastSentMessage().Text)
	s := b.sessions.Get(testChatID).Snapshot()
	require.False(t, s.LoggedIn())
	require.Empty(t, s.Expenses)

	b.handleListCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/list"))
	require.Equal(t, loginPromptText, mockBot.LastSentMessage().Text)
}

func TestHandleListAndRefreshCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("requires login", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend())
		mockBot := mocks.NewMockBot()
		b.handleRefreshCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/refresh"))
		require.Equal(t, loginPromptText, mockBot.LastSentMessage().Text)
	})

	t.Run("empty list has no keyboard", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend())
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleListCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/list"))

		msg := mockBot.LastSentMessage()
		require.Contains(t, msg.Text, emptyListText)
		require.Nil(t, msg.ReplyMarkup)
	})

	t.Run("refresh picks up server changes", func(t *testing.T) {
		backend := newFakeBackend()
		b := setupTestBot(t, backend)
		loginTestChat(t, b)
		backend.expenses = sampleExpenses()
		mockBot := mocks.NewMockBot()

		b.handleRefreshCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/refresh"))

		require.Contains(t, mockBot.LastSentMessage().Text, "Bus")
		require.Equal(t, 2, backend.listCalls)
	})

	t.Run("refresh failure keeps the list", func(t *testing.T) {
		backend := newFakeBackend(sampleExpenses()...)
		b := setupTestBot(t, backend)
		loginTestChat(t, b)
		backend.listErr = errBackendDown
		mockBot := mocks.NewMockBot()

		b.handleRefreshCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/refresh"))

		require.Equal(t, "❌ "+session.MsgLoadFailed, mockBot.LastSentMessage().Text)
		require.Len(t, b.sessions.Get(testChatID).Snapshot().Expenses, 2)
	})
}

func TestHandleSaveCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates an expense", func(t *testing.T) {
		backend := newFakeBackend()
		b := setupTestBot(t, backend)
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleSaveCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/save Lunch | 12.5 | Food"))

		require.Equal(t, "✅ Expense added.", mockBot.SentMessages[0].Text)
		require.Contains(t, mockBot.LastSentMessage().Text, "Lunch")
		s := b.sessions.Get(testChatID).Snapshot()
		require.Len(t, s.Expenses, 1)
		require.Equal(t, session.ExpenseForm{}, s.Form)
	})

	t.Run("incomplete form keeps the typed fields", func(t *testing.T) {
		backend := newFakeBackend()
		b := setupTestBot(t, backend)
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleSaveCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/save Lunch | 12.5"))

		msg := mockBot.LastSentMessage()
		require.Contains(t, msg.Text, session.MsgFieldsRequired)
		require.Contains(t, msg.Text, "<code>Lunch</code>")

		b.handleSaveCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/save | | Food"))
		require.Len(t, b.sessions.Get(testChatID).Snapshot().Expenses, 1)
		require.Equal(t, "Lunch", backend.lastInput.Name)
	})

	t.Run("non-numeric amount is still sent", func(t *testing.T) {
		backend := newFakeBackend()
		b := setupTestBot(t, backend)
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleSaveCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/save Gift | abc | Other"))

		require.True(t, math.IsNaN(backend.lastInput.Amount))
		require.Equal(t, "✅ Expense added.", mockBot.SentMessages[0].Text)
	})

	t.Run("updates the expense being edited", func(t *testing.T) {
		backend := newFakeBackend(sampleExpenses()...)
		b := setupTestBot(t, backend)
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleEditCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/edit 2"))
		require.Contains(t, mockBot.LastSentMessage().Text, "Editing Expense #2")
		require.Contains(t, mockBot.LastSentMessage().Text, "<code>2.25</code>")

		b.handleSaveCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/save | 3"))

		require.Contains(t, mockBot.SentMessages[1].Text, "✅ Expense updated.")
		s := b.sessions.Get(testChatID).Snapshot()
		require.Nil(t, s.EditingID)
		require.Equal(t, []string{"Coffee", "Bus"}, []string{s.Expenses[0].Name, s.Expenses[1].Name})
		require.InDelta(t, 3.0, s.Expenses[1].Amount, 1e-9)
	})

	t.Run("server failure leaves the list alone", func(t *testing.T) {
		backend := newFakeBackend()
		backend.saveErr = errBackendDown
		b := setupTestBot(t, backend)
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleSaveCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/save Lunch | 12 | Food"))

		require.Contains(t, mockBot.LastSentMessage().Text, session.MsgSaveFailed)
		require.Empty(t, b.sessions.Get(testChatID).Snapshot().Expenses)
	})
}

func TestHandleEditCancelDeleteCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("edit rejects bad and unknown ids", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend(sampleExpenses()...))
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleEditCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/edit abc"))
		require.Contains(t, mockBot.LastSentMessage().Text, "Usage")

		b.handleEditCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/edit #99"))
		require.Contains(t, mockBot.LastSentMessage().Text, "Expense #99 not found")
		require.False(t, b.sessions.Get(testChatID).Snapshot().Editing())
	})

	t.Run("cancel leaves edit mode", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend(sampleExpenses()...))
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleEditCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/edit 1"))
		b.handleCancelCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/cancel"))
		require.Equal(t, "↩️ Edit cancelled.", mockBot.LastSentMessage().Text)

		b.handleCancelCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/cancel"))
		require.Equal(t, "↩️ Form cleared.", mockBot.LastSentMessage().Text)
	})

	t.Run("delete removes the expense", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend(sampleExpenses()...))
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleDeleteCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/delete 1"))

		require.Equal(t, "🗑️ Expense #1 deleted.", mockBot.LastSentMessage().Text)
		s := b.sessions.Get(testChatID).Snapshot()
		require.Len(t, s.Expenses, 1)
		require.Equal(t, int64(2), s.Expenses[0].ID)
	})

	t.Run("delete failure keeps the expense", func(t *testing.T) {
		backend := newFakeBackend(sampleExpenses()...)
		backend.deleteErr = errBackendDown
		b := setupTestBot(t, backend)
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleDeleteCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/delete 1"))

		require.Equal(t, "❌ "+session.MsgDeleteFailed, mockBot.LastSentMessage().Text)
		require.Len(t, b.sessions.Get(testChatID).Snapshot().Expenses, 2)
	})
}

func TestHandleSuggestCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend())
		mockBot := mocks.NewMockBot()
		b.handleSuggestCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/suggest Coffee"))
		require.Contains(t, mockBot.LastSentMessage().Text, "not configured")
	})

	t.Run("offers used categories first", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend(append(sampleExpenses(), appmodels.Expense{ID: 3, Name: "Misc", Amount: 1})...))
		suggester := &fakeSuggester{suggestion: &gemini.Suggestion{Category: "Food", Confidence: 0.9, Reasoning: "a drink"}}
		b.suggester = suggester
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleSuggestCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/suggest Latte"))

		require.Equal(t, "Latte", suggester.gotName)
		require.Equal(t, []string{"Food", "Transport"}, suggester.gotCategories[:2])
		require.NotContains(t, suggester.gotCategories, "Uncategorized")
		msg := mockBot.LastSentMessage()
		require.Contains(t, msg.Text, "<b>Food</b> (90% confident)")
		require.Contains(t, msg.Text, "/save Latte | &lt;amount&gt; | Food")
	})

	t.Run("falls back to the form name", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend())
		suggester := &fakeSuggester{suggestion: &gemini.Suggestion{Category: "Transport", Confidence: 0.5}}
		b.suggester = suggester
		loginTestChat(t, b)
		b.sessions.Get(testChatID).SetExpenseForm(session.ExpenseForm{Name: "Taxi"})
		mockBot := mocks.NewMockBot()

		b.handleSuggestCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/suggest"))

		require.Equal(t, "Taxi", suggester.gotName)
	})

	t.Run("suggester error", func(t *testing.T) {
		b := setupTestBot(t, newFakeBackend())
		b.suggester = &fakeSuggester{err: errBackendDown}
		loginTestChat(t, b)
		mockBot := mocks.NewMockBot()

		b.handleSuggestCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/suggest Taxi"))

		require.Contains(t, mockBot.LastSentMessage().Text, "Couldn't suggest")
	})
}
