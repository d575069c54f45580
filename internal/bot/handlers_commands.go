package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/expense-client/internal/gemini"
	"gitlab.com/yelinaung/expense-client/internal/logger"
	appmodels "gitlab.com/yelinaung/expense-client/internal/models"
	"gitlab.com/yelinaung/expense-client/internal/session"
)

const helpText = `📚 <b>Available Commands</b>

<b>Account:</b>
• <code>/login &lt;username&gt; &lt;password&gt;</code> - Log in
• <code>/register &lt;username&gt; &lt;password&gt;</code> - Create an account
• <code>/mode</code> - Switch between login and register for /auth
• <code>/auth &lt;username&gt; &lt;password&gt;</code> - Log in or register, per /mode
• <code>/logout</code> - Log out and forget this chat's expenses

<b>Expenses:</b>
• <code>/list</code> - Show your expenses and total
• <code>/refresh</code> - Reload expenses from the server
• <code>/save name | amount | category</code> - Add an expense, or save the one being edited
• <code>/edit &lt;id&gt;</code> - Start editing an expense
• <code>/cancel</code> - Stop editing
• <code>/delete &lt;id&gt;</code> - Delete an expense

<b>Extras:</b>
• <code>/chart</code> - Pie chart of spending by category
• <code>/export</code> - Download your expenses as CSV
• <code>/suggest &lt;name&gt;</code> - Suggest a category for an expense name

Messages containing your password are deleted after reading.`

// sendHTML sends an HTML message, attaching markup only when non-nil.
func sendHTML(ctx context.Context, tg TelegramAPI, chatID int64, text string, markup *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := tg.SendMessage(ctx, params); err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to send message")
	}
}

// sendList sends the list view of ctl with its action buttons.
func sendList(ctx context.Context, tg TelegramAPI, chatID int64, ctl *session.Controller) {
	s := ctl.Snapshot()
	sendHTML(ctx, tg, chatID, formatExpenseList(s), listKeyboard(s.Expenses))
}

// loggedInSession returns the chat's controller, or nil after telling the
// user to log in.
func (b *Bot) loggedInSession(ctx context.Context, tg TelegramAPI, chatID int64) *session.Controller {
	ctl := b.sessions.Get(chatID)
	if !ctl.LoggedIn() {
		sendHTML(ctx, tg, chatID, loginPromptText, nil)
		return nil
	}
	return ctl
}

func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	greeting := ""
	if update.Message.From != nil && update.Message.From.FirstName != "" {
		greeting = ", " + escapeHTML(update.Message.From.FirstName)
	}

	text := fmt.Sprintf(`👋 Welcome%s!

I keep track of your expenses on the expense server.

<b>Quick Start:</b>
• Log in: <code>/login alice secret</code>
• Add: <code>/save Coffee | 4.50 | Food</code>
• Review: <code>/list</code>

Use /help to see all available commands.`, greeting)

	sendHTML(ctx, tg, update.Message.Chat.ID, text, nil)
}

func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	sendHTML(ctx, tg, update.Message.Chat.ID, helpText, nil)
}

func (b *Bot) handleLogin(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCredentialsCore(ctx, tgBot, update, "/login", session.ModeLogin)
}

func (b *Bot) handleRegister(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCredentialsCore(ctx, tgBot, update, "/register", session.ModeRegister)
}

// handleCredentialsCore authenticates with "<username> <password>" in the
// given mode. The message is deleted because it carries the password.
func (b *Bot) handleCredentialsCore(ctx context.Context, tg TelegramAPI, update *models.Update, command string, mode session.Mode) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	args := extractCommandArgs(update.Message.Text, command)
	if args != "" {
		deleteMessage(ctx, tg, chatID, update.Message.ID)
	}

	ctl := b.sessions.Get(chatID)
	if ctl.LoggedIn() {
		sendHTML(ctx, tg, chatID, loggedInText, nil)
		return
	}

	creds := parseCredentials(args)
	if err := ctl.Authenticate(ctx, creds, mode); err != nil {
		text := errorText(err)
		if args == "" {
			text += fmt.Sprintf("\n\nUsage: <code>%s &lt;username&gt; &lt;password&gt;</code>", command)
		}
		sendHTML(ctx, tg, chatID, text, nil)
		return
	}

	b.sendWelcomeBack(ctx, tg, chatID, ctl)
}

func (b *Bot) handleAuth(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAuthCore(ctx, tgBot, update)
}

// handleAuthCore fills the auth form and submits it in the current mode.
func (b *Bot) handleAuthCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	args := extractCommandArgs(update.Message.Text, "/auth")
	if args != "" {
		deleteMessage(ctx, tg, chatID, update.Message.ID)
	}

	ctl := b.sessions.Get(chatID)
	if ctl.LoggedIn() {
		sendHTML(ctx, tg, chatID, loggedInText, nil)
		return
	}

	creds := parseCredentials(args)
	ctl.SetAuthForm(session.AuthForm{Username: creds.Username, Password: creds.Password})
	if err := ctl.SubmitAuth(ctx); err != nil {
		sendHTML(ctx, tg, chatID, errorText(err), nil)
		return
	}

	b.sendWelcomeBack(ctx, tg, chatID, ctl)
}

func (b *Bot) sendWelcomeBack(ctx context.Context, tg TelegramAPI, chatID int64, ctl *session.Controller) {
	logger.Log.Info().Str("chat_hash", logger.HashChatID(chatID)).Msg("Chat logged in")
	sendHTML(ctx, tg, chatID, "✅ Logged in.", nil)
	sendList(ctx, tg, chatID, ctl)
}

// parseCredentials reads "<username> <password>"; the password may contain spaces.
func parseCredentials(args string) appmodels.Credentials {
	username, password, _ := strings.Cut(strings.TrimSpace(args), " ")
	return appmodels.Credentials{
		Username: strings.TrimSpace(username),
		Password: strings.TrimSpace(password),
	}
}

func deleteMessage(ctx context.Context, tg TelegramAPI, chatID int64, messageID int) {
	_, err := tg.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: messageID})
	if err != nil {
		logger.Log.Warn().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to delete credentials message")
	}
}

func (b *Bot) handleMode(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleModeCore(ctx, tgBot, update)
}

func (b *Bot) handleModeCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	ctl := b.sessions.Get(chatID)
	if ctl.LoggedIn() {
		sendHTML(ctx, tg, chatID, loggedInText, nil)
		return
	}

	mode := ctl.ToggleMode()
	sendHTML(ctx, tg, chatID, fmt.Sprintf(
		"🔁 Mode: <b>%s</b>. Send <code>/auth &lt;username&gt; &lt;password&gt;</code> to %s.",
		mode, mode), nil)
}

func (b *Bot) handleLogout(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleLogoutCore(ctx, tgBot, update)
}

func (b *Bot) handleLogoutCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	b.sessions.Get(chatID).Logout()
	logger.Log.Info().Str("chat_hash", logger.HashChatID(chatID)).Msg("Chat logged out")
	sendHTML(ctx, tg, chatID, "👋 Logged out.", nil)
}

func (b *Bot) handleList(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleListCore(ctx, tgBot, update)
}

func (b *Bot) handleListCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	ctl := b.loggedInSession(ctx, tg, chatID)
	if ctl == nil {
		return
	}
	sendList(ctx, tg, chatID, ctl)
}

func (b *Bot) handleRefresh(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleRefreshCore(ctx, tgBot, update)
}

func (b *Bot) handleRefreshCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	ctl := b.loggedInSession(ctx, tg, chatID)
	if ctl == nil {
		return
	}

	if err := ctl.LoadExpenses(ctx); err != nil {
		sendHTML(ctx, tg, chatID, errorText(err), nil)
		return
	}
	sendList(ctx, tg, chatID, ctl)
}

func (b *Bot) handleSave(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleSaveCore(ctx, tgBot, update)
}

// handleSaveCore writes the given fields onto the form and submits it.
func (b *Bot) handleSaveCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	ctl := b.loggedInSession(ctx, tg, chatID)
	if ctl == nil {
		return
	}

	before := ctl.Snapshot()
	form := parseSaveArgs(extractCommandArgs(update.Message.Text, "/save"), before.Form)
	ctl.SetExpenseForm(form)

	if err := ctl.SubmitForm(ctx); err != nil {
		sendHTML(ctx, tg, chatID, errorText(err)+"\n\n"+formatForm(form, before.EditingID), nil)
		return
	}

	verb := "added"
	if before.EditingID != nil {
		verb = "updated"
	}
	sendHTML(ctx, tg, chatID, "✅ Expense "+verb+".", nil)
	sendList(ctx, tg, chatID, ctl)
}

func (b *Bot) handleEdit(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleEditCore(ctx, tgBot, update)
}

func (b *Bot) handleEditCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	ctl := b.loggedInSession(ctx, tg, chatID)
	if ctl == nil {
		return
	}

	id, ok := parseExpenseID(extractCommandArgs(update.Message.Text, "/edit"))
	if !ok {
		sendHTML(ctx, tg, chatID, "❌ Usage: <code>/edit &lt;id&gt;</code>", nil)
		return
	}

	b.startEditCore(ctx, tg, chatID, ctl, id)
}

// startEditCore puts expense id into the form and shows it.
func (b *Bot) startEditCore(ctx context.Context, tg TelegramAPI, chatID int64, ctl *session.Controller, id int64) {
	expense, ok := ctl.FindExpense(id)
	if !ok {
		sendHTML(ctx, tg, chatID, fmt.Sprintf("❌ Expense #%d not found. Use /list to see your expenses.", id), nil)
		return
	}

	ctl.EnterEditMode(expense)
	s := ctl.Snapshot()
	sendHTML(ctx, tg, chatID, formatForm(s.Form, s.EditingID)+"\n\nUse /cancel to stop editing.", nil)
}

func (b *Bot) handleCancel(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCancelCore(ctx, tgBot, update)
}

func (b *Bot) handleCancelCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	ctl := b.loggedInSession(ctx, tg, chatID)
	if ctl == nil {
		return
	}

	wasEditing := ctl.Snapshot().Editing()
	ctl.CancelEdit()
	if wasEditing {
		sendHTML(ctx, tg, chatID, "↩️ Edit cancelled.", nil)
		return
	}
	sendHTML(ctx, tg, chatID, "↩️ Form cleared.", nil)
}

func (b *Bot) handleDelete(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteCore(ctx, tgBot, update)
}

func (b *Bot) handleDeleteCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	ctl := b.loggedInSession(ctx, tg, chatID)
	if ctl == nil {
		return
	}

	id, ok := parseExpenseID(extractCommandArgs(update.Message.Text, "/delete"))
	if !ok {
		sendHTML(ctx, tg, chatID, "❌ Usage: <code>/delete &lt;id&gt;</code>", nil)
		return
	}

	if err := ctl.DeleteExpense(ctx, id); err != nil {
		sendHTML(ctx, tg, chatID, errorText(err), nil)
		return
	}
	sendHTML(ctx, tg, chatID, fmt.Sprintf("🗑️ Expense #%d deleted.", id), nil)
}

func (b *Bot) handleSuggest(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleSuggestCore(ctx, tgBot, update)
}

// handleSuggestCore asks Gemini which category fits an expense name, choosing
// among the categories already used plus the defaults.
func (b *Bot) handleSuggestCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	if b.suggester == nil {
		sendHTML(ctx, tg, chatID, "💡 Category suggestions are not configured.", nil)
		return
	}

	ctl := b.loggedInSession(ctx, tg, chatID)
	if ctl == nil {
		return
	}

	name := extractCommandArgs(update.Message.Text, "/suggest")
	if name == "" {
		name = ctl.Snapshot().Form.Name
	}
	if name == "" {
		sendHTML(ctx, tg, chatID, "❌ Usage: <code>/suggest &lt;expense name&gt;</code>", nil)
		return
	}

	used, _ := appmodels.TotalsByCategory(ctl.Snapshot().Expenses)
	suggestion, err := b.suggester.SuggestCategory(ctx, name, candidatesFor(used))
	if err != nil {
		logger.Log.Warn().Err(err).Str("name", logger.SanitizeName(name)).Msg("Category suggestion failed")
		sendHTML(ctx, tg, chatID, "❌ Couldn't suggest a category right now. Please try again.", nil)
		return
	}

	sendHTML(ctx, tg, chatID, fmt.Sprintf(
		"💡 <b>%s</b> (%.0f%% confident)\n%s\n\nUse it: <code>/save %s | &lt;amount&gt; | %s</code>",
		escapeHTML(suggestion.Category), suggestion.Confidence*100, escapeHTML(suggestion.Reasoning),
		escapeHTML(name), escapeHTML(suggestion.Category)), nil)
}

// candidatesFor offers the chat's categories first, then the defaults.
func candidatesFor(used []string) []string {
	named := make([]string, 0, len(used))
	for _, c := range used {
		if c != appmodels.UncategorizedName {
			named = append(named, c)
		}
	}
	return gemini.Candidates(named)
}
