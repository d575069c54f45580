// Package bot provides the Telegram front-end for the expense client.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/expense-client/internal/config"
	"gitlab.com/yelinaung/expense-client/internal/gemini"
	"gitlab.com/yelinaung/expense-client/internal/logger"
	"gitlab.com/yelinaung/expense-client/internal/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "gitlab.com/yelinaung/expense-client/internal/bot"

// CategorySuggester proposes a category for an expense name.
type CategorySuggester interface {
	SuggestCategory(ctx context.Context, name string, categories []string) (*gemini.Suggestion, error)
}

// Bot wraps the Telegram bot with one session per chat.
type Bot struct {
	bot       *bot.Bot
	cfg       *config.Config
	sessions  *SessionStore
	suggester CategorySuggester

	tracer  trace.Tracer
	updates metric.Int64Counter
}

// New creates a Bot. suggester may be nil, which disables /suggest.
func New(cfg *config.Config, api session.API, suggester CategorySuggester) (*Bot, error) {
	b := newBot(cfg, api, suggester)

	opts := []bot.Option{
		bot.WithMiddlewares(b.tracingMiddleware, b.whitelistMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.registerHandlers()

	return b, nil
}

func newBot(cfg *config.Config, api session.API, suggester CategorySuggester) *Bot {
	updates, err := otel.Meter(instrumentationName).Int64Counter(
		"telegram.updates",
		metric.WithDescription("Telegram updates handled by command"),
	)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create update counter")
	}

	return &Bot{
		cfg:       cfg,
		sessions:  NewSessionStore(api),
		suggester: suggester,
		tracer:    otel.Tracer(instrumentationName),
		updates:   updates,
	}
}

// Start begins polling for updates and blocks until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

func (b *Bot) registerHandlers() {
	commands := []struct {
		pattern string
		handler bot.HandlerFunc
	}{
		{"/start", b.handleStart},
		{"/help", b.handleHelp},
		{"/login", b.handleLogin},
		{"/register", b.handleRegister},
		{"/auth", b.handleAuth},
		{"/mode", b.handleMode},
		{"/list", b.handleList},
		{"/refresh", b.handleRefresh},
		{"/save", b.handleSave},
		{"/edit", b.handleEdit},
		{"/cancel", b.handleCancel},
		{"/delete", b.handleDelete},
		{"/logout", b.handleLogout},
		{"/chart", b.handleChart},
		{"/export", b.handleExport},
		{"/suggest", b.handleSuggest},
	}
	for _, c := range commands {
		b.bot.RegisterHandler(bot.HandlerTypeMessageText, c.pattern, bot.MatchTypePrefix, c.handler)
	}

	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, editExpensePrefix, bot.MatchTypePrefix, b.handleExpenseActionCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, deleteExpensePrefix, bot.MatchTypePrefix, b.handleExpenseActionCallback)
}

// tracingMiddleware wraps every update in a span and counts it.
func (b *Bot) tracingMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		command := commandName(update)
		ctx, span := b.tracer.Start(ctx, "telegram.update",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("telegram.command", command)),
		)
		defer span.End()

		if b.updates != nil {
			b.updates.Add(ctx, 1, metric.WithAttributes(attribute.String("command", command)))
		}

		next(ctx, tgBot, update)
	}
}

// whitelistMiddleware drops updates from users outside the whitelist.
func (b *Bot) whitelistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if !b.allowUpdateCore(ctx, tgBot, update) {
			return
		}
		next(ctx, tgBot, update)
	}
}

// allowUpdateCore reports whether update may be handled, telling blocked
// users so.
func (b *Bot) allowUpdateCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) bool {
	userID := extractUserID(update)
	if userID == 0 {
		return false
	}

	username := extractUsername(update)
	logUserAction(userID, username, update)

	if b.cfg.IsUserWhitelisted(userID, username) {
		return true
	}

	logger.Log.Warn().
		Str("user_hash", logger.HashUserID(userID)).
		Str("username_hash", logger.HashUsername(username)).
		Msg("Blocked non-whitelisted user")

	switch {
	case update.Message != nil:
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "⛔ Sorry, you are not authorized to use this bot.",
		})
	case update.CallbackQuery != nil:
		_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
			Text:            "⛔ Not authorized.",
			ShowAlert:       true,
		})
	}
	return false
}

// logUserAction logs which command a user ran. Message text is never logged
// because it can carry credentials.
func logUserAction(userID int64, username string, update *tgmodels.Update) {
	event := logger.Log.Info().
		Str("user_hash", logger.HashUserID(userID)).
		Str("username_hash", logger.HashUsername(username)).
		Str("command", commandName(update))

	switch {
	case update.Message != nil:
		event.Str("chat_hash", logger.HashChatID(update.Message.Chat.ID)).Msg("User input")
	case update.CallbackQuery != nil:
		event.Msg("Callback query")
	case update.EditedMessage != nil:
		event.Msg("Edited message")
	default:
		event.Msg("Update")
	}
}

// commandName returns the /command or callback action of update, or "text".
func commandName(update *tgmodels.Update) string {
	switch {
	case update.Message != nil:
		text := update.Message.Text
		if !strings.HasPrefix(text, "/") {
			return "text"
		}
		name, _, _ := strings.Cut(strings.Fields(text)[0], "@")
		return name
	case update.CallbackQuery != nil:
		data := update.CallbackQuery.Data
		if i := strings.LastIndex(data, "_"); i > 0 {
			return data[:i]
		}
		return data
	case update.EditedMessage != nil:
		return "edited"
	default:
		return "other"
	}
}

func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.Username
	}
	if update.EditedMessage != nil && update.EditedMessage.From != nil {
		return update.EditedMessage.From.Username
	}
	return ""
}

func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	if update.EditedMessage != nil && update.EditedMessage.From != nil {
		return update.EditedMessage.From.ID
	}
	return 0
}

// defaultHandler answers anything no command matched.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      "I didn't understand that. Use /help to see available commands.",
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send default response")
	}
}
