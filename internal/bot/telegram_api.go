package bot

import (
	tgbot "github.com/go-telegram/bot"
	"gitlab.com/yelinaung/expense-client/internal/bot/mocks"
)

// TelegramAPI is the Telegram surface the handler cores use.
type TelegramAPI = mocks.TelegramAPI

var _ TelegramAPI = (*tgbot.Bot)(nil)
