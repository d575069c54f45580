package mocks

import (
	"github.com/go-telegram/bot/models"
)

// Defaults used by the builder when no user is given.
const (
	DefaultUsername  = "testuser"
	DefaultFirstName = "Test"
)

// UpdateBuilder builds Update values for handler tests.
type UpdateBuilder struct {
	update *models.Update
}

// NewUpdateBuilder starts an empty update.
func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{update: &models.Update{}}
}

func testUser(userID int64) models.User {
	return models.User{
		ID:        userID,
		FirstName: DefaultFirstName,
		Username:  DefaultUsername,
	}
}

func privateChat(chatID int64) models.Chat {
	return models.Chat{ID: chatID, Type: "private"}
}

// WithMessage sets a text message from userID in chatID.
func (b *UpdateBuilder) WithMessage(chatID, userID int64, text string) *UpdateBuilder {
	from := testUser(userID)
	b.update.Message = &models.Message{
		ID:   1,
		Chat: privateChat(chatID),
		From: &from,
		Text: text,
	}
	return b
}

// WithMessageID overrides the message ID.
func (b *UpdateBuilder) WithMessageID(messageID int) *UpdateBuilder {
	if b.update.Message != nil {
		b.update.Message.ID = messageID
	}
	return b
}

// WithFrom replaces the sender on the message or callback query.
func (b *UpdateBuilder) WithFrom(userID int64, username, firstName string) *UpdateBuilder {
	user := models.User{ID: userID, Username: username, FirstName: firstName}
	if b.update.Message != nil {
		b.update.Message.From = &user
	}
	if b.update.EditedMessage != nil {
		b.update.EditedMessage.From = &user
	}
	if b.update.CallbackQuery != nil {
		b.update.CallbackQuery.From = user
	}
	return b
}

// WithCallbackQuery sets an inline button press on messageID.
func (b *UpdateBuilder) WithCallbackQuery(callbackID string, chatID, userID int64, messageID int, data string) *UpdateBuilder {
	b.update.CallbackQuery = &models.CallbackQuery{
		ID:   callbackID,
		From: testUser(userID),
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{
				ID:   messageID,
				Chat: privateChat(chatID),
			},
		},
		Data: data,
	}
	return b
}

// WithEditedMessage sets an edited text message.
func (b *UpdateBuilder) WithEditedMessage(chatID, userID int64, text string) *UpdateBuilder {
	from := testUser(userID)
	b.update.EditedMessage = &models.Message{
		ID:   1,
		Chat: privateChat(chatID),
		From: &from,
		Text: text,
	}
	return b
}

// Build returns the update.
func (b *UpdateBuilder) Build() *models.Update {
	return b.update
}

// CommandUpdate is a text message update, typically a /command.
func CommandUpdate(chatID, userID int64, text string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, text).Build()
}

// CallbackQueryUpdate is an inline button press update.
func CallbackQueryUpdate(chatID, userID int64, messageID int, data string) *models.Update {
	return NewUpdateBuilder().
		WithCallbackQuery("callback-query-id", chatID, userID, messageID, data).
		Build()
}
