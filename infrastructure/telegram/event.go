package telegram

import (
	"locals-bot/domain"
	"strings"

	"github.com/go-telegram/bot/models"
)

// commands the bot answers. Any other slash text reaches the conversation as
// plain text.
var commands = map[string]struct{}{
	"start": {},
	"help":  {},
}

// ToEvent converts an update to a domain event. Updates the bot does not
// handle (edits, channel posts, messages from bots) return false.
func ToEvent(update *models.Update) (domain.Event, bool) {
	switch {
	case update == nil:
		return domain.Event{}, false

	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		event := domain.Event{
			Kind:       domain.EventCallback,
			UserID:     q.From.ID,
			ChatID:     q.From.ID,
			From:       profile(q.From),
			Payload:    q.Data,
			CallbackID: q.ID,
		}
		switch {
		case q.Message.Message != nil:
			event.ChatID = q.Message.Message.Chat.ID
			event.MessageID = domain.MessageID(q.Message.Message.ID)
		case q.Message.InaccessibleMessage != nil:
			event.ChatID = q.Message.InaccessibleMessage.Chat.ID
			event.MessageID = domain.MessageID(q.Message.InaccessibleMessage.MessageID)
		}
		return event, true

	case update.Message != nil && update.Message.From != nil && !update.Message.From.IsBot:
		m := update.Message
		event := domain.Event{
			Kind:      domain.EventText,
			UserID:    m.From.ID,
			ChatID:    m.Chat.ID,
			From:      profile(*m.From),
			Payload:   m.Text,
			MessageID: domain.MessageID(m.ID),
		}
		if command, ok := parseCommand(m.Text); ok {
			event.Kind = domain.EventCommand
			event.Payload = command
		}
		if event.Kind == domain.EventText && strings.TrimSpace(event.Payload) == "" {
			return domain.Event{}, false
		}
		return event, true

	default:
		return domain.Event{}, false
	}
}

func profile(u models.User) domain.Profile {
	return domain.Profile{FirstName: u.FirstName, LastName: u.LastName, Username: u.Username}
}

// parseCommand returns "start" for "/start", "/start@SomeBot" or "/start payload".
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word, _, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	word, _, _ = strings.Cut(word, "@")
	word = strings.ToLower(word)
	_, known := commands[word]
	return word, known
}
