// Package telegram adapts the Bot API library to the bot: menus with inline
// keyboards, callback answers and update delivery.
package telegram

import (
	"context"
	"fmt"
	"locals-bot/domain"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"
)

const DefaultAPIURL = "https://api.telegram.org"

var allowedUpdates = []string{"message", "callback_query"}

// IsNotModified reports an edit that would leave the message unchanged.
func IsNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// UpdateHandler receives the updates fetched by Listen, one at a time.
type UpdateHandler func(ctx context.Context, update *models.Update)

type Client struct {
	bot   *bot.Bot
	token string
	log   *slog.Logger

	mu      sync.RWMutex
	handler UpdateHandler
}

// NewClient does not call the API. pollTimeout bounds a getUpdates long poll,
// requestTimeout is added on top of it for the HTTP round trip.
func NewClient(baseURL, token string, requestTimeout, pollTimeout time.Duration, log *slog.Logger) (*Client, error) {
	c := &Client{token: token, log: log}
	opts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithNotAsyncHandlers(),
		bot.WithHTTPClient(pollTimeout, &http.Client{Timeout: pollTimeout + requestTimeout}),
		bot.WithDefaultHandler(c.deliver),
		bot.WithErrorsHandler(func(err error) {
			log.Warn("Polling updates failed", "error", c.redact(err))
		}),
	}
	if baseURL != "" {
		opts = append(opts, bot.WithServerURL(strings.TrimSuffix(baseURL, "/")))
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram client: %w", c.redact(err))
	}
	c.bot = b
	return c, nil
}

// redactedError keeps the bot token out of messages that carry the request URL.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func (c *Client) redact(err error) error {
	if err == nil || c.token == "" || !strings.Contains(err.Error(), c.token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), c.token, "<token>"), err: err}
}

func (c *Client) fail(method string, err error) error {
	return fmt.Errorf("telegram %s: %w", method, c.redact(err))
}

func markup(keyboard domain.Keyboard) models.ReplyMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	rows := lo.Map(keyboard, func(row []domain.Button, _ int) []models.InlineKeyboardButton {
		return lo.Map(row, func(b domain.Button, _ int) models.InlineKeyboardButton {
			return models.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data}
		})
	})
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (c *Client) Send(ctx context.Context, chatID int64, text string, keyboard domain.Keyboard) (domain.MessageID, error) {
	sent, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: markup(keyboard),
	})
	if err != nil {
		return 0, c.fail("sendMessage", err)
	}
	return domain.MessageID(sent.ID), nil
}

// Edit replaces text and keyboard of a message. An edit leaving the message
// unchanged is not an error.
func (c *Client) Edit(ctx context.Context, chatID int64, messageID domain.MessageID, text string, keyboard domain.Keyboard) error {
	_, err := c.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   int(messageID),
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: markup(keyboard),
	})
	if IsNotModified(err) {
		c.log.Debug("Edit skipped, message not modified", "chat_id", chatID, "message_id", messageID)
		return nil
	}
	if err != nil {
		return c.fail("editMessageText", err)
	}
	return nil
}

func (c *Client) Ack(ctx context.Context, callbackID string, alert string) error {
	_, err := c.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            alert,
		ShowAlert:       alert != "",
	})
	if err != nil {
		return c.fail("answerCallbackQuery", err)
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID domain.MessageID) error {
	_, err := c.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: int(messageID)})
	if err != nil {
		return c.fail("deleteMessage", err)
	}
	return nil
}

func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	_, err := c.bot.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:            webhookURL,
		SecretToken:    secret,
		AllowedUpdates: allowedUpdates,
	})
	if err != nil {
		return c.fail("setWebhook", err)
	}
	return nil
}

// DeleteWebhook switches the bot back to getUpdates delivery.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := c.bot.DeleteWebhook(ctx, &bot.DeleteWebhookParams{})
	if err != nil {
		return c.fail("deleteWebhook", err)
	}
	return nil
}

// Listen long polls until ctx is done and hands every update to handle in
// arrival order. The offset is kept by the client, so a later Listen resumes
// after the last update delivered. Failed polls are retried by the library,
// honoring retry_after.
func (c *Client) Listen(ctx context.Context, handle UpdateHandler) {
	c.mu.Lock()
	c.handler = handle
	c.mu.Unlock()
	c.bot.Start(ctx)
}

func (c *Client) deliver(ctx context.Context, _ *bot.Bot, update *models.Update) {
	c.mu.RLock()
	handle := c.handler
	c.mu.RUnlock()
	if handle == nil {
		c.log.Debug("Update received outside Listen", "update_id", update.ID)
		return
	}
	handle(ctx, update)
}
