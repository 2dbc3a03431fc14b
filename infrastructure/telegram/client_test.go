package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"locals-bot/domain"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
)

const testToken = "123:secret"

type recordedCall struct {
	method string
	path   string
	params map[string]string
}

// botAPI is a fake Bot API server. reply picks the response body of each call.
type botAPI struct {
	mu    sync.Mutex
	calls []recordedCall
	reply func(call recordedCall, n int) string
}

func (a *botAPI) recorded() []recordedCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]recordedCall(nil), a.calls...)
}

// readParams accepts both multipart forms and JSON bodies. Non-string JSON
// values are kept in their JSON form, as a form field would carry them.
func readParams(t *testing.T, r *http.Request) map[string]string {
	params := map[string]string{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for key, values := range r.MultipartForm.Value {
			params[key] = values[0]
		}
	default:
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if len(raw) == 0 {
			return params
		}
		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &body))
		for key, value := range body {
			var s string
			if json.Unmarshal(value, &s) == nil {
				params[key] = s
				continue
			}
			params[key] = string(value)
		}
	}
	return params
}

func newBotAPI(t *testing.T, reply func(call recordedCall, n int) string) (*Client, *botAPI) {
	t.Helper()
	api := &botAPI{reply: reply}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{method: path.Base(r.URL.Path), path: r.URL.Path, params: readParams(t, r)}
		api.mu.Lock()
		api.calls = append(api.calls, call)
		n := len(api.calls)
		api.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, api.reply(call, n))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, testToken, time.Second, 2*time.Second, slog.Default())
	require.NoError(t, err)
	return client, api
}

func always(body string) func(recordedCall, int) string {
	return func(recordedCall, int) string { return body }
}

func TestClient_Send(t *testing.T) {
	req := require.New(t)
	client, api := newBotAPI(t, always(`{"ok":true,"result":{"message_id":321,"date":1,"chat":{"id":5,"type":"private"}}}`))
	keyboard := domain.Keyboard{domain.Row(domain.Button{Text: "📁 My locals", Data: "my_locals"})}

	id, err := client.Send(context.Background(), 5, "*hi*", keyboard)

	req.NoError(err)
	req.Equal(domain.MessageID(321), id)
	calls := api.recorded()
	req.Len(calls, 1)
	req.Equal("/bot"+testToken+"/sendMessage", calls[0].path)
	req.Equal("Markdown", calls[0].params["parse_mode"])
	req.Equal("5", calls[0].params["chat_id"])
	req.Equal("*hi*", calls[0].params["text"])
	var sentMarkup models.InlineKeyboardMarkup
	req.NoError(json.Unmarshal([]byte(calls[0].params["reply_markup"]), &sentMarkup))
	req.Len(sentMarkup.InlineKeyboard, 1)
	req.Len(sentMarkup.InlineKeyboard[0], 1)
	req.Equal("📁 My locals", sentMarkup.InlineKeyboard[0][0].Text)
	req.Equal("my_locals", sentMarkup.InlineKeyboard[0][0].CallbackData)
}

func TestClient_SendWithoutKeyboard(t *testing.T) {
	req := require.New(t)
	client, api := newBotAPI(t, always(`{"ok":true,"result":{"message_id":1,"date":1,"chat":{"id":5,"type":"private"}}}`))

	_, err := client.Send(context.Background(), 5, "plain", nil)

	req.NoError(err)
	req.NotContains(api.recorded()[0].params, "reply_markup")
}

func TestClient_EditNotModifiedIsNotAnError(t *testing.T) {
	req := require.New(t)
	client, api := newBotAPI(t, always(`{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`))

	req.NoError(client.Edit(context.Background(), 5, 9, "same", nil))
	req.Equal("editMessageText", api.recorded()[0].method)
	req.Equal("9", api.recorded()[0].params["message_id"])
}

func TestClient_APIError(t *testing.T) {
	req := require.New(t)
	client, _ := newBotAPI(t, always(`{"ok":false,"error_code":400,"description":"Bad Request: message to delete not found"}`))

	err := client.DeleteMessage(context.Background(), 5, 9)

	req.Error(err)
	req.Contains(err.Error(), "deleteMessage")
	req.Contains(err.Error(), "message to delete not found")
	req.False(IsNotModified(err))
}

func TestClient_AckShowsAlertOnlyWithText(t *testing.T) {
	req := require.New(t)
	client, api := newBotAPI(t, always(`{"ok":true,"result":true}`))
	ctx := context.Background()

	req.NoError(client.Ack(ctx, "cb", ""))
	req.NoError(client.Ack(ctx, "cb", "careful"))

	calls := api.recorded()
	req.Equal("cb", calls[0].params["callback_query_id"])
	req.NotEqual("true", calls[0].params["show_alert"])
	req.Equal("true", calls[1].params["show_alert"])
	req.Equal("careful", calls[1].params["text"])
}

func TestClient_SetWebhook(t *testing.T) {
	req := require.New(t)
	client, api := newBotAPI(t, always(`{"ok":true,"result":true}`))

	req.NoError(client.SetWebhook(context.Background(), "https://bot.example.com/telegram/webhook", "s3cret"))

	call := api.recorded()[0]
	req.Equal("setWebhook", call.method)
	req.Equal("https://bot.example.com/telegram/webhook", call.params["url"])
	req.Equal("s3cret", call.params["secret_token"])
	req.JSONEq(`["message","callback_query"]`, call.params["allowed_updates"])
}

func TestClient_ListenDeliversUpdatesInOrder(t *testing.T) {
	req := require.New(t)
	// Given a server holding two updates, then nothing
	client, _ := newBotAPI(t, func(call recordedCall, _ int) string {
		offset, _ := strconv.Atoi(call.params["offset"])
		if call.method != "getUpdates" || offset > 8 {
			return `{"ok":true,"result":[]}`
		}
		return `{"ok":true,"result":[
			{"update_id":8,"message":{"message_id":1,"date":1,"from":{"id":7,"first_name":"Ada"},"chat":{"id":7,"type":"private"},"text":"first"}},
			{"update_id":9,"callback_query":{"id":"q","from":{"id":7,"first_name":"Ada"},"chat_instance":"c","data":"top_up"}}
		]}`
	})

	// When the client listens
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	var seen []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.Listen(ctx, func(_ context.Context, update *models.Update) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, fmt.Sprint(update.ID))
		})
	}()

	// Then both updates arrive once, in order, and the offset moves past them
	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	req.Equal([]string{"8", "9"}, seen)
}

func TestClient_TransportErrorHidesToken(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	client, err := NewClient(server.URL, testToken, time.Second, 2*time.Second, slog.Default())
	req.NoError(err)

	err = client.DeleteWebhook(context.Background())

	req.Error(err)
	req.NotContains(err.Error(), testToken)
}
