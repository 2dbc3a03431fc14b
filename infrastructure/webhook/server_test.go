package webhook

import (
	"context"
	stderrors "errors"
	"locals-bot/domain"
	"locals-bot/errors"
	"locals-bot/mocks"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const startUpdate = `{"update_id":1,"message":{"message_id":4,"from":{"id":7,"first_name":"Ada"},"chat":{"id":7},"text":"/start"}}`

func post(t *testing.T, server *Server, secret, body string) int {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, DefaultPath, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if secret != "" {
		r.Header.Set(SecretHeader, secret)
	}
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, r)
	return w.Code
}

func TestServer_DispatchesUpdate(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dispatcher := mocks.NewMockDispatcher(ctrl)
	server := NewServer(":0", "s3cret", dispatcher, time.Second, slog.Default())

	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event domain.Event) error {
			req.Equal(domain.EventCommand, event.Kind)
			req.Equal("start", event.Payload)
			return nil
		})

	req.Equal(http.StatusOK, post(t, server, "s3cret", startUpdate))
}

func TestServer_RejectsWrongSecret(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	server := NewServer(":0", "s3cret", mocks.NewMockDispatcher(ctrl), time.Second, slog.Default())

	req.Equal(http.StatusUnauthorized, post(t, server, "guess", startUpdate))
	req.Equal(http.StatusUnauthorized, post(t, server, "", startUpdate))
}

func TestServer_BadPayload(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	server := NewServer(":0", "", mocks.NewMockDispatcher(ctrl), time.Second, slog.Default())

	req.Equal(http.StatusBadRequest, post(t, server, "", `{"update_id":`))
}

func TestServer_IgnoredUpdateIsAcknowledged(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	server := NewServer(":0", "", mocks.NewMockDispatcher(ctrl), time.Second, slog.Default())

	req.Equal(http.StatusOK, post(t, server, "", `{"update_id":2}`))
}

func TestServer_DispatchFailures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dispatcher := mocks.NewMockDispatcher(ctrl)
	server := NewServer(":0", "", dispatcher, time.Second, slog.Default())

	gomock.InOrder(
		dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.ErrDispatcherClosed),
		dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(stderrors.New("boom")),
	)

	req.Equal(http.StatusServiceUnavailable, post(t, server, "", startUpdate))
	req.Equal(http.StatusInternalServerError, post(t, server, "", startUpdate))
}

func TestServer_RunStopsWithContext(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	server := NewServer("127.0.0.1:0", "", mocks.NewMockDispatcher(ctrl), time.Second, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("server did not stop")
	}
}
