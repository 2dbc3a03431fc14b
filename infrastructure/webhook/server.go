// Package webhook receives Telegram updates pushed over HTTPS.
package webhook

import (
	"context"
	"crypto/subtle"
	stderrors "errors"
	"fmt"
	"locals-bot/contract"
	"locals-bot/errors"
	"locals-bot/infrastructure/telegram"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	DefaultPath  = "/telegram/webhook"
	SecretHeader = "X-Telegram-Bot-Api-Secret-Token"
)

type Server struct {
	echo            *echo.Echo
	addr            string
	secret          string
	dispatcher      contract.Dispatcher
	shutdownTimeout time.Duration
	log             *slog.Logger
}

func NewServer(addr, secret string, dispatcher contract.Dispatcher, shutdownTimeout time.Duration, log *slog.Logger) *Server {
	s := &Server{
		echo:            echo.New(),
		addr:            addr,
		secret:          secret,
		dispatcher:      dispatcher,
		shutdownTimeout: shutdownTimeout,
		log:             log,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURIPath: true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("Webhook request", "path", v.URIPath, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	s.echo.POST(DefaultPath, s.receive)
	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Webhook server listening", "addr", s.addr, "path", DefaultPath)
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("webhook server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) receive(c echo.Context) error {
	if s.secret != "" {
		got := c.Request().Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var update models.Update
	if err := c.Bind(&update); err != nil {
		s.log.Warn("Webhook payload rejected", "error", err)
		return c.NoContent(http.StatusBadRequest)
	}

	event, ok := telegram.ToEvent(&update)
	if !ok {
		return c.NoContent(http.StatusOK)
	}
	if err := s.dispatcher.Dispatch(c.Request().Context(), event); err != nil {
		if stderrors.Is(err, errors.ErrDispatcherClosed) {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		s.log.Error("Webhook dispatch failed", "update_id", update.ID, "error", err)
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusOK)
}
