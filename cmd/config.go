package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	TelegramToken        string        `env:"TELEGRAM_BOT_TOKEN,required=true" validate:"required"`
	TelegramAPIURL       string        `env:"TELEGRAM_API_URL,default=https://api.telegram.org" validate:"required,url"`
	DatabasePath         string        `env:"DATABASE_PATH,default=locals.db" validate:"required"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,default=sessions" validate:"required"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO" validate:"required"`
	NumberOfWorkers      int           `env:"NUMBER_OF_WORKERS,default=8" validate:"min=1,max=1024"`
	BufferSize           int           `env:"BUFFER_SIZE,default=64" validate:"min=0"`
	HandlerTimeout       time.Duration `env:"HANDLER_TIMEOUT,default=15s" validate:"gt=0"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT,default=10s" validate:"gt=0"`
	PollTimeout          time.Duration `env:"POLL_TIMEOUT,default=30s" validate:"gte=2s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=20s" validate:"gt=0"`
	WebhookAddr          string        `env:"WEBHOOK_ADDR,default=:8080"`
	WebhookURL           string        `env:"WEBHOOK_URL"`
	WebhookSecret        string        `env:"WEBHOOK_SECRET"`
	AddressFirstOctet    int           `env:"ADDRESS_FIRST_OCTET,default=10" validate:"min=1,max=255"`
	MaxBlockAttempts     int           `env:"MAX_BLOCK_ATTEMPTS,default=32" validate:"min=1"`
	MaxAllocationRetries int           `env:"MAX_ALLOCATION_RETRIES,default=3" validate:"min=1"`
}

var validate = validator.New()

// WebhookMode reports whether updates are pushed to us instead of polled.
func (c Config) WebhookMode() bool {
	return c.WebhookURL != ""
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.WebhookMode() {
		u, err := url.Parse(c.WebhookURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("WEBHOOK_URL must be an absolute https URL, got %q", c.WebhookURL)
		}
	}
	return nil
}
