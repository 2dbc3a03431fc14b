package main

import (
	"testing"

	env "github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.NoError(config.Validate())
	req.False(config.WebhookMode())
	req.Equal("locals.db", config.DatabasePath)
	req.Equal(8, config.NumberOfWorkers)
	req.Equal(10, config.AddressFirstOctet)
	req.Equal(32, config.MaxBlockAttempts)
}

func TestConfig_WebhookMustBeHTTPS(t *testing.T) {
	req := require.New(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("WEBHOOK_URL", "http://bot.example.com/telegram/webhook")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.True(config.WebhookMode())
	req.Error(config.Validate())

	config.WebhookURL = "https://bot.example.com/telegram/webhook"
	req.NoError(config.Validate())
}

func TestConfig_RejectsOutOfRangeOctet(t *testing.T) {
	req := require.New(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADDRESS_FIRST_OCTET", "300")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Error(config.Validate())
}

func TestConfig_PollTimeoutMustLeaveRoomForLongPolling(t *testing.T) {
	req := require.New(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("POLL_TIMEOUT", "500ms")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Error(config.Validate())
}
