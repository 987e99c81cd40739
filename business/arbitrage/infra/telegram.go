package infra

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/httpclient"
)

const telegramTimeout = 10 * time.Second

var (
	_ app.Alerter  = (*Telegram)(nil)
	_ app.Notifier = (*Telegram)(nil)
)

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	APIURL string
	Token  string
	ChatID string
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Telegram delivers alerts and summaries through the Bot API sendMessage call.
// Messages go out as plain text since error codes contain underscores.
type Telegram struct {
	client httpclient.Client
	cfg    TelegramConfig
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("telegram token and chat id are required"))
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.telegram.org"
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("telegram"),
		httpclient.WithBaseURL(cfg.APIURL),
		httpclient.WithRequestTimeout(telegramTimeout),
		httpclient.WithRedactedSecrets(cfg.Token),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return &Telegram{client: client, cfg: cfg}, nil
}

// Alert implements app.Alerter.
func (t *Telegram) Alert(ctx context.Context, alert domain.Alert) error {
	return t.send(ctx, "ALERT "+alert.Text())
}

// Notify implements app.Notifier.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	return t.send(ctx, text)
}

func (t *Telegram) send(ctx context.Context, text string) error {
	var result telegramResponse
	_, err := t.client.NewRequestWithOptions(
		httpclient.WithResponseErrorHandler(telegramErrorHandler),
	).
		SetBody(sendMessageRequest{
			ChatID: t.cfg.ChatID,
			Text:   text,
		}).
		SetResult(&result).
		Post(ctx, "/bot"+t.cfg.Token+"/sendMessage")
	if err != nil {
		return apperror.New(apperror.CodeNotificationFailed, apperror.WithCause(err), apperror.WithContext("telegram"))
	}
	if !result.OK {
		return apperror.New(apperror.CodeNotificationFailed, apperror.WithContext("telegram: "+result.Description))
	}
	return nil
}

func telegramErrorHandler(statusCode int, body []byte) error {
	if statusCode < 300 {
		return nil
	}
	var res telegramResponse
	if err := json.Unmarshal(body, &res); err == nil && res.Description != "" {
		return fmt.Errorf("telegram HTTP %d: %s", statusCode, res.Description)
	}
	return fmt.Errorf("telegram HTTP %d", statusCode)
}
