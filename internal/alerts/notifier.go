package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/config"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// Notifier delivers an alert to an external channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert models.AlertRecord) error
}

// Poster sends an HTTP POST. It is satisfied by datasource.RateLimitedHTTPClient.
type Poster interface {
	Post(ctx context.Context, url string, contentType string, body io.Reader) (*http.Response, error)
}

// WebhookNotifier posts alerts as JSON to a chat webhook.
type WebhookNotifier struct {
	name   string
	url    string
	field  string
	client Poster
}

// NewDiscordNotifier posts {"content": ...} to a Discord webhook.
func NewDiscordNotifier(url string, client Poster) *WebhookNotifier {
	return &WebhookNotifier{name: "discord", url: url, field: "content", client: client}
}

// NewSlackNotifier posts {"text": ...} to a Slack incoming webhook.
func NewSlackNotifier(url string, client Poster) *WebhookNotifier {
	return &WebhookNotifier{name: "slack", url: url, field: "text", client: client}
}

// Name returns the channel name.
func (w *WebhookNotifier) Name() string {
	return w.name
}

// Notify implements Notifier.
func (w *WebhookNotifier) Notify(ctx context.Context, alert models.AlertRecord) error {
	body, err := json.Marshal(map[string]string{w.field: formatAlert(alert)})
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", w.name, err)
	}

	resp, err := w.client.Post(ctx, w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to post %s webhook: %w", w.name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s webhook returned status %d", w.name, resp.StatusCode)
	}
	return nil
}

// MessageSender sends a Telegram message. It is satisfied by *tgbotapi.BotAPI.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends alerts to one Telegram chat.
type TelegramNotifier struct {
	chatID int64
	sender MessageSender
}

// NewTelegramNotifier connects a bot with token.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return NewTelegramNotifierWithSender(bot, chatID), nil
}

// NewTelegramNotifierWithSender uses an existing sender.
func NewTelegramNotifierWithSender(sender MessageSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{chatID: chatID, sender: sender}
}

// Name returns the channel name.
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// Notify implements Notifier. The bot API has no context support; ctx is
// only checked before sending.
func (t *TelegramNotifier) Notify(ctx context.Context, alert models.AlertRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, formatAlert(alert))
	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func formatAlert(alert models.AlertRecord) string {
	return fmt.Sprintf("[%s] %s: %s", alert.Severity, alert.Type, alert.Message)
}

// NotifiersFromConfig builds a notifier for every configured channel.
// A Telegram bot that fails to connect is logged and left out.
func NotifiersFromConfig(cfg config.NotificationsConfig, client Poster, log *logrus.Logger) []Notifier {
	var out []Notifier
	if cfg.DiscordWebhookURL != "" {
		out = append(out, NewDiscordNotifier(cfg.DiscordWebhookURL, client))
	}
	if cfg.SlackWebhookURL != "" {
		out = append(out, NewSlackNotifier(cfg.SlackWebhookURL, client))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.WithError(err).Warn("Telegram notifications disabled")
		} else {
			out = append(out, tg)
		}
	}
	return out
}

// ParseSeverity maps a configured severity, defaulting to high.
func ParseSeverity(s string) models.Severity {
	if models.Severity(s) == models.SeverityMedium {
		return models.SeverityMedium
	}
	return models.SeverityHigh
}
