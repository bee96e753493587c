// Package telegram delivers formatted alerts to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/couchcryptid/outage-alert-etl/internal/alert"
	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

// requester is the subset of *tgbotapi.BotAPI used for sending.
type requester interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Notifier posts one Markdown message per lifecycle event, with
// vendor-supplied text escaped so stray markup cannot break parsing. It
// implements pipeline.Sink.
type Notifier struct {
	bot      requester
	chatID   string
	threadID string
	logger   *slog.Logger
}

// NewNotifier authenticates the bot token and returns a notifier for chatID.
// threadID selects a forum topic and may be empty.
func NewNotifier(token, chatID, threadID string, logger *slog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return newNotifier(bot, chatID, threadID, logger), nil
}

func escapeMarkdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func newNotifier(bot requester, chatID, threadID string, logger *slog.Logger) *Notifier {
	return &Notifier{bot: bot, chatID: chatID, threadID: threadID, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (*Notifier) Name() string { return "telegram" }

// Deliver sends the formatted event. The Bot API call is not cancellable, so
// ctx is only checked before sending.
func (n *Notifier) Deliver(ctx context.Context, event domain.LifecycleEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := tgbotapi.Params{
		"chat_id":    n.chatID,
		"text":       alert.FormatEscaped(event, escapeMarkdown),
		"parse_mode": tgbotapi.ModeMarkdown,
	}
	params.AddBool("disable_web_page_preview", true)
	// message_thread_id postdates the library's typed configs, so send raw params.
	params.AddNonEmpty("message_thread_id", n.threadID)

	resp, err := n.bot.MakeRequest("sendMessage", params)
	if err != nil {
		return fmt.Errorf("telegram send %s %s: %w", event.Kind, event.OutageID, err)
	}
	if resp != nil && !resp.Ok {
		return fmt.Errorf("telegram send %s %s: %s", event.Kind, event.OutageID, resp.Description)
	}

	n.logger.Info("telegram notification sent",
		"kind", event.Kind,
		"outage_id", event.OutageID,
		"chat_id", n.chatID,
		"thread_id", n.threadID,
	)
	return nil
}
