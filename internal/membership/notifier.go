// Package membership announces participants joining a chat.
package membership

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"webmbot/internal/domain"
	"webmbot/internal/metrics"
	"webmbot/internal/relay"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier replies to join service messages with a mention of each new member.
type Notifier struct {
	platform domain.Platform
	metrics  *metrics.Collector
	logger   *slog.Logger
}

type Config struct {
	Platform domain.Platform
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

func New(cfg Config) *Notifier {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Notifier{platform: cfg.Platform, metrics: cfg.Metrics, logger: cfg.Logger}
}

// Handle sends one reply listing every joined user. An event with no joined
// users does nothing.
func (n *Notifier) Handle(ctx context.Context, ev domain.MembershipEvent) error {
	if len(ev.Joined) == 0 {
		return nil
	}

	msg := domain.TextMessage{
		ChatID:           ev.Msg.ChatID,
		ThreadID:         ev.Msg.ThreadID,
		Text:             Format(ev.Joined),
		ParseMode:        tgbotapi.ModeMarkdownV2,
		ReplyToMessageID: ev.Msg.MessageID,
	}
	if err := n.platform.SendMessage(ctx, msg); err != nil {
		n.metrics.Announcements.WithLabelValues(metrics.ResultFailed).Inc()
		return &domain.UploadError{Op: "sendMessage", ChatID: ev.Msg.ChatID, Err: err}
	}

	n.metrics.Announcements.WithLabelValues(metrics.ResultSuccess).Inc()
	n.logger.Info("membership announced", "chat_id", ev.Msg.ChatID, "joined", len(ev.Joined))
	return nil
}

// Format renders one "Check ASAP" line per user, each terminated by a newline.
func Format(users []domain.User) string {
	var sb strings.Builder
	for _, u := range users {
		fmt.Fprintf(&sb, "Check ASAP %s with id %d\n", relay.MentionLink(u), u.ID)
	}
	return sb.String()
}
