package daily

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"webmbot/internal/domain"
	"webmbot/internal/metrics"
)

// Subscribers lists the chats to notify.
type Subscribers interface {
	List() []int64
}

// Notifier sends one Source notification to every subscriber.
type Notifier struct {
	source      Source
	subscribers Subscribers
	platform    domain.Platform
	metrics     *metrics.Collector
	logger      *slog.Logger
}

type NotifierConfig struct {
	Source      Source
	Subscribers Subscribers
	Platform    domain.Platform
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

func NewNotifier(cfg NotifierConfig) *Notifier {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Notifier{
		source:      cfg.Source,
		subscribers: cfg.Subscribers,
		platform:    cfg.Platform,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// Broadcast delivers the notification to each subscriber in order. A failed
// delivery does not stop the others; all failures are joined into the error.
func (n *Notifier) Broadcast(ctx context.Context) (int, error) {
	subs := n.subscribers.List()
	if len(subs) == 0 {
		n.logger.Info("daily broadcast skipped: no subscribers")
		return 0, nil
	}

	note, err := n.source.Notification(ctx)
	if err != nil {
		return 0, fmt.Errorf("daily notification: %w", err)
	}

	var (
		delivered int
		errs      []error
	)
	for _, chatID := range subs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		err := n.platform.SendMessage(ctx, domain.TextMessage{
			ChatID:    chatID,
			Text:      note.Text,
			ParseMode: note.ParseMode,
		})
		if err != nil {
			n.metrics.DailyDeliveries.WithLabelValues(metrics.ResultFailed).Inc()
			n.logger.Warn("daily delivery failed", "chat_id", chatID, "err", err)
			errs = append(errs, &domain.UploadError{Op: "sendMessage", ChatID: chatID, Err: err})
			continue
		}
		n.metrics.DailyDeliveries.WithLabelValues(metrics.ResultSuccess).Inc()
		delivered++
	}

	n.logger.Info("daily broadcast finished", "delivered", delivered, "subscribers", len(subs))
	return delivered, errors.Join(errs...)
}
