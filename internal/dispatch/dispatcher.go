// Package dispatch routes inbound events to their handlers with bounded
// concurrency.
package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"webmbot/internal/domain"
	"webmbot/internal/metrics"
)

const defaultMaxConcurrent = 8

type DocumentHandler interface {
	Handle(ctx context.Context, ev domain.DocumentEvent) error
}

type MembershipHandler interface {
	Handle(ctx context.Context, ev domain.MembershipEvent) error
}

// Subscriptions is the subscriber list as seen by chat commands.
type Subscriptions interface {
	Add(ctx context.Context, chatID int64) (bool, error)
	Remove(ctx context.Context, chatID int64) (bool, error)
	Contains(chatID int64) bool
	Len() int
}

// Dispatcher consumes the bus and runs one goroutine per event.
type Dispatcher struct {
	bus           domain.MessageBus
	documents     DocumentHandler
	membership    MembershipHandler
	commands      *Commands
	maxConcurrent int
	metrics       *metrics.Collector
	logger        *slog.Logger
}

type Config struct {
	Bus           domain.MessageBus
	Documents     DocumentHandler
	Membership    MembershipHandler
	Commands      *Commands // nil = commands are ignored
	MaxConcurrent int       // default 8
	Metrics       *metrics.Collector
	Logger        *slog.Logger
}

func New(cfg Config) *Dispatcher {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		bus:           cfg.Bus,
		documents:     cfg.Documents,
		membership:    cfg.Membership,
		commands:      cfg.Commands,
		maxConcurrent: cfg.MaxConcurrent,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
	}
}

// Run blocks until ctx is cancelled or the bus is closed, then waits for
// every in-flight event to finish. Handlers get a context that keeps ctx's
// values but not its cancellation, so a shutdown lets running relays complete.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", "max_concurrent", d.maxConcurrent)
	handlerCtx := context.WithoutCancel(ctx)

	sem := semaphore.NewWeighted(int64(d.maxConcurrent))
	inbound := d.bus.Subscribe()
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case ev, ok := <-inbound:
			if !ok {
				d.logger.Info("inbound channel closed, dispatcher stopping")
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				d.logger.Info("dispatcher stopping", "dropped", kindOf(ev))
				return
			}
			wg.Add(1)
			go func(ev domain.InboundEvent) {
				defer wg.Done()
				defer sem.Release(1)
				d.handle(handlerCtx, ev)
			}(ev)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev domain.InboundEvent) {
	kind := kindOf(ev)
	d.metrics.Events.WithLabelValues(kind).Inc()
	d.metrics.InFlight.Inc()
	defer d.metrics.InFlight.Dec()

	msg := ev.Message()
	var err error
	switch e := ev.(type) {
	case domain.DocumentEvent:
		if d.documents != nil {
			err = d.documents.Handle(ctx, e)
		}
	case domain.MembershipEvent:
		if d.membership != nil {
			err = d.membership.Handle(ctx, e)
		}
	case domain.CommandEvent:
		if d.commands != nil {
			err = d.commands.Handle(ctx, e)
		}
	case domain.OtherEvent:
		d.logger.Debug("ignoring message", "chat_id", msg.ChatID, "message_id", msg.MessageID)
	}
	if err != nil {
		d.logger.Error("event handling failed",
			"kind", kind,
			"chat_id", msg.ChatID,
			"message_id", msg.MessageID,
			"err", err,
		)
	}
}

func kindOf(ev domain.InboundEvent) string {
	switch ev.(type) {
	case domain.DocumentEvent:
		return "document"
	case domain.MembershipEvent:
		return "membership"
	case domain.CommandEvent:
		return "command"
	default:
		return "other"
	}
}
