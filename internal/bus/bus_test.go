package bus

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"webmbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestInMemoryBus_PublishSubscribe(t *testing.T) {
	b := New(4, testLogger())
	defer b.Close()

	b.Publish(domain.OtherEvent{Msg: domain.InboundMessage{ChatID: 1, MessageID: 2}})

	select {
	case ev := <-b.Subscribe():
		if ev.Message().MessageID != 2 {
			t.Errorf("MessageID: got %d", ev.Message().MessageID)
		}
		if _, ok := ev.(domain.OtherEvent); !ok {
			t.Errorf("expected OtherEvent, got %T", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestInMemoryBus_FullDropsAfterTimeout(t *testing.T) {
	b := New(1, testLogger())
	b.timeout = 20 * time.Millisecond
	defer b.Close()

	b.Publish(domain.OtherEvent{Msg: domain.InboundMessage{MessageID: 1}})
	b.Publish(domain.OtherEvent{Msg: domain.InboundMessage{MessageID: 2}})

	ev := <-b.Subscribe()
	if ev.Message().MessageID != 1 {
		t.Fatalf("expected first event, got %d", ev.Message().MessageID)
	}
	select {
	case ev := <-b.Subscribe():
		t.Fatalf("expected second event to be dropped, got %d", ev.Message().MessageID)
	default:
	}
}

func TestInMemoryBus_PublishAfterClose(t *testing.T) {
	b := New(1, testLogger())
	b.Close()
	b.Close()
	b.Publish(domain.OtherEvent{})

	if _, ok := <-b.Subscribe(); ok {
		t.Fatal("expected closed channel")
	}
}
