package membership

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"webmbot/internal/domain"
)

type fakePlatform struct {
	sent []domain.TextMessage
	err  error
}

func (p *fakePlatform) FileURL(ctx context.Context, fileID string) (string, error) { return "", nil }
func (p *fakePlatform) SendVideo(ctx context.Context, u domain.VideoUpload) error  { return nil }
func (p *fakePlatform) DeleteMessage(ctx context.Context, chatID int64, id int) error {
	return nil
}
func (p *fakePlatform) SendMessage(ctx context.Context, msg domain.TextMessage) error {
	p.sent = append(p.sent, msg)
	return p.err
}

func newTestNotifier(p domain.Platform) *Notifier {
	return New(Config{
		Platform: p,
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})
}

func TestFormat_TwoUsers(t *testing.T) {
	got := Format([]domain.User{{ID: 7, FirstName: "Bob"}, {ID: 9, FirstName: "Ann"}})
	want := "Check ASAP [Bob](tg://user?id=7) with id 7\nCheck ASAP [Ann](tg://user?id=9) with id 9\n"
	if got != want {
		t.Errorf("Format:\n got %q\nwant %q", got, want)
	}
}

func TestHandle_SendsSingleReply(t *testing.T) {
	p := &fakePlatform{}
	n := newTestNotifier(p)

	ev := domain.MembershipEvent{
		Msg:    domain.InboundMessage{ChatID: -5, MessageID: 10, ThreadID: 3},
		Joined: []domain.User{{ID: 7, FirstName: "Bob"}, {ID: 9, FirstName: "Ann"}},
	}
	if err := n.Handle(context.Background(), ev); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(p.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(p.sent))
	}
	m := p.sent[0]
	if m.ChatID != -5 || m.ReplyToMessageID != 10 || m.ThreadID != 3 {
		t.Errorf("routing: %+v", m)
	}
	if m.ParseMode == "" {
		t.Error("rich-text parse mode should be set")
	}
	if m.Text != Format(ev.Joined) {
		t.Errorf("text: got %q", m.Text)
	}
}

func TestHandle_NoJoinedUsers_NoSend(t *testing.T) {
	p := &fakePlatform{}
	n := newTestNotifier(p)

	if err := n.Handle(context.Background(), domain.MembershipEvent{}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(p.sent) != 0 {
		t.Error("nothing should be sent")
	}
}

func TestHandle_SendFailure_Surfaced(t *testing.T) {
	p := &fakePlatform{err: errors.New("chat not found")}
	n := newTestNotifier(p)

	err := n.Handle(context.Background(), domain.MembershipEvent{
		Msg:    domain.InboundMessage{ChatID: 1},
		Joined: []domain.User{{ID: 1, FirstName: "X"}},
	})
	var uerr *domain.UploadError
	if !errors.As(err, &uerr) || uerr.Op != "sendMessage" {
		t.Fatalf("expected sendMessage UploadError, got %v", err)
	}
}
