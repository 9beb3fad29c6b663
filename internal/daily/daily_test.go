package daily

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"webmbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staticSubs []int64

func (s staticSubs) List() []int64 { return s }

type fakePlatform struct {
	mu     sync.Mutex
	sent   []domain.TextMessage
	failOn map[int64]bool
}

func (p *fakePlatform) FileURL(ctx context.Context, fileID string) (string, error) { return "", nil }
func (p *fakePlatform) SendVideo(ctx context.Context, u domain.VideoUpload) error  { return nil }
func (p *fakePlatform) DeleteMessage(ctx context.Context, chatID int64, id int) error {
	return nil
}
func (p *fakePlatform) SendMessage(ctx context.Context, msg domain.TextMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn[msg.ChatID] {
		return errors.New("Forbidden: bot was blocked by the user")
	}
	p.sent = append(p.sent, msg)
	return nil
}

func TestStaticSource(t *testing.T) {
	n, err := StaticSource{Text: "hello"}.Notification(context.Background())
	if err != nil {
		t.Fatalf("Notification: %v", err)
	}
	if n.Text != "hello" || n.ParseMode != "" {
		t.Errorf("got %+v", n)
	}
	if _, err := (StaticSource{Text: "  "}).Notification(context.Background()); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestLeetCodeSource_FormatsQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/graphql" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("request body: %v", err)
		}
		if !strings.Contains(req["query"].(string), "activeDailyCodingChallengeQuestion") {
			t.Errorf("unexpected query: %v", req["query"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"activeDailyCodingChallengeQuestion":{"date":"2026-10-14","link":"/problems/two-sum/","question":{"title":"Two Sum","difficulty":"Easy"}}}}`))
	}))
	defer srv.Close()

	n, err := LeetCodeSource{BaseURL: srv.URL, HTTP: srv.Client()}.Notification(context.Background())
	if err != nil {
		t.Fatalf("Notification: %v", err)
	}
	want := "LeetCode daily \\(2026\\-10\\-14\\): [Two Sum](" + srv.URL + "/problems/two-sum/)\nDifficulty: Easy"
	if n.Text != want {
		t.Errorf("text:\n got %q\nwant %q", n.Text, want)
	}
	if n.ParseMode != "MarkdownV2" {
		t.Errorf("parse mode: got %q", n.ParseMode)
	}
}

func TestLeetCodeSource_EscapesLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"activeDailyCodingChallengeQuestion":{"date":"d","link":"https://example.com/p/f(x)\\y/","question":{"title":"T","difficulty":"Hard"}}}}`))
	}))
	defer srv.Close()

	n, err := LeetCodeSource{BaseURL: srv.URL, HTTP: srv.Client()}.Notification(context.Background())
	if err != nil {
		t.Fatalf("Notification: %v", err)
	}
	if want := `[T](https://example.com/p/f(x\)\\y/)`; !strings.Contains(n.Text, want) {
		t.Errorf("text %q does not contain %q", n.Text, want)
	}
}

func TestLeetCodeSource_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"status", http.StatusBadGateway, "upstream"},
		{"graphql error", http.StatusOK, `{"errors":[{"message":"rate limited"}]}`},
		{"empty", http.StatusOK, `{"data":{}}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			if _, err := (LeetCodeSource{BaseURL: srv.URL}).Notification(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBroadcast_ContinuesPastFailures(t *testing.T) {
	p := &fakePlatform{failOn: map[int64]bool{2: true}}
	n := NewNotifier(NotifierConfig{
		Source:      StaticSource{Text: "daily"},
		Subscribers: staticSubs{1, 2, 3},
		Platform:    p,
		Logger:      testLogger(),
	})

	delivered, err := n.Broadcast(context.Background())
	if delivered != 2 {
		t.Errorf("delivered: got %d", delivered)
	}
	var uerr *domain.UploadError
	if !errors.As(err, &uerr) || uerr.ChatID != 2 {
		t.Fatalf("expected UploadError for chat 2, got %v", err)
	}
	if len(p.sent) != 2 || p.sent[0].ChatID != 1 || p.sent[1].ChatID != 3 {
		t.Errorf("sent: %+v", p.sent)
	}
}

type countingSource struct{ calls atomic.Int32 }

func (c *countingSource) Notification(ctx context.Context) (Notification, error) {
	c.calls.Add(1)
	return Notification{Text: "x"}, nil
}

func TestBroadcast_NoSubscribers_SkipsSource(t *testing.T) {
	src := &countingSource{}
	n := NewNotifier(NotifierConfig{Source: src, Subscribers: staticSubs{}, Platform: &fakePlatform{}, Logger: testLogger()})

	delivered, err := n.Broadcast(context.Background())
	if err != nil || delivered != 0 {
		t.Fatalf("got delivered=%d err=%v", delivered, err)
	}
	if src.calls.Load() != 0 {
		t.Error("source should not be queried without subscribers")
	}
}

func TestNewScheduler_Validation(t *testing.T) {
	if _, err := NewScheduler(SchedulerConfig{Schedule: "not a cron"}); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if _, err := NewScheduler(SchedulerConfig{Timezone: "Mars/Olympus"}); err == nil {
		t.Error("expected error for invalid timezone")
	}
	if _, err := NewScheduler(SchedulerConfig{Timezone: "Europe/Moscow"}); err != nil {
		t.Errorf("default schedule should be valid: %v", err)
	}
}

type countingBroadcaster struct{ calls atomic.Int32 }

func (c *countingBroadcaster) Broadcast(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestScheduler_RunsUntilCancelled(t *testing.T) {
	target := &countingBroadcaster{}
	s, err := NewScheduler(SchedulerConfig{Schedule: "@every 1s", Target: target, Logger: testLogger()})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if target.calls.Load() < 1 {
		t.Error("expected at least one broadcast")
	}
}
