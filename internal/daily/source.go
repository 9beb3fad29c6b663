// Package daily broadcasts a scheduled notification to every subscriber.
package daily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	leetCodeBaseURL = "https://leetcode.com"
	leetCodeQuery   = `query questionOfToday {
  activeDailyCodingChallengeQuestion {
    date
    link
    question { title difficulty }
  }
}`
)

// Notification is the text broadcast to subscribers.
type Notification struct {
	Text      string
	ParseMode string
}

// Source produces the notification for the current run.
type Source interface {
	Notification(ctx context.Context) (Notification, error)
}

// StaticSource always returns the same plain-text message.
type StaticSource struct {
	Text string
}

func (s StaticSource) Notification(ctx context.Context) (Notification, error) {
	if strings.TrimSpace(s.Text) == "" {
		return Notification{}, fmt.Errorf("static daily message is empty")
	}
	return Notification{Text: s.Text}, nil
}

// LeetCodeSource fetches the LeetCode question of the day.
type LeetCodeSource struct {
	BaseURL string // defaults to https://leetcode.com
	HTTP    *http.Client
}

type leetCodeResponse struct {
	Data struct {
		Daily *struct {
			Date     string `json:"date"`
			Link     string `json:"link"`
			Question struct {
				Title      string `json:"title"`
				Difficulty string `json:"difficulty"`
			} `json:"question"`
		} `json:"activeDailyCodingChallengeQuestion"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (s LeetCodeSource) Notification(ctx context.Context) (Notification, error) {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = leetCodeBaseURL
	}
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	body, err := json.Marshal(map[string]any{"query": leetCodeQuery, "operationName": "questionOfToday"})
	if err != nil {
		return Notification{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/graphql", bytes.NewReader(body))
	if err != nil {
		return Notification{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", base)

	resp, err := client.Do(req)
	if err != nil {
		return Notification{}, fmt.Errorf("leetcode request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Notification{}, fmt.Errorf("leetcode status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out leetCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Notification{}, fmt.Errorf("decode leetcode response: %w", err)
	}
	if len(out.Errors) > 0 {
		return Notification{}, fmt.Errorf("leetcode: %s", out.Errors[0].Message)
	}
	d := out.Data.Daily
	if d == nil || d.Question.Title == "" {
		return Notification{}, fmt.Errorf("leetcode: no daily question in response")
	}

	link := d.Link
	if strings.HasPrefix(link, "/") {
		link = base + link
	}
	text := fmt.Sprintf("LeetCode daily \\(%s\\): [%s](%s)\nDifficulty: %s",
		esc(d.Date), esc(d.Question.Title), escLink(link), esc(d.Question.Difficulty))
	return Notification{Text: text, ParseMode: tgbotapi.ModeMarkdownV2}, nil
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

// linkEscaper escapes the characters MarkdownV2 reserves inside (...) of an inline link.
var linkEscaper = strings.NewReplacer(`\`, `\\`, `)`, `\)`)

func escLink(s string) string {
	return linkEscaper.Replace(s)
}
