package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"webmbot/internal/domain"
)

// Commands answers the bot's chat commands.
type Commands struct {
	platform    domain.Platform
	subscribers Subscriptions // nil = subscriptions disabled
	version     string
	started     time.Time
}

type CommandsConfig struct {
	Platform    domain.Platform
	Subscribers Subscriptions
	Version     string
}

func NewCommands(cfg CommandsConfig) *Commands {
	return &Commands{
		platform:    cfg.Platform,
		subscribers: cfg.Subscribers,
		version:     cfg.Version,
		started:     time.Now(),
	}
}

// Handle replies to a known command. Unknown commands are ignored so the bot
// stays quiet in groups where other bots answer them.
func (c *Commands) Handle(ctx context.Context, ev domain.CommandEvent) error {
	reply, ok, err := c.respond(ctx, ev)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	msg := domain.TextMessage{
		ChatID:           ev.Msg.ChatID,
		ThreadID:         ev.Msg.ThreadID,
		Text:             reply,
		ReplyToMessageID: ev.Msg.MessageID,
	}
	if err := c.platform.SendMessage(ctx, msg); err != nil {
		return &domain.UploadError{Op: "sendMessage", ChatID: ev.Msg.ChatID, Err: err}
	}
	return nil
}

func (c *Commands) respond(ctx context.Context, ev domain.CommandEvent) (string, bool, error) {
	chatID := ev.Msg.ChatID
	switch strings.ToLower(ev.Command) {
	case "start", "help":
		return c.helpText(), true, nil

	case "subscribe":
		if c.subscribers == nil {
			return "Subscriptions are disabled.", true, nil
		}
		added, err := c.subscribers.Add(ctx, chatID)
		if err != nil {
			return "", false, fmt.Errorf("subscribe %d: %w", chatID, err)
		}
		if !added {
			return "This chat is already subscribed.", true, nil
		}
		return "Subscribed. This chat will receive the daily notification.", true, nil

	case "unsubscribe":
		if c.subscribers == nil {
			return "Subscriptions are disabled.", true, nil
		}
		removed, err := c.subscribers.Remove(ctx, chatID)
		if err != nil {
			return "", false, fmt.Errorf("unsubscribe %d: %w", chatID, err)
		}
		if !removed {
			return "This chat is not subscribed.", true, nil
		}
		return "Unsubscribed.", true, nil

	case "status":
		return c.statusText(chatID), true, nil

	default:
		return "", false, nil
	}
}

func (c *Commands) helpText() string {
	var sb strings.Builder
	sb.WriteString("Send a .webm file and I'll replace it with an MP4 video.\n\n")
	sb.WriteString("Commands:\n")
	sb.WriteString("/help - Show this message\n")
	if c.subscribers != nil {
		sb.WriteString("/subscribe - Receive the daily notification\n")
		sb.WriteString("/unsubscribe - Stop the daily notification\n")
	}
	sb.WriteString("/status - Bot status")
	return sb.String()
}

func (c *Commands) statusText(chatID int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "webmbot %s (%s/%s, %s)\n", c.version, runtime.GOOS, runtime.GOARCH, runtime.Version())
	fmt.Fprintf(&sb, "Uptime: %s\n", time.Since(c.started).Round(time.Second))
	fmt.Fprintf(&sb, "Chat ID: %d", chatID)
	if c.subscribers != nil {
		state := "no"
		if c.subscribers.Contains(chatID) {
			state = "yes"
		}
		fmt.Fprintf(&sb, "\nSubscribed: %s (%d total)", state, c.subscribers.Len())
	}
	return sb.String()
}
