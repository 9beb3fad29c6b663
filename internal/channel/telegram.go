package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"webmbot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramDefaultPollTimeout = 60
	telegramPollRetryDelay     = 3 * time.Second
)

var (
	_ domain.Channel  = (*Telegram)(nil)
	_ domain.Platform = (*Telegram)(nil)
)

// Telegram polls the Bot API for updates and implements domain.Platform
// for the handlers that answer them.
type Telegram struct {
	bot         *tgbotapi.BotAPI
	allowChats  map[int64]bool // empty = allow all
	pollTimeout int
	logger      *slog.Logger
}

type TelegramConfig struct {
	Token              string
	AllowChats         []int64
	PollTimeoutSeconds int
	Endpoint           string // Bot API endpoint format, defaults to tgbotapi.APIEndpoint
	HTTP               *http.Client
	Logger             *slog.Logger
}

// NewTelegram authenticates the token with getMe so that a bad token fails
// at startup rather than on the first update.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{}
	}
	if cfg.PollTimeoutSeconds <= 0 {
		cfg.PollTimeoutSeconds = telegramDefaultPollTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, cfg.HTTP)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	cfg.Logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	allowed := make(map[int64]bool, len(cfg.AllowChats))
	for _, id := range cfg.AllowChats {
		allowed[id] = true
	}
	return &Telegram{
		bot:         bot,
		allowChats:  allowed,
		pollTimeout: cfg.PollTimeoutSeconds,
		logger:      cfg.Logger,
	}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Username is the bot's @handle without the leading @.
func (t *Telegram) Username() string { return t.bot.Self.UserName }

// Start long-polls getUpdates and publishes one event per message until ctx
// is cancelled. A getUpdates call still in flight at cancellation is
// abandoned; its results are discarded.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.logger.Info("telegram polling started", "timeout_s", t.pollTimeout)

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.poll(ctx, bus)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("telegram channel stopping")
	case <-done:
	}
	return nil
}

// Stop is a no-op: polling ends when Start's context is cancelled.
func (t *Telegram) Stop() error {
	return nil
}

func (t *Telegram) poll(ctx context.Context, bus domain.MessageBus) {
	offset := 0
	for ctx.Err() == nil {
		events, next, err := t.fetch(offset)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			t.logger.Warn("telegram getUpdates failed", "err", err, "retry_in", telegramPollRetryDelay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(telegramPollRetryDelay):
			}
			continue
		}
		offset = next
		for _, ev := range events {
			bus.Publish(ev)
		}
	}
}

// fetch performs one getUpdates call and returns the allowed events plus the
// offset acknowledging everything received.
func (t *Telegram) fetch(offset int) ([]domain.InboundEvent, int, error) {
	u := tgbotapi.NewUpdate(offset)
	u.Timeout = t.pollTimeout
	u.AllowedUpdates = []string{"message"}

	resp, err := t.bot.Request(u)
	if err != nil {
		return nil, offset, err
	}
	updates, threads, err := decodeUpdates(resp.Result)
	if err != nil {
		return nil, offset, err
	}

	events := make([]domain.InboundEvent, 0, len(updates))
	for _, upd := range updates {
		if upd.UpdateID >= offset {
			offset = upd.UpdateID + 1
		}
		ev, ok := Convert(upd, threads[upd.UpdateID], t.bot.Self.UserName)
		if !ok {
			continue
		}
		if !t.isAllowed(ev.Message().ChatID) {
			t.logger.Debug("telegram chat not in allow list", "chat_id", ev.Message().ChatID)
			continue
		}
		events = append(events, ev)
	}
	return events, offset, nil
}

func (t *Telegram) isAllowed(chatID int64) bool {
	if len(t.allowChats) == 0 {
		return true // Empty list = allow all
	}
	return t.allowChats[chatID]
}

// FileURL resolves a file id to its direct download URL. The URL embeds the
// bot token and must not be logged.
func (t *Telegram) FileURL(ctx context.Context, fileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	link, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("getFile: %w", err)
	}
	return link, nil
}

// SendVideo uploads a local file with sendVideo. The request is assembled by
// hand because the client library has no forum-topic support.
func (t *Telegram) SendVideo(ctx context.Context, u domain.VideoUpload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", u.ChatID)
	params.AddNonZero("message_thread_id", u.ThreadID)
	params.AddNonEmpty("caption", u.Caption)
	params.AddNonEmpty("parse_mode", u.ParseMode)
	params.AddBool("disable_notification", u.DisableNotification)
	params.AddNonZero("reply_to_message_id", u.ReplyToMessageID)
	params.AddBool("allow_sending_without_reply", u.AllowSendingWithoutReply)

	files := []tgbotapi.RequestFile{{Name: "video", Data: tgbotapi.FilePath(u.Path)}}
	if _, err := t.bot.UploadFiles("sendVideo", params, files); err != nil {
		return fmt.Errorf("sendVideo: %w", err)
	}
	return nil
}

func (t *Telegram) SendMessage(ctx context.Context, msg domain.TextMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", msg.ChatID)
	params.AddNonZero("message_thread_id", msg.ThreadID)
	params["text"] = msg.Text
	params.AddNonEmpty("parse_mode", msg.ParseMode)
	params.AddNonZero("reply_to_message_id", msg.ReplyToMessageID)
	params.AddBool("disable_notification", msg.DisableNotification)

	if _, err := t.bot.MakeRequest("sendMessage", params); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}

func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("deleteMessage: %w", err)
	}
	return nil
}
