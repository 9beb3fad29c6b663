// Package relay converts qualifying video attachments and posts the result
// back into the chat they came from.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"webmbot/internal/domain"
	"webmbot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

const DefaultTargetMimeType = "video/webm"

// Fetcher downloads a remote file to local disk.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string) (domain.LocalFile, error)
}

// Transcoder converts a local file and returns the output path.
type Transcoder interface {
	Transcode(ctx context.Context, input string) (string, error)
}

// Relay runs download → transcode → upload → delete original → cleanup
// for one document message at a time. It holds no per-message state.
type Relay struct {
	fetcher    Fetcher
	transcoder Transcoder
	platform   domain.Platform
	targetType string
	metrics    *metrics.Collector
	logger     *slog.Logger
}

type Config struct {
	Fetcher    Fetcher
	Transcoder Transcoder
	Platform   domain.Platform
	TargetType string // defaults to DefaultTargetMimeType; parameters and case are ignored
	Metrics    *metrics.Collector
	Logger     *slog.Logger
}

func New(cfg Config) *Relay {
	cfg.TargetType = domain.MediaEssence(cfg.TargetType)
	if cfg.TargetType == "" {
		cfg.TargetType = DefaultTargetMimeType
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Relay{
		fetcher:    cfg.Fetcher,
		transcoder: cfg.Transcoder,
		platform:   cfg.Platform,
		targetType: cfg.TargetType,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// Accepts reports whether the document is one the relay converts.
func (r *Relay) Accepts(doc domain.Attachment) bool {
	return doc.FileID != "" && doc.MediaType() == r.targetType
}

// Handle relays one document event. Documents of other media types return nil
// without touching the network or the filesystem.
func (r *Relay) Handle(ctx context.Context, ev domain.DocumentEvent) error {
	if !r.Accepts(ev.Document) {
		return nil
	}

	msg := ev.Msg
	logger := r.logger.With(
		"relay_id", uuid.NewString(),
		"chat_id", msg.ChatID,
		"message_id", msg.MessageID,
		"file_id", ev.Document.FileID,
	)
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		r.metrics.Relays.WithLabelValues(result).Inc()
		metrics.Since(r.metrics.RelayDuration, start)
	}()

	input, err := r.fetcher.Fetch(ctx, ev.Document.FileID)
	if err != nil {
		result = metrics.ResultFetchFailed
		return err
	}
	defer r.remove(logger, input.Path)

	transcodeStart := time.Now()
	output, err := r.transcoder.Transcode(ctx, input.Path)
	if err != nil {
		result = metrics.ResultTranscodeFailed
		return err
	}
	metrics.Since(r.metrics.TranscodeDuration, transcodeStart)
	defer r.remove(logger, output)

	upload := BuildUpload(msg, output)
	if err := r.platform.SendVideo(ctx, upload); err != nil {
		result = metrics.ResultUploadFailed
		return &domain.UploadError{Op: "sendVideo", ChatID: msg.ChatID, Err: err}
	}

	if err := r.platform.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
		result = metrics.ResultDeleteFailed
		return &domain.UploadError{Op: "deleteMessage", ChatID: msg.ChatID, Err: err}
	}

	logger.Info("video relayed", "duration", time.Since(start))
	return nil
}

// remove deletes a temporary file. A failure is logged, never returned.
func (r *Relay) remove(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.metrics.CleanupFailures.Inc()
		logger.Error("temporary file not removed", "err", &domain.CleanupError{Path: path, Err: err})
	}
}

// BuildUpload assembles the sendVideo request for a converted file.
func BuildUpload(msg domain.InboundMessage, path string) domain.VideoUpload {
	upload := domain.VideoUpload{
		ChatID:              msg.ChatID,
		Path:                path,
		ThreadID:            msg.ThreadID,
		ParseMode:           tgbotapi.ModeMarkdownV2,
		DisableNotification: true,
	}
	if msg.Sender != nil {
		upload.Caption = BuildCaption(msg.Caption, *msg.Sender)
		upload.AllowSendingWithoutReply = true
	}
	if msg.ReplyToID != 0 {
		upload.ReplyToMessageID = msg.ReplyToID
	}
	return upload
}

// BuildCaption appends an attribution line for sender below any existing caption.
func BuildCaption(existing string, sender domain.User) string {
	signature := Attribution(sender)
	if existing == "" {
		return signature
	}
	return escape(existing) + "\n\n" + signature
}

// Attribution is the "send by" line linking to the user who posted the original.
func Attribution(sender domain.User) string {
	return fmt.Sprintf("send by %s", MentionLink(sender))
}

// MentionLink renders a MarkdownV2 link to the user's profile.
func MentionLink(u domain.User) string {
	return "[" + escape(u.DisplayName()) + "](tg://user?id=" + strconv.FormatInt(u.ID, 10) + ")"
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}
