package domain

import "context"

// Platform is the subset of the messaging platform the handlers depend on.
type Platform interface {
	// FileURL resolves a remote file identifier to a download location.
	FileURL(ctx context.Context, fileID string) (string, error)
	SendVideo(ctx context.Context, upload VideoUpload) error
	SendMessage(ctx context.Context, msg TextMessage) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Channel is a source of inbound events (Telegram polling).
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
}
