package domain

import (
	"mime"
	"strings"
	"time"
)

// User identifies a chat participant.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	UserName  string
}

// DisplayName is the first name followed by the last name when one is set.
func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Attachment describes a file attached to a message. Only metadata is carried;
// the bytes stay on the platform until fetched.
type Attachment struct {
	FileID   string
	MimeType string
	FileName string
	Size     int64
}

// MediaType returns the lower-cased MIME essence (type/subtype without parameters).
func (a Attachment) MediaType() string {
	return MediaEssence(a.MimeType)
}

// MediaEssence lower-cases a MIME type and strips its parameters, so
// "Video/WebM; codecs=vp9" becomes "video/webm".
func MediaEssence(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(raw); err == nil {
		return mt
	}
	if i := strings.Index(raw, ";"); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

// InboundMessage is the platform-neutral view of one received message.
// Zero values mean "absent": ThreadID 0 is no thread, ReplyToID 0 is not a reply.
type InboundMessage struct {
	ChatID     int64
	MessageID  int
	ThreadID   int
	Sender     *User
	ReplyToID  int
	Caption    string
	Text       string
	Attachment *Attachment
	Timestamp  time.Time
}

// LocalFile is a transient file on local disk owned by a single relay.
type LocalFile struct {
	Path string
}

// VideoUpload is a request to send a local video file into a chat.
type VideoUpload struct {
	ChatID                   int64
	Path                     string
	ThreadID                 int
	Caption                  string
	ParseMode                string
	DisableNotification      bool
	ReplyToMessageID         int
	AllowSendingWithoutReply bool
}

// TextMessage is a request to send a text message into a chat.
type TextMessage struct {
	ChatID              int64
	ThreadID            int
	Text                string
	ParseMode           string
	ReplyToMessageID    int
	DisableNotification bool
}
