package channel

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"webmbot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// threadOverlay picks the fields tgbotapi.Update does not model.
type threadOverlay struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		MessageThreadID int `json:"message_thread_id"`
	} `json:"message"`
}

// decodeUpdates parses a getUpdates result and returns the updates together
// with the forum thread id of each update that has one.
func decodeUpdates(raw json.RawMessage) ([]tgbotapi.Update, map[int]int, error) {
	var updates []tgbotapi.Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, nil, fmt.Errorf("decode updates: %w", err)
	}
	var overlays []threadOverlay
	if err := json.Unmarshal(raw, &overlays); err != nil {
		return nil, nil, fmt.Errorf("decode thread ids: %w", err)
	}
	threads := make(map[int]int)
	for _, o := range overlays {
		if o.Message != nil && o.Message.MessageThreadID != 0 {
			threads[o.UpdateID] = o.Message.MessageThreadID
		}
	}
	return updates, threads, nil
}

// Convert classifies one update. It returns false for updates without a
// message (edits, callbacks and the like). Commands addressed to a bot other
// than botName ("/help@otherbot") are classified as OtherEvent.
func Convert(u tgbotapi.Update, threadID int, botName string) (domain.InboundEvent, bool) {
	m := u.Message
	if m == nil || m.Chat == nil {
		return nil, false
	}

	msg := domain.InboundMessage{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		ThreadID:  threadID,
		Caption:   m.Caption,
		Text:      m.Text,
		Timestamp: time.Unix(int64(m.Date), 0),
	}
	if m.From != nil {
		sender := toUser(*m.From)
		msg.Sender = &sender
	}
	if m.ReplyToMessage != nil {
		msg.ReplyToID = m.ReplyToMessage.MessageID
	}

	switch {
	case m.Document != nil:
		doc := domain.Attachment{
			FileID:   m.Document.FileID,
			MimeType: m.Document.MimeType,
			FileName: m.Document.FileName,
			Size:     int64(m.Document.FileSize),
		}
		msg.Attachment = &doc
		return domain.DocumentEvent{Msg: msg, Document: doc}, true
	case len(m.NewChatMembers) > 0:
		joined := make([]domain.User, 0, len(m.NewChatMembers))
		for _, nu := range m.NewChatMembers {
			joined = append(joined, toUser(nu))
		}
		return domain.MembershipEvent{Msg: msg, Joined: joined}, true
	case m.IsCommand() && addressedTo(m, botName):
		return domain.CommandEvent{Msg: msg, Command: m.Command(), Args: m.CommandArguments()}, true
	default:
		return domain.OtherEvent{Msg: msg}, true
	}
}

// addressedTo reports whether a command has no @addressee or names botName.
func addressedTo(m *tgbotapi.Message, botName string) bool {
	_, target, ok := strings.Cut(m.CommandWithAt(), "@")
	return !ok || strings.EqualFold(target, botName)
}

func toUser(u tgbotapi.User) domain.User {
	return domain.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		UserName:  u.UserName,
	}
}
