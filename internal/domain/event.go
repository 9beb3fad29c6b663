package domain

// InboundEvent is a received message classified by what it carries.
// The set of variants is closed: DocumentEvent, MembershipEvent, CommandEvent, OtherEvent.
type InboundEvent interface {
	Message() InboundMessage
	inboundEvent()
}

// DocumentEvent is a message with a document attachment.
type DocumentEvent struct {
	Msg      InboundMessage
	Document Attachment
}

// MembershipEvent is a service message announcing participants that joined.
type MembershipEvent struct {
	Msg    InboundMessage
	Joined []User
}

// CommandEvent is a bot command such as /subscribe.
type CommandEvent struct {
	Msg     InboundMessage
	Command string
	Args    string
}

// OtherEvent is anything the bot does not act on.
type OtherEvent struct {
	Msg InboundMessage
}

func (e DocumentEvent) Message() InboundMessage   { return e.Msg }
func (e MembershipEvent) Message() InboundMessage { return e.Msg }
func (e CommandEvent) Message() InboundMessage    { return e.Msg }
func (e OtherEvent) Message() InboundMessage      { return e.Msg }

func (DocumentEvent) inboundEvent()   {}
func (MembershipEvent) inboundEvent() {}
func (CommandEvent) inboundEvent()    {}
func (OtherEvent) inboundEvent()      {}
