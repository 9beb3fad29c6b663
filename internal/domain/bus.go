package domain

// MessageBus carries inbound events from channels to the dispatcher.
type MessageBus interface {
	Publish(event InboundEvent)
	Subscribe() <-chan InboundEvent
	Close()
}
