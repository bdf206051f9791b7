package conversation

// EventKind classifies a normalized inbound message.
type EventKind string

const (
	EventText         EventKind = "text"
	EventButtonReply  EventKind = "button_reply"
	EventListReply    EventKind = "list_reply"
	EventUnrecognized EventKind = "unrecognized"
)

// InboundEvent is a user's message or interactive reply with the provider's
// wire structure already stripped away.
type InboundEvent struct {
	// UserID is the channel-assigned sender identifier (the session key).
	UserID string
	// RoutingID addresses the outbound delivery call (the business phone number id).
	RoutingID string
	// MessageID is the provider's message id, used to drop redeliveries.
	MessageID string
	Kind      EventKind
	// Payload is the text body for EventText and the reply id for
	// EventButtonReply and EventListReply. Empty otherwise.
	Payload string
}

// TextEvent builds a text event.
func TextEvent(userID, body string) InboundEvent {
	return InboundEvent{UserID: userID, Kind: EventText, Payload: body}
}

// ButtonEvent builds a button reply event.
func ButtonEvent(userID, id string) InboundEvent {
	return InboundEvent{UserID: userID, Kind: EventButtonReply, Payload: id}
}

// ListEvent builds a list reply event.
func ListEvent(userID, id string) InboundEvent {
	return InboundEvent{UserID: userID, Kind: EventListReply, Payload: id}
}
