package model

import (
	"encoding/json"
	"time"
)

// EventType identifies a push channel frame. The set is closed; unknown
// types on the wire are dropped by the transport.
type EventType string

const (
	EventMessage          EventType = "message"
	EventMessageDelivered EventType = "message_delivered"
	EventMessageRead      EventType = "message_read"
	EventCallInitiated    EventType = "call_initiated"
	EventCallAccepted     EventType = "call_accepted"
	EventCallRejected     EventType = "call_rejected"
	EventCallEnded        EventType = "call_ended"
	EventMeetingScheduled EventType = "meeting_scheduled"
	EventMeetingUpdated   EventType = "meeting_updated"
	EventMeetingCancelled EventType = "meeting_cancelled"
	EventUserTyping       EventType = "user_typing"
	EventUserOnline       EventType = "user_online"
	EventUserOffline      EventType = "user_offline"

	// Liveness frames, consumed inside the transport and never
	// delivered to subscribers.
	EventPing EventType = "ping"
	EventPong EventType = "pong"

	// Client→server subscription commands.
	EventRoomSubscribe   EventType = "room_subscribe"
	EventRoomUnsubscribe EventType = "room_unsubscribe"
)

// SubscribableEvents lists every inbound type a handler may register for.
var SubscribableEvents = []EventType{
	EventMessage,
	EventMessageDelivered,
	EventMessageRead,
	EventCallInitiated,
	EventCallAccepted,
	EventCallRejected,
	EventCallEnded,
	EventMeetingScheduled,
	EventMeetingUpdated,
	EventMeetingCancelled,
	EventUserTyping,
	EventUserOnline,
	EventUserOffline,
}

// Frame is the push channel wire format.
type Frame struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// ReceiptPayload is carried by message_delivered and message_read frames.
type ReceiptPayload struct {
	MessageID string    `json:"messageId"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	At        time.Time `json:"at"`
}

// RoomEventPayload is carried by room_subscribe and room_unsubscribe commands.
type RoomEventPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId,omitempty"`
}

// TypingPayload is carried by user_typing frames.
type TypingPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// PresencePayload is carried by user_online and user_offline frames.
type PresencePayload struct {
	UserID string `json:"userId"`
}
