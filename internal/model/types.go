package model

import "time"

// RoomType classifies a chat room.
type RoomType string

const (
	RoomPrivate   RoomType = "private"
	RoomGroup     RoomType = "group"
	RoomBroadcast RoomType = "broadcast"
)

// MessageType classifies message content.
type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageVideo    MessageType = "video"
	MessageAudio    MessageType = "audio"
	MessageDocument MessageType = "document"
	MessageSticker  MessageType = "sticker"
	MessageLocation MessageType = "location"
	MessageContact  MessageType = "contact"
)

// DeliveryState is one step of a message's per-recipient delivery progression.
type DeliveryState string

const (
	DeliverySent      DeliveryState = "sent"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryRead      DeliveryState = "read"
)

// ChatRoom is a conversation context grouping participants and messages.
// LastMessage is denormalized for list rendering; UnreadCount is maintained
// by the sync store's admission accounting.
type ChatRoom struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Type         RoomType  `json:"type"`
	Participants []string  `json:"participants"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	UnreadCount  int       `json:"unreadCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DeliveryStatus records one recipient's delivery state for a message.
type DeliveryStatus struct {
	UserID string        `json:"userId"`
	State  DeliveryState `json:"state"`
	At     time.Time     `json:"at"`
}

// Message is a single entry in a room's message sequence.
type Message struct {
	ID        string           `json:"id"`
	RoomID    string           `json:"roomId"`
	SenderID  string           `json:"senderId"`
	Type      MessageType      `json:"type"`
	Content   string           `json:"content,omitempty"`
	MediaURL  string           `json:"mediaUrl,omitempty"`
	Statuses  []DeliveryStatus `json:"statuses,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// CallType classifies a call.
type CallType string

const (
	CallVoice CallType = "voice"
	CallVideo CallType = "video"
)

// CallStatus is a call's lifecycle state.
type CallStatus string

const (
	CallInitiated CallStatus = "initiated"
	CallRinging   CallStatus = "ringing"
	CallConnected CallStatus = "connected"
	CallEnded     CallStatus = "ended"
	CallMissed    CallStatus = "missed"
	CallRejected  CallStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s CallStatus) Terminal() bool {
	return s == CallEnded || s == CallMissed || s == CallRejected
}

// Call is a voice or video call between two users.
type Call struct {
	ID        string     `json:"id"`
	CallerID  string     `json:"callerId"`
	CalleeID  string     `json:"calleeId"`
	Type      CallType   `json:"type"`
	Status    CallStatus `json:"status"`
	Duration  int        `json:"durationSeconds,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// MeetingStatus is a meeting's lifecycle state.
type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingOngoing   MeetingStatus = "ongoing"
	MeetingCompleted MeetingStatus = "completed"
	MeetingCancelled MeetingStatus = "cancelled"
)

// Meeting is a scheduled meeting.
type Meeting struct {
	ID          string        `json:"id"`
	OrganizerID string        `json:"organizerId"`
	Title       string        `json:"title,omitempty"`
	ScheduledAt time.Time     `json:"scheduledAt"`
	Duration    int           `json:"durationMinutes"`
	Status      MeetingStatus `json:"status"`
}

// Contact is a directed owner→target relationship with an optional nickname.
type Contact struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	TargetID  string `json:"targetId"`
	Nickname  string `json:"nickname,omitempty"`
	IsBlocked bool   `json:"isBlocked"`
}

// StickerPack is a read-mostly sticker catalog entry.
type StickerPack struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Sticker belongs to exactly one pack.
type Sticker struct {
	ID     string `json:"id"`
	PackID string `json:"packId"`
	URL    string `json:"url"`
}
