// Package command orchestrates user-initiated messaging operations.
// Every command runs the same sequence: validate, REST write, optimistic
// store update, best-effort transport broadcast. A failed write stops
// the sequence before any local state is touched; a failed broadcast is
// ignored because the server's own fan-out delivers the event once the
// channel recovers.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/velorahq/crewchat/internal/model"
	"github.com/velorahq/crewchat/internal/state"
)

var (
	ErrNoParticipants = errors.New("chat room needs at least one participant")
	ErrEmptyMessage   = errors.New("message needs content or a media reference")
	ErrNoCallee       = errors.New("call needs a callee")
	ErrNoSchedule     = errors.New("meeting needs a scheduled time")
	ErrNoTarget       = errors.New("contact needs a target user")
)

// API is the REST write surface the commands depend on.
type API interface {
	CreateChatRoom(ctx context.Context, room *model.ChatRoom) (*model.ChatRoom, error)
	CreateMessage(ctx context.Context, msg *model.Message) (*model.Message, error)
	CreateCall(ctx context.Context, call *model.Call) (*model.Call, error)
	CreateMeeting(ctx context.Context, m *model.Meeting) (*model.Meeting, error)
	CreateContact(ctx context.Context, contact *model.Contact) (*model.Contact, error)
}

// Broadcaster is the push channel write surface; sends are fire-and-forget.
type Broadcaster interface {
	Send(eventType model.EventType, payload any)
}

// Commands is the command layer bound to one user's store and transport.
type Commands struct {
	api    API
	store  *state.Store
	conn   Broadcaster
	logger *zap.Logger
	userID string
}

// New creates the command layer.
func New(api API, store *state.Store, conn Broadcaster, userID string, logger *zap.Logger) *Commands {
	return &Commands{api: api, store: store, conn: conn, logger: logger, userID: userID}
}

// CreateChatRoom creates a room on the server and mirrors it locally.
// Other clients discover new rooms through their own REST reads; the
// wire contract has no room-created event to broadcast.
func (c *Commands) CreateChatRoom(ctx context.Context, name string, roomType model.RoomType, participants []string) (*model.ChatRoom, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	created, err := c.api.CreateChatRoom(ctx, &model.ChatRoom{
		Name:         name,
		Type:         roomType,
		Participants: participants,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create chat room: %w", err)
	}

	c.store.Dispatch(state.AddChatRoom{Room: *created})
	return created, nil
}

// SendMessage writes a message through REST, admits it optimistically,
// and broadcasts it. The server echo of the broadcast is absorbed by
// the store's duplicate admission rule.
func (c *Commands) SendMessage(ctx context.Context, roomID string, msgType model.MessageType, content, mediaURL string) (*model.Message, error) {
	if roomID == "" {
		return nil, errors.New("message needs a room")
	}
	if content == "" && mediaURL == "" {
		return nil, ErrEmptyMessage
	}

	msg := &model.Message{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		SenderID:  c.userID,
		Type:      msgType,
		Content:   content,
		MediaURL:  mediaURL,
		CreatedAt: time.Now().UTC(),
	}

	created, err := c.api.CreateMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	c.store.Dispatch(state.AddMessage{Message: *created})
	c.conn.Send(model.EventMessage, created)
	return created, nil
}

// MakeCall initiates a call to the given user.
func (c *Commands) MakeCall(ctx context.Context, calleeID string, callType model.CallType) (*model.Call, error) {
	if calleeID == "" {
		return nil, ErrNoCallee
	}

	created, err := c.api.CreateCall(ctx, &model.Call{
		ID:        uuid.New().String(),
		CallerID:  c.userID,
		CalleeID:  calleeID,
		Type:      callType,
		Status:    model.CallInitiated,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("make call: %w", err)
	}

	c.store.Dispatch(state.AddCall{Call: *created})
	c.conn.Send(model.EventCallInitiated, created)
	return created, nil
}

// ScheduleMeeting creates a meeting and announces it.
func (c *Commands) ScheduleMeeting(ctx context.Context, title string, at time.Time, durationMinutes int) (*model.Meeting, error) {
	if at.IsZero() {
		return nil, ErrNoSchedule
	}

	created, err := c.api.CreateMeeting(ctx, &model.Meeting{
		ID:          uuid.New().String(),
		OrganizerID: c.userID,
		Title:       title,
		ScheduledAt: at,
		Duration:    durationMinutes,
		Status:      model.MeetingScheduled,
	})
	if err != nil {
		return nil, fmt.Errorf("schedule meeting: %w", err)
	}

	c.store.Dispatch(state.AddMeeting{Meeting: *created})
	c.conn.Send(model.EventMeetingScheduled, created)
	return created, nil
}

// AddContact creates a contact relationship. Contacts have no wire
// event; propagation is REST-only.
func (c *Commands) AddContact(ctx context.Context, targetID, nickname string) (*model.Contact, error) {
	if targetID == "" {
		return nil, ErrNoTarget
	}

	created, err := c.api.CreateContact(ctx, &model.Contact{
		OwnerID:  c.userID,
		TargetID: targetID,
		Nickname: nickname,
	})
	if err != nil {
		return nil, fmt.Errorf("add contact: %w", err)
	}

	c.store.Dispatch(state.AddContact{Contact: *created})
	return created, nil
}

// MarkMessagesAsRead zeroes a room's unread count locally and tells the
// other participants. No REST round trip is required.
func (c *Commands) MarkMessagesAsRead(roomID string) {
	c.store.Dispatch(state.MarkRoomRead{RoomID: roomID})
	c.conn.Send(model.EventMessageRead, model.ReceiptPayload{
		RoomID: roomID,
		UserID: c.userID,
		At:     time.Now().UTC(),
	})
}

// SendTyping relays a typing indicator. Transport only, never persisted.
func (c *Commands) SendTyping(roomID string, isTyping bool) {
	c.conn.Send(model.EventUserTyping, model.TypingPayload{
		RoomID:   roomID,
		UserID:   c.userID,
		IsTyping: isTyping,
	})
}
