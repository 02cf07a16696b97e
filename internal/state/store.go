package state

import (
	"sync"
	"time"

	"github.com/velorahq/crewchat/internal/bus"
	"github.com/velorahq/crewchat/internal/model"
)

// Store serializes dispatches against the state tree and publishes
// change notifications on the bus. It is the single owner of the
// in-memory domain state; commands and inbound event wiring go through
// Dispatch, never through direct mutation.
type Store struct {
	mu    sync.Mutex
	state State
	bus   *bus.Bus
}

// NewStore creates a store for the given current user.
func NewStore(currentUserID string, b *bus.Bus) *Store {
	s := NewState()
	s.CurrentUserID = currentUserID
	return &Store{state: s, bus: b}
}

// Dispatch applies one action atomically. Dispatches are serialized;
// the order of concurrent dispatches is the order they win the lock.
func (st *Store) Dispatch(action Action) {
	st.mu.Lock()
	prev := st.state
	next := Reduce(prev, action)
	st.state = next
	st.mu.Unlock()

	st.notify(prev, next, action)
}

// Snapshot returns the current state tree. The returned value's
// collections are never mutated afterwards and are safe to read without
// holding any lock.
func (st *Store) Snapshot() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// RoomMessages returns one room's message bucket in insertion order.
func (st *Store) RoomMessages(roomID string) []model.Message {
	return st.Snapshot().Messages[roomID]
}

// TotalUnread returns the global unread total.
func (st *Store) TotalUnread() int {
	return st.Snapshot().TotalUnread
}

// ActiveRoomID returns the currently active room id.
func (st *Store) ActiveRoomID() string {
	return st.Snapshot().ActiveRoomID
}

func (st *Store) notify(prev, next State, action Action) {
	if st.bus == nil {
		return
	}

	var kind string
	var payload any

	switch a := action.(type) {
	case AddMessage:
		// A dropped duplicate leaves the bucket untouched; stay silent.
		if len(next.Messages[a.Message.RoomID]) == len(prev.Messages[a.Message.RoomID]) {
			return
		}
		kind, payload = bus.KindMessageAdmitted, a.Message
	case SetRoomMessages:
		kind, payload = bus.KindMessageUpdated, a.RoomID
	case UpdateMessage:
		kind, payload = bus.KindMessageUpdated, a.Message
	case RemoveMessage:
		kind, payload = bus.KindMessageRemoved, a
	case AddChatRoom:
		kind, payload = bus.KindRoomUpserted, a.Room
	case UpdateChatRoom:
		kind, payload = bus.KindRoomUpserted, a.Room
	case SetChatRooms:
		kind = bus.KindRoomUpserted
	case RemoveChatRoom:
		kind, payload = bus.KindRoomRemoved, a.RoomID
	case MarkRoomRead:
		kind, payload = bus.KindUnreadChanged, next.TotalUnread
	case SetCalls, AddCall, UpdateCall, RemoveCall:
		kind = bus.KindCallUpserted
	case SetMeetings, AddMeeting, UpdateMeeting, RemoveMeeting:
		kind = bus.KindMeetingUpserted
	case SetContacts, AddContact, UpdateContact, RemoveContact:
		kind = bus.KindContactUpserted
	case SetStickerPacks, SetPackStickers:
		kind = bus.KindStickersLoaded
	default:
		return
	}

	st.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})

	if next.TotalUnread != prev.TotalUnread && kind != bus.KindUnreadChanged {
		st.bus.Publish(bus.Event{Kind: bus.KindUnreadChanged, Timestamp: time.Now(), Payload: next.TotalUnread})
	}
}
