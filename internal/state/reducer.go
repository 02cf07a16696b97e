package state

import (
	"maps"
	"slices"
	"time"

	"github.com/velorahq/crewchat/internal/model"
)

// DedupWindow is the timestamp tolerance under which a message with the
// same sender and content as an existing one is treated as the server
// echo of an optimistic local send.
const DedupWindow = 5 * time.Second

// State is the authoritative in-memory view of the messaging domain.
// Reduce never mutates a State it was given; every transition returns a
// fresh value with copy-on-write collections, so an older snapshot stays
// valid for whoever holds it.
type State struct {
	CurrentUserID string
	ActiveRoomID  string
	Rooms         map[string]model.ChatRoom
	Messages      map[string][]model.Message
	Calls         map[string]model.Call
	Meetings      map[string]model.Meeting
	Contacts      map[string]model.Contact
	StickerPacks  map[string]model.StickerPack
	Stickers      map[string][]model.Sticker
	TotalUnread   int
}

// NewState returns an empty state tree.
func NewState() State {
	return State{
		Rooms:        map[string]model.ChatRoom{},
		Messages:     map[string][]model.Message{},
		Calls:        map[string]model.Call{},
		Meetings:     map[string]model.Meeting{},
		Contacts:     map[string]model.Contact{},
		StickerPacks: map[string]model.StickerPack{},
		Stickers:     map[string][]model.Sticker{},
	}
}

// Reduce applies one action and returns the next state. Unknown-id
// updates and duplicate message admissions leave the state unchanged.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetCurrentUser:
		s.CurrentUserID = a.UserID
		return s

	case SetActiveRoom:
		s.ActiveRoomID = a.RoomID
		return s

	case SetChatRooms:
		rooms := make(map[string]model.ChatRoom, len(a.Rooms))
		for _, r := range a.Rooms {
			rooms[r.ID] = r
		}
		s.Rooms = rooms
		return recountUnread(s)

	case AddChatRoom:
		s.Rooms = cloneSet(s.Rooms, a.Room.ID, a.Room)
		return recountUnread(s)

	case UpdateChatRoom:
		if _, ok := s.Rooms[a.Room.ID]; !ok {
			return s
		}
		s.Rooms = cloneSet(s.Rooms, a.Room.ID, a.Room)
		return recountUnread(s)

	case RemoveChatRoom:
		if _, ok := s.Rooms[a.RoomID]; !ok {
			return s
		}
		rooms := maps.Clone(s.Rooms)
		delete(rooms, a.RoomID)
		s.Rooms = rooms
		// The message bucket is kept; see RemoveChatRoom docs.
		return recountUnread(s)

	case SetRoomMessages:
		s.Messages = cloneSet(s.Messages, a.RoomID, slices.Clone(a.Messages))
		return s

	case AddMessage:
		return admitMessage(s, a.Message)

	case UpdateMessage:
		bucket, ok := s.Messages[a.Message.RoomID]
		if !ok {
			return s
		}
		idx := slices.IndexFunc(bucket, func(m model.Message) bool { return m.ID == a.Message.ID })
		if idx < 0 {
			return s
		}
		next := slices.Clone(bucket)
		next[idx] = a.Message
		s.Messages = cloneSet(s.Messages, a.Message.RoomID, next)
		return s

	case RemoveMessage:
		bucket, ok := s.Messages[a.RoomID]
		if !ok {
			return s
		}
		next := slices.DeleteFunc(slices.Clone(bucket), func(m model.Message) bool { return m.ID == a.MessageID })
		if len(next) == len(bucket) {
			return s
		}
		s.Messages = cloneSet(s.Messages, a.RoomID, next)
		return s

	case MarkRoomRead:
		room, ok := s.Rooms[a.RoomID]
		if !ok || room.UnreadCount == 0 {
			return s
		}
		room.UnreadCount = 0
		s.Rooms = cloneSet(s.Rooms, a.RoomID, room)
		return recountUnread(s)

	case SetCalls:
		calls := make(map[string]model.Call, len(a.Calls))
		for _, c := range a.Calls {
			calls[c.ID] = c
		}
		s.Calls = calls
		return s

	case AddCall:
		s.Calls = cloneSet(s.Calls, a.Call.ID, a.Call)
		return s

	case UpdateCall:
		if _, ok := s.Calls[a.Call.ID]; !ok {
			return s
		}
		s.Calls = cloneSet(s.Calls, a.Call.ID, a.Call)
		return s

	case RemoveCall:
		if _, ok := s.Calls[a.CallID]; !ok {
			return s
		}
		calls := maps.Clone(s.Calls)
		delete(calls, a.CallID)
		s.Calls = calls
		return s

	case SetMeetings:
		meetings := make(map[string]model.Meeting, len(a.Meetings))
		for _, m := range a.Meetings {
			meetings[m.ID] = m
		}
		s.Meetings = meetings
		return s

	case AddMeeting:
		s.Meetings = cloneSet(s.Meetings, a.Meeting.ID, a.Meeting)
		return s

	case UpdateMeeting:
		if _, ok := s.Meetings[a.Meeting.ID]; !ok {
			return s
		}
		s.Meetings = cloneSet(s.Meetings, a.Meeting.ID, a.Meeting)
		return s

	case RemoveMeeting:
		if _, ok := s.Meetings[a.MeetingID]; !ok {
			return s
		}
		meetings := maps.Clone(s.Meetings)
		delete(meetings, a.MeetingID)
		s.Meetings = meetings
		return s

	case SetContacts:
		contacts := make(map[string]model.Contact, len(a.Contacts))
		for _, c := range a.Contacts {
			contacts[c.ID] = c
		}
		s.Contacts = contacts
		return s

	case AddContact:
		s.Contacts = cloneSet(s.Contacts, a.Contact.ID, a.Contact)
		return s

	case UpdateContact:
		if _, ok := s.Contacts[a.Contact.ID]; !ok {
			return s
		}
		s.Contacts = cloneSet(s.Contacts, a.Contact.ID, a.Contact)
		return s

	case RemoveContact:
		if _, ok := s.Contacts[a.ContactID]; !ok {
			return s
		}
		contacts := maps.Clone(s.Contacts)
		delete(contacts, a.ContactID)
		s.Contacts = contacts
		return s

	case SetStickerPacks:
		packs := make(map[string]model.StickerPack, len(a.Packs))
		for _, p := range a.Packs {
			packs[p.ID] = p
		}
		s.StickerPacks = packs
		return s

	case SetPackStickers:
		s.Stickers = cloneSet(s.Stickers, a.PackID, slices.Clone(a.Stickers))
		return s
	}

	return s
}

// admitMessage applies the duplicate admission rule and, for admitted
// messages, maintains the room's denormalized last message and unread
// count. A message for an unknown room creates a stub room, matching
// rooms discovered through inbound events.
func admitMessage(s State, msg model.Message) State {
	bucket := s.Messages[msg.RoomID]
	for _, existing := range bucket {
		if isDuplicate(existing, msg) {
			return s
		}
	}

	// Insertion order, not timestamp order.
	s.Messages = cloneSet(s.Messages, msg.RoomID, append(slices.Clone(bucket), msg))

	room, ok := s.Rooms[msg.RoomID]
	if !ok {
		room = model.ChatRoom{ID: msg.RoomID, Type: model.RoomPrivate, CreatedAt: msg.CreatedAt}
	}
	last := msg
	room.LastMessage = &last
	if msg.SenderID != s.CurrentUserID {
		room.UnreadCount++
	}
	s.Rooms = cloneSet(s.Rooms, msg.RoomID, room)

	return recountUnread(s)
}

// isDuplicate reports whether candidate represents the same logical send
// as existing: identical id, or same sender and content within the
// dedup window (an optimistic send meeting its server echo).
func isDuplicate(existing, candidate model.Message) bool {
	if existing.ID == candidate.ID {
		return true
	}
	if existing.SenderID != candidate.SenderID || existing.Content != candidate.Content {
		return false
	}
	delta := existing.CreatedAt.Sub(candidate.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta < DedupWindow
}

// recountUnread recomputes the global total from scratch. Summation over
// rooms rather than incremental tracking keeps the total from drifting.
func recountUnread(s State) State {
	total := 0
	for _, room := range s.Rooms {
		total += room.UnreadCount
	}
	s.TotalUnread = total
	return s
}

func cloneSet[V any](m map[string]V, key string, value V) map[string]V {
	next := maps.Clone(m)
	if next == nil {
		next = map[string]V{}
	}
	next[key] = value
	return next
}
