package state

import "github.com/velorahq/crewchat/internal/model"

// Action is one member of the closed set of state transitions. The
// store mutates only through dispatched actions; nothing else touches
// the state tree.
type Action interface {
	isAction()
}

// SetCurrentUser records whose client this is. Messages authored by the
// current user never count as unread.
type SetCurrentUser struct{ UserID string }

// SetActiveRoom records which room the user is looking at.
type SetActiveRoom struct{ RoomID string }

// SetChatRooms replaces the whole room collection (initial load).
type SetChatRooms struct{ Rooms []model.ChatRoom }

// AddChatRoom inserts a room; an existing room with the same id is replaced.
type AddChatRoom struct{ Room model.ChatRoom }

// UpdateChatRoom value-replaces an existing room. Unknown ids are ignored.
type UpdateChatRoom struct{ Room model.ChatRoom }

// RemoveChatRoom deletes a room. Its message bucket is retained so an
// undo can restore history.
type RemoveChatRoom struct{ RoomID string }

// SetRoomMessages replaces one room's message bucket (history fetch).
type SetRoomMessages struct {
	RoomID   string
	Messages []model.Message
}

// AddMessage appends a message to its room's bucket, subject to the
// duplicate admission rule.
type AddMessage struct{ Message model.Message }

// UpdateMessage value-replaces a message within its room's bucket.
type UpdateMessage struct{ Message model.Message }

// RemoveMessage deletes a message from exactly the bucket it belongs to.
type RemoveMessage struct {
	RoomID    string
	MessageID string
}

// MarkRoomRead zeroes one room's unread count.
type MarkRoomRead struct{ RoomID string }

// SetCalls replaces the call collection.
type SetCalls struct{ Calls []model.Call }

// AddCall inserts or replaces a call.
type AddCall struct{ Call model.Call }

// UpdateCall value-replaces an existing call. Unknown ids are ignored.
type UpdateCall struct{ Call model.Call }

// RemoveCall deletes a call.
type RemoveCall struct{ CallID string }

// SetMeetings replaces the meeting collection.
type SetMeetings struct{ Meetings []model.Meeting }

// AddMeeting inserts or replaces a meeting.
type AddMeeting struct{ Meeting model.Meeting }

// UpdateMeeting value-replaces an existing meeting. Unknown ids are ignored.
type UpdateMeeting struct{ Meeting model.Meeting }

// RemoveMeeting deletes a meeting.
type RemoveMeeting struct{ MeetingID string }

// SetContacts replaces the contact collection.
type SetContacts struct{ Contacts []model.Contact }

// AddContact inserts or replaces a contact.
type AddContact struct{ Contact model.Contact }

// UpdateContact value-replaces an existing contact. Unknown ids are ignored.
type UpdateContact struct{ Contact model.Contact }

// RemoveContact deletes a contact.
type RemoveContact struct{ ContactID string }

// SetStickerPacks replaces the sticker pack catalog.
type SetStickerPacks struct{ Packs []model.StickerPack }

// SetPackStickers replaces the stickers of one pack.
type SetPackStickers struct {
	PackID   string
	Stickers []model.Sticker
}

func (SetCurrentUser) isAction()  {}
func (SetActiveRoom) isAction()   {}
func (SetChatRooms) isAction()    {}
func (AddChatRoom) isAction()     {}
func (UpdateChatRoom) isAction()  {}
func (RemoveChatRoom) isAction()  {}
func (SetRoomMessages) isAction() {}
func (AddMessage) isAction()      {}
func (UpdateMessage) isAction()   {}
func (RemoveMessage) isAction()   {}
func (MarkRoomRead) isAction()    {}
func (SetCalls) isAction()        {}
func (AddCall) isAction()         {}
func (UpdateCall) isAction()      {}
func (RemoveCall) isAction()      {}
func (SetMeetings) isAction()     {}
func (AddMeeting) isAction()      {}
func (UpdateMeeting) isAction()   {}
func (RemoveMeeting) isAction()   {}
func (SetContacts) isAction()     {}
func (AddContact) isAction()      {}
func (UpdateContact) isAction()   {}
func (RemoveContact) isAction()   {}
func (SetStickerPacks) isAction() {}
func (SetPackStickers) isAction() {}
