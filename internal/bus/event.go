package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds published by the sync daemon. Subscribers filter by
// namespace prefix, e.g. "store." receives every store change.
const (
	KindRoomUpserted    = "store.room_upserted"
	KindRoomRemoved     = "store.room_removed"
	KindMessageAdmitted = "store.message_admitted"
	KindMessageUpdated  = "store.message_updated"
	KindMessageRemoved  = "store.message_removed"
	KindCallUpserted    = "store.call_upserted"
	KindMeetingUpserted = "store.meeting_upserted"
	KindContactUpserted = "store.contact_upserted"
	KindStickersLoaded  = "store.stickers_loaded"
	KindUnreadChanged   = "store.unread_changed"

	KindTyping  = "presence.typing"
	KindOnline  = "presence.online"
	KindOffline = "presence.offline"

	KindTransportUp   = "transport.connected"
	KindTransportDown = "transport.disconnected"
)
