package daemon

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/velorahq/crewchat/internal/bus"
	"github.com/velorahq/crewchat/internal/model"
	"github.com/velorahq/crewchat/internal/state"
	"github.com/velorahq/crewchat/internal/transport"
)

// EventHandler translates inbound push channel frames into store
// actions and presence notifications. The handler map covers every
// subscribable event type; Bind refuses a partial map so a new wire
// event cannot be silently ignored.
type EventHandler struct {
	store  *state.Store
	bus    *bus.Bus
	logger *zap.Logger
	unsubs []func()
}

// NewEventHandler creates the inbound event wiring.
func NewEventHandler(store *state.Store, b *bus.Bus, logger *zap.Logger) *EventHandler {
	return &EventHandler{store: store, bus: b, logger: logger}
}

// Subscriber is the transport surface Bind needs.
type Subscriber interface {
	Subscribe(eventType model.EventType, h transport.Handler) func()
}

// Bind subscribes a handler for every inbound event type on the transport.
func (h *EventHandler) Bind(conn Subscriber) {
	handlers := map[model.EventType]transport.Handler{
		model.EventMessage:          h.onMessage,
		model.EventMessageDelivered: h.onReceipt(model.DeliveryDelivered),
		model.EventMessageRead:      h.onReceipt(model.DeliveryRead),
		model.EventCallInitiated:    h.onCallInitiated,
		model.EventCallAccepted:     h.onCallStatus(model.CallConnected),
		model.EventCallRejected:     h.onCallStatus(model.CallRejected),
		model.EventCallEnded:        h.onCallStatus(model.CallEnded),
		model.EventMeetingScheduled: h.onMeetingScheduled,
		model.EventMeetingUpdated:   h.onMeetingUpdated,
		model.EventMeetingCancelled: h.onMeetingCancelled,
		model.EventUserTyping:       h.onTyping,
		model.EventUserOnline:       h.onPresence(bus.KindOnline),
		model.EventUserOffline:      h.onPresence(bus.KindOffline),
	}

	for _, eventType := range model.SubscribableEvents {
		handler, ok := handlers[eventType]
		if !ok {
			h.logger.Fatal("no handler for inbound event type", zap.String("event", string(eventType)))
		}
		h.unsubs = append(h.unsubs, conn.Subscribe(eventType, handler))
	}
}

// Unbind removes every subscription Bind installed.
func (h *EventHandler) Unbind() {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = nil
}

func (h *EventHandler) onMessage(frame model.Frame) {
	var msg model.Message
	if !h.decode(frame, &msg) {
		return
	}
	h.store.Dispatch(state.AddMessage{Message: msg})
}

// onReceipt folds a delivery or read receipt into the message's status
// records, value-replacing the message.
func (h *EventHandler) onReceipt(deliveryState model.DeliveryState) transport.Handler {
	return func(frame model.Frame) {
		var receipt model.ReceiptPayload
		if !h.decode(frame, &receipt) {
			return
		}

		snap := h.store.Snapshot()
		for _, msg := range snap.Messages[receipt.RoomID] {
			if msg.ID != receipt.MessageID {
				continue
			}
			updated := msg
			updated.Statuses = upsertStatus(msg.Statuses, model.DeliveryStatus{
				UserID: receipt.UserID,
				State:  deliveryState,
				At:     receipt.At,
			})
			h.store.Dispatch(state.UpdateMessage{Message: updated})
			return
		}
	}
}

func (h *EventHandler) onCallInitiated(frame model.Frame) {
	var call model.Call
	if !h.decode(frame, &call) {
		return
	}
	h.store.Dispatch(state.AddCall{Call: call})
}

func (h *EventHandler) onCallStatus(status model.CallStatus) transport.Handler {
	return func(frame model.Frame) {
		var call model.Call
		if !h.decode(frame, &call) {
			return
		}
		existing, ok := h.store.Snapshot().Calls[call.ID]
		if !ok {
			// A terminal event can outrun its call_initiated; take the
			// frame's version as-is.
			existing = call
		}
		existing.Status = status
		if call.Duration > 0 {
			existing.Duration = call.Duration
		}
		h.store.Dispatch(state.AddCall{Call: existing})
	}
}

func (h *EventHandler) onMeetingScheduled(frame model.Frame) {
	var m model.Meeting
	if !h.decode(frame, &m) {
		return
	}
	h.store.Dispatch(state.AddMeeting{Meeting: m})
}

func (h *EventHandler) onMeetingUpdated(frame model.Frame) {
	var m model.Meeting
	if !h.decode(frame, &m) {
		return
	}
	h.store.Dispatch(state.AddMeeting{Meeting: m})
}

func (h *EventHandler) onMeetingCancelled(frame model.Frame) {
	var m model.Meeting
	if !h.decode(frame, &m) {
		return
	}
	m.Status = model.MeetingCancelled
	h.store.Dispatch(state.AddMeeting{Meeting: m})
}

func (h *EventHandler) onTyping(frame model.Frame) {
	var p model.TypingPayload
	if !h.decode(frame, &p) {
		return
	}
	h.bus.Publish(bus.Event{Kind: bus.KindTyping, Timestamp: frame.Timestamp, Payload: p})
}

func (h *EventHandler) onPresence(kind string) transport.Handler {
	return func(frame model.Frame) {
		var p model.PresencePayload
		if !h.decode(frame, &p) {
			return
		}
		h.bus.Publish(bus.Event{Kind: kind, Timestamp: frame.Timestamp, Payload: p})
	}
}

func (h *EventHandler) decode(frame model.Frame, v any) bool {
	if err := json.Unmarshal(frame.Payload, v); err != nil {
		h.logger.Warn("dropping undecodable payload",
			zap.String("event", string(frame.Type)), zap.Error(err))
		return false
	}
	return true
}

func upsertStatus(statuses []model.DeliveryStatus, s model.DeliveryStatus) []model.DeliveryStatus {
	next := make([]model.DeliveryStatus, len(statuses), len(statuses)+1)
	copy(next, statuses)
	for i, existing := range next {
		if existing.UserID == s.UserID {
			next[i] = s
			return next
		}
	}
	return append(next, s)
}
