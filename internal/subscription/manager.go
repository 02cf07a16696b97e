// Package subscription keeps the transport's room subscription aligned
// with the room the user is looking at: unsubscribe the room being
// left, fetch the new room's history, subscribe the new room.
package subscription

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/velorahq/crewchat/internal/model"
	"github.com/velorahq/crewchat/internal/state"
	"github.com/velorahq/crewchat/internal/transport"
)

// HistoryFetcher is the REST collaborator read used on room entry.
type HistoryFetcher interface {
	ListMessages(ctx context.Context, roomID string) ([]model.Message, error)
}

// Transport is the push channel surface the manager needs.
type Transport interface {
	State() transport.State
	Send(eventType model.EventType, payload any)
}

// Manager reacts to active room changes. For every subscribe it sends
// there is a matching unsubscribe on the next room change or on Close;
// when the transport has dropped in between, the release is a no-op
// since the server already forgot the session.
type Manager struct {
	store   *state.Store
	fetcher HistoryFetcher
	conn    Transport
	logger  *zap.Logger
	userID  string

	mu         sync.Mutex
	activeRoom string
	generation int
}

// NewManager creates a subscription manager.
func NewManager(store *state.Store, fetcher HistoryFetcher, conn Transport, userID string, logger *zap.Logger) *Manager {
	return &Manager{
		store:   store,
		fetcher: fetcher,
		conn:    conn,
		logger:  logger,
		userID:  userID,
	}
}

// SetActiveRoom switches the active room. The previous room is
// unsubscribed first, then the new room's history fetch is issued and
// the new room subscribed. An empty id leaves no room active.
func (m *Manager) SetActiveRoom(ctx context.Context, roomID string) {
	m.mu.Lock()
	prev := m.activeRoom
	if prev == roomID {
		m.mu.Unlock()
		return
	}
	m.activeRoom = roomID
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	if prev != "" {
		m.release(prev)
	}

	m.store.Dispatch(state.SetActiveRoom{RoomID: roomID})
	if roomID == "" {
		return
	}

	go m.loadHistory(ctx, roomID, gen)

	if m.conn.State() == transport.Connected {
		m.conn.Send(model.EventRoomSubscribe, model.RoomEventPayload{RoomID: roomID, UserID: m.userID})
	}
}

// loadHistory fetches the room's messages and replaces its bucket. A
// fetch that outlives its room switch is discarded: without the
// generation check a slow response for an abandoned room would
// overwrite that room's bucket long after the user moved on.
func (m *Manager) loadHistory(ctx context.Context, roomID string, gen int) {
	msgs, err := m.fetcher.ListMessages(ctx, roomID)
	if err != nil {
		// Non-fatal: the room simply starts with empty history.
		m.logger.Warn("history fetch failed", zap.String("room", roomID), zap.Error(err))
		return
	}

	m.mu.Lock()
	stale := gen != m.generation
	m.mu.Unlock()
	if stale {
		m.logger.Info("discarding stale history fetch", zap.String("room", roomID))
		return
	}

	m.store.Dispatch(state.SetRoomMessages{RoomID: roomID, Messages: msgs})
}

// Close releases the current subscription and invalidates any pending
// history fetch.
func (m *Manager) Close() {
	m.mu.Lock()
	prev := m.activeRoom
	m.activeRoom = ""
	m.generation++
	m.mu.Unlock()

	if prev != "" {
		m.release(prev)
	}
}

func (m *Manager) release(roomID string) {
	if m.conn.State() != transport.Connected {
		return
	}
	m.conn.Send(model.EventRoomUnsubscribe, model.RoomEventPayload{RoomID: roomID, UserID: m.userID})
}
