package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/velorahq/crewchat/internal/bus"
	"github.com/velorahq/crewchat/internal/model"
	"github.com/velorahq/crewchat/internal/state"
)

// Writer mirrors store changes into the cache. It subscribes to
// "store." events on the bus and writes behind the dispatch; a write
// failure is logged and never blocks the in-memory store.
type Writer struct {
	db     *DB
	store  *state.Store
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewWriter creates a write-behind cache writer.
func NewWriter(db *DB, store *state.Store, b *bus.Bus, logger *zap.Logger) *Writer {
	return &Writer{db: db, store: store, bus: b, logger: logger}
}

// Start subscribes to store change events on the bus.
func (w *Writer) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	ch, unsub := w.bus.Subscribe("store.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				w.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the writer.
func (w *Writer) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Writer) handleEvent(evt bus.Event) {
	var err error

	switch evt.Kind {
	case bus.KindMessageAdmitted:
		msg, ok := evt.Payload.(model.Message)
		if !ok {
			return
		}
		if err = w.db.UpsertMessage(&msg); err == nil {
			if room, found := w.store.Snapshot().Rooms[msg.RoomID]; found {
				err = w.db.UpsertRoom(&room)
			}
		}

	case bus.KindMessageUpdated:
		switch p := evt.Payload.(type) {
		case model.Message:
			err = w.db.UpsertMessage(&p)
		case string:
			// A replaced history bucket; mirror the whole room.
			err = w.db.ReplaceRoomMessages(p, w.store.RoomMessages(p))
		}

	case bus.KindMessageRemoved:
		if a, ok := evt.Payload.(state.RemoveMessage); ok {
			err = w.db.DeleteMessage(a.RoomID, a.MessageID)
		}

	case bus.KindRoomUpserted:
		if room, ok := evt.Payload.(model.ChatRoom); ok {
			err = w.db.UpsertRoom(&room)
		} else {
			err = w.syncRooms()
		}

	case bus.KindRoomRemoved:
		if id, ok := evt.Payload.(string); ok {
			err = w.db.DeleteRoom(id)
		}

	case bus.KindUnreadChanged:
		err = w.syncRooms()
	}

	if err != nil {
		w.logger.Error("cache write failed", zap.String("event", evt.Kind), zap.Error(err))
	}
}

func (w *Writer) syncRooms() error {
	for _, room := range w.store.Snapshot().Rooms {
		if err := w.db.UpsertRoom(&room); err != nil {
			return err
		}
	}
	return nil
}

// Hydrate loads cached rooms and message history into the store. Called
// once at startup, before the first REST fetch.
func Hydrate(db *DB, store *state.Store) error {
	rooms, err := db.ListRooms()
	if err != nil {
		return err
	}
	if len(rooms) > 0 {
		store.Dispatch(state.SetChatRooms{Rooms: rooms})
	}
	for _, room := range rooms {
		msgs, err := db.ListMessages(room.ID)
		if err != nil {
			return err
		}
		if len(msgs) > 0 {
			store.Dispatch(state.SetRoomMessages{RoomID: room.ID, Messages: msgs})
		}
	}
	return nil
}
