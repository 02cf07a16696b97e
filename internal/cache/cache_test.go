package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/velorahq/crewchat/internal/bus"
	"github.com/velorahq/crewchat/internal/model"
	"github.com/velorahq/crewchat/internal/state"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpsertMessageIdempotent(t *testing.T) {
	db := testDB(t)

	msg := &model.Message{ID: "m1", RoomID: "r1", SenderID: "u2", Type: model.MessageText, Content: "v1", CreatedAt: time.UnixMilli(1000)}
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}
	msg.Content = "v2"
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent)", len(msgs))
	}
	if msgs[0].Content != "v2" {
		t.Errorf("content = %q, want v2 (updated)", msgs[0].Content)
	}
}

func TestListMessagesInsertionOrder(t *testing.T) {
	db := testDB(t)

	// Deliberately out of timestamp order; listing follows insertion.
	for _, m := range []model.Message{
		{ID: "m1", RoomID: "r1", SenderID: "u2", Content: "late", CreatedAt: time.UnixMilli(5000)},
		{ID: "m2", RoomID: "r1", SenderID: "u2", Content: "early", CreatedAt: time.UnixMilli(1000)},
	} {
		if err := db.UpsertMessage(&m); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.ListMessages("r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Errorf("msgs = %+v, want insertion order", msgs)
	}
}

func TestRoomRoundTrip(t *testing.T) {
	db := testDB(t)

	room := &model.ChatRoom{
		ID:           "r1",
		Name:         "ops",
		Type:         model.RoomGroup,
		Participants: []string{"u1", "u2"},
		UnreadCount:  3,
		CreatedAt:    time.UnixMilli(1000).UTC(),
	}
	if err := db.UpsertRoom(room); err != nil {
		t.Fatal(err)
	}

	rooms, err := db.ListRooms()
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 1 {
		t.Fatalf("got %d rooms, want 1", len(rooms))
	}
	got := rooms[0]
	if got.Name != "ops" || got.Type != model.RoomGroup || got.UnreadCount != 3 || len(got.Participants) != 2 {
		t.Errorf("room = %+v", got)
	}
}

func TestDeleteRoomKeepsMessages(t *testing.T) {
	db := testDB(t)

	_ = db.UpsertRoom(&model.ChatRoom{ID: "r1", Type: model.RoomPrivate})
	_ = db.UpsertMessage(&model.Message{ID: "m1", RoomID: "r1", SenderID: "u2", Content: "hi"})

	if err := db.DeleteRoom("r1"); err != nil {
		t.Fatal(err)
	}

	rooms, _ := db.ListRooms()
	if len(rooms) != 0 {
		t.Errorf("rooms = %d, want 0", len(rooms))
	}
	msgs, _ := db.ListMessages("r1")
	if len(msgs) != 1 {
		t.Errorf("messages = %d, want 1 (history retained)", len(msgs))
	}
}

func TestWriterMirrorsAdmittedMessages(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	st := state.NewStore("u1", b)

	w := NewWriter(db, st, b, zap.NewNop())
	w.Start(context.Background())
	defer w.Stop()

	st.Dispatch(state.AddMessage{Message: model.Message{
		ID: "m1", RoomID: "r1", SenderID: "u2", Type: model.MessageText,
		Content: "hello", CreatedAt: time.Now().UTC(),
	}})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msgs, err := db.ListMessages("r1")
		if err != nil {
			t.Fatal(err)
		}
		if len(msgs) == 1 {
			rooms, _ := db.ListRooms()
			if len(rooms) != 1 || rooms[0].UnreadCount != 1 {
				t.Errorf("rooms = %+v, want r1 with unread 1", rooms)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("message never reached the cache")
}

func TestHydrateRestoresState(t *testing.T) {
	db := testDB(t)

	_ = db.UpsertRoom(&model.ChatRoom{ID: "r1", Name: "ops", Type: model.RoomGroup, UnreadCount: 2})
	_ = db.UpsertMessage(&model.Message{ID: "m1", RoomID: "r1", SenderID: "u2", Content: "one"})
	_ = db.UpsertMessage(&model.Message{ID: "m2", RoomID: "r1", SenderID: "u2", Content: "two"})

	st := state.NewStore("u1", nil)
	if err := Hydrate(db, st); err != nil {
		t.Fatal(err)
	}

	snap := st.Snapshot()
	if _, ok := snap.Rooms["r1"]; !ok {
		t.Fatal("room not hydrated")
	}
	if got := len(snap.Messages["r1"]); got != 2 {
		t.Errorf("bucket size = %d, want 2", got)
	}
	if snap.TotalUnread != 2 {
		t.Errorf("total unread = %d, want 2", snap.TotalUnread)
	}
}
