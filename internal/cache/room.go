package cache

import (
	"encoding/json"
	"time"

	"github.com/velorahq/crewchat/internal/model"
)

// UpsertRoom inserts or updates a room record.
func (db *DB) UpsertRoom(r *model.ChatRoom) error {
	participants, err := json.Marshal(r.Participants)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO rooms (id, name, room_type, participants, unread_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			room_type = excluded.room_type,
			participants = excluded.participants,
			unread_count = excluded.unread_count,
			updated_at = excluded.updated_at`,
		r.ID, r.Name, string(r.Type), string(participants), r.UnreadCount, r.CreatedAt.UnixMilli(), now)
	return err
}

// DeleteRoom removes a room record. Its cached messages stay, matching
// the in-memory store's room removal semantics.
func (db *DB) DeleteRoom(id string) error {
	_, err := db.Exec(`DELETE FROM rooms WHERE id = ?`, id)
	return err
}

// ListRooms returns all cached rooms.
func (db *DB) ListRooms() ([]model.ChatRoom, error) {
	rows, err := db.Query(`
		SELECT id, name, room_type, participants, unread_count, created_at
		FROM rooms ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rooms []model.ChatRoom
	for rows.Next() {
		var r model.ChatRoom
		var roomType, participants string
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.Name, &roomType, &participants, &r.UnreadCount, &createdAt); err != nil {
			return nil, err
		}
		r.Type = model.RoomType(roomType)
		r.CreatedAt = time.UnixMilli(createdAt).UTC()
		if err := json.Unmarshal([]byte(participants), &r.Participants); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}
