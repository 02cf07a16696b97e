package cache

import (
	"encoding/json"
	"time"

	"github.com/velorahq/crewchat/internal/model"
)

// UpsertMessage inserts or updates a message (idempotent on room_id + msg_id).
func (db *DB) UpsertMessage(m *model.Message) error {
	statuses, err := json.Marshal(m.Statuses)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO messages (room_id, msg_id, sender_id, msg_type, content, media_url, statuses, created_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(room_id, msg_id) DO UPDATE SET
			content = excluded.content,
			media_url = excluded.media_url,
			statuses = excluded.statuses`,
		m.RoomID, m.ID, m.SenderID, string(m.Type), m.Content, m.MediaURL, string(statuses), m.CreatedAt.UnixMilli(), now)
	return err
}

// ReplaceRoomMessages swaps a room's cached history in one transaction.
func (db *DB) ReplaceRoomMessages(roomID string, msgs []model.Message) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE room_id = ?`, roomID); err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	for _, m := range msgs {
		statuses, err := json.Marshal(m.Statuses)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO messages (room_id, msg_id, sender_id, msg_type, content, media_url, statuses, created_at, stored_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			roomID, m.ID, m.SenderID, string(m.Type), m.Content, m.MediaURL, string(statuses), m.CreatedAt.UnixMilli(), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteMessage removes one message from its room's cached history.
func (db *DB) DeleteMessage(roomID, msgID string) error {
	_, err := db.Exec(`DELETE FROM messages WHERE room_id = ? AND msg_id = ?`, roomID, msgID)
	return err
}

// ListMessages returns a room's cached messages in insertion order.
func (db *DB) ListMessages(roomID string) ([]model.Message, error) {
	rows, err := db.Query(`
		SELECT room_id, msg_id, sender_id, msg_type, content, media_url, statuses, created_at
		FROM messages WHERE room_id = ? ORDER BY seq ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var msgType, statuses string
		var createdAt int64
		if err := rows.Scan(&m.RoomID, &m.ID, &m.SenderID, &msgType, &m.Content, &m.MediaURL, &statuses, &createdAt); err != nil {
			return nil, err
		}
		m.Type = model.MessageType(msgType)
		m.CreatedAt = time.UnixMilli(createdAt).UTC()
		if err := json.Unmarshal([]byte(statuses), &m.Statuses); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
