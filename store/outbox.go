package store

import (
	"time"
)

type OutboxMessage struct {
	ID        int64
	Topic     string
	Payload   []byte
	MsgType   string
	PlantID   string
	Retries   int
	CreatedAt time.Time
	SentAt    *time.Time
}

func enqueueOutbox(q querier, topic string, payload []byte, msgType, plantID string) error {
	_, err := q.Exec(q.Q(`INSERT INTO outbox (topic, payload, msg_type, plant_id) VALUES (?, ?, ?, ?)`),
		topic, payload, msgType, plantID)
	return err
}

func (db *DB) EnqueueOutbox(topic string, payload []byte, msgType, plantID string) error {
	return enqueueOutbox(db, topic, payload, msgType, plantID)
}
func (t *Tx) EnqueueOutbox(topic string, payload []byte, msgType, plantID string) error {
	return enqueueOutbox(t, topic, payload, msgType, plantID)
}

func (db *DB) ListPendingOutbox(limit int) ([]*OutboxMessage, error) {
	rows, err := db.Query(db.Q(`SELECT id, topic, payload, msg_type, plant_id, retries, created_at FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []*OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var createdAt any
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.MsgType, &m.PlantID, &m.Retries, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (db *DB) AckOutbox(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET sent_at=datetime('now','localtime') WHERE id=?`), id)
	return err
}

func (db *DB) IncrementOutboxRetries(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET retries=retries+1 WHERE id=?`), id)
	return err
}
