package amqp

import (
	"encoding/json"
	"time"
)

// ItemSyncMessage asks the export worker to sync one food item. It
// carries only the ID and version; the worker fetches the full row from
// the database so the queue never holds stale item data.
type ItemSyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewItemSyncMessage(id, version int64) *ItemSyncMessage {
	return &ItemSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *ItemSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ItemSyncMessageFromJSON(data []byte) (*ItemSyncMessage, error) {
	var msg ItemSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReminderMessage tells the reminder worker that an item entered a
// bucket worth notifying about. It is self-contained because the item
// may be deleted before the message is consumed.
type ReminderMessage struct {
	UserEmail  string    `json:"user_email"`
	ItemID     int64     `json:"item_id"`
	ItemName   string    `json:"item_name"`
	Bucket     string    `json:"bucket"`
	ExpiryDate string    `json:"expiry_date"`
	Timestamp  time.Time `json:"timestamp"`
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
