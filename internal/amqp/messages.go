package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds published on the batch events queue.
const (
	EventBatchIngested = "batch.ingested"
	EventBatchDeleted  = "batch.deleted"
)

// BatchEvent notifies consumers that an upload batch changed. It carries only
// identifiers; consumers fetch the full rows from the database.
type BatchEvent struct {
	Kind      string    `json:"kind"`
	UploadID  int64     `json:"upload_id"`
	Filename  string    `json:"filename,omitempty"`
	Rows      int       `json:"rows,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBatchIngested builds an event for a freshly stored batch.
func NewBatchIngested(uploadID int64, filename string, rows int) BatchEvent {
	return BatchEvent{
		Kind:      EventBatchIngested,
		UploadID:  uploadID,
		Filename:  filename,
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

// NewBatchDeleted builds an event for a deleted batch.
func NewBatchDeleted(uploadID int64) BatchEvent {
	return BatchEvent{
		Kind:      EventBatchDeleted,
		UploadID:  uploadID,
		Timestamp: time.Now(),
	}
}

func (e BatchEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func BatchEventFromJSON(data []byte) (BatchEvent, error) {
	var e BatchEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return BatchEvent{}, err
	}
	return e, nil
}
