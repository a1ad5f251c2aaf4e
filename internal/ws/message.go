package ws

import (
	"time"

	"github.com/m-a-x-v/buildings-dashboard/internal/ingest"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageSnapshotPartial  MessageType = "snapshot.partial"
	MessageSnapshotComplete MessageType = "snapshot.complete"
	MessageIngestError      MessageType = "ingest.error"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType  `json:"type"`
	RunID     string       `json:"run_id,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	State     ingest.State `json:"state"`
}

// FromState wraps an ingestion state in its message envelope.
func FromState(st ingest.State) Message {
	t := MessageSnapshotPartial
	switch {
	case st.Err != "":
		t = MessageIngestError
	case st.Snapshot != nil && st.Snapshot.Complete:
		t = MessageSnapshotComplete
	}
	return Message{
		Type:      t,
		RunID:     st.RunID,
		Timestamp: time.Now().UTC(),
		State:     st,
	}
}
