package models

import "time"

// Journal entry kinds.
const (
	JournalConnected     = "CONNECTED"
	JournalDisconnected  = "DISCONNECTED"
	JournalNotification  = "NOTIFICATION"
	JournalCommandFailed = "COMMAND_FAILED"
)

// JournalEntry is a single local audit record.
type JournalEntry struct {
	EntryID    string    `json:"entry_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Kind       string    `json:"kind"`    // CONNECTED | DISCONNECTED | NOTIFICATION | COMMAND_FAILED
	Message    string    `json:"message"` // human-readable
	Metadata   any       `json:"metadata,omitempty"`
}
