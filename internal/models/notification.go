package models

import "time"

// NotificationType categorizes a backend-reported automation failure.
type NotificationType string

const (
	NotifyFileNotFound    NotificationType = "file_not_found"
	NotifyLaunchFailed    NotificationType = "launch_failed"
	NotifyConnectionError NotificationType = "connection_error"
	NotifyAutomationError NotificationType = "automation_error"
)

// Label is the operator-facing category. Unknown types read as "Error".
func (t NotificationType) Label() string {
	switch t {
	case NotifyFileNotFound:
		return "File Not Found"
	case NotifyLaunchFailed:
		return "Launch Failed"
	case NotifyConnectionError:
		return "Connection Error"
	case NotifyAutomationError:
		return "Automation Error"
	default:
		return "Error"
	}
}

// Notification is keyed by a locally assigned id, not a server id.
type Notification struct {
	ID        uint64           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	RunID     string           `json:"run_id,omitempty"`
	GameName  string           `json:"game_name,omitempty"`
	SutIP     string           `json:"sut_ip,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
