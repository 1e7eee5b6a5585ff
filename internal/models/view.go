package models

import "time"

// ServerStatus is the body of GET /api/status.
type ServerStatus struct {
	Status     string  `json:"status"`
	Version    string  `json:"version"`
	Uptime     float64 `json:"uptime"`
	ActiveRuns int     `json:"active_runs"`
	TotalSUTs  int     `json:"total_suts"`
	OnlineSUTs int     `json:"online_suts"`
}

// ImageServiceStatus is the body of GET /api/omniparser/status.
type ImageServiceStatus struct {
	Status string `json:"status"` // online | offline | error
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// View is a point-in-time copy of everything the dashboard renders.
type View struct {
	Version       uint64                `json:"version"`
	Connected     bool                  `json:"connected"`
	Devices       map[string]Device     `json:"devices"`
	Games         map[string]GameConfig `json:"games"`
	ActiveRuns    map[string]Run        `json:"active_runs"`
	RunHistory    []Run                 `json:"run_history"`
	PairedDevices []PairedDevice        `json:"paired_devices"`
	Notifications []Notification        `json:"notifications"`
	ServerStatus  *ServerStatus         `json:"server_status,omitempty"`
	ImageService  *ImageServiceStatus   `json:"image_service,omitempty"`
	TakenAt       time.Time             `json:"taken_at"`
}
