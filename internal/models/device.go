package models

import "time"

// DeviceStatus is the reachability of a SUT as seen by the backend.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
	StatusBusy    DeviceStatus = "busy"
)

// DefaultAgentPort is assumed when a generation-2 payload omits the port.
const DefaultAgentPort = 8080

// Device is the canonical record of a system under test.
type Device struct {
	IP           string       `json:"ip"`
	Port         int          `json:"port"`
	Status       DeviceStatus `json:"status"`
	Capabilities []string     `json:"capabilities"`
	LastSeen     *time.Time   `json:"last_seen"`
	CurrentTask  *string      `json:"current_task"`
	Hostname     *string      `json:"hostname,omitempty"`
	DeviceID     string       `json:"device_id,omitempty"`
	UniqueID     string       `json:"unique_id,omitempty"`
}

// Identity returns the best available key: device_id, then unique_id, then ip.
func (d Device) Identity() string {
	switch {
	case d.DeviceID != "":
		return d.DeviceID
	case d.UniqueID != "":
		return d.UniqueID
	default:
		return d.IP
	}
}

// Clone returns a deep copy so readers never alias store-owned slices.
func (d Device) Clone() Device {
	out := d
	if d.Capabilities != nil {
		out.Capabilities = append([]string(nil), d.Capabilities...)
	}
	if d.LastSeen != nil {
		ts := *d.LastSeen
		out.LastSeen = &ts
	}
	if d.CurrentTask != nil {
		task := *d.CurrentTask
		out.CurrentTask = &task
	}
	if d.Hostname != nil {
		host := *d.Hostname
		out.Hostname = &host
	}
	return out
}

// PairedDevice is a device the operator approved for runs.
// The server pushes the whole list; it is never merged per field.
type PairedDevice struct {
	Device
	Nickname string     `json:"nickname,omitempty"`
	PairedAt *time.Time `json:"paired_at,omitempty"`
}

func (p PairedDevice) Clone() PairedDevice {
	out := p
	out.Device = p.Device.Clone()
	if p.PairedAt != nil {
		ts := *p.PairedAt
		out.PairedAt = &ts
	}
	return out
}
