package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"benchmark_dashboard/internal/models"
)

// wireDevice is the generation-2 device payload.
type wireDevice struct {
	IP           string          `json:"ip"`
	Port         *int            `json:"port"`
	Status       string          `json:"status"`
	DeviceID     string          `json:"device_id"`
	UniqueID     string          `json:"unique_id"`
	Hostname     *string         `json:"hostname"`
	Capabilities []string        `json:"capabilities"`
	LastSeen     json.RawMessage `json:"last_seen"`
	CurrentTask  *string         `json:"current_task"`
	Nickname     string          `json:"nickname"`
	PairedAt     json.RawMessage `json:"paired_at"`
}

// legacyDevice is the generation-1 value of an address -> device mapping.
type legacyDevice struct {
	IP           string          `json:"ip"`
	Port         int             `json:"port"`
	Status       string          `json:"status"`
	Capabilities []string        `json:"capabilities"`
	LastSeen     json.RawMessage `json:"last_seen"`
	CurrentTask  *string         `json:"current_task"`
}

// NormalizeDevice maps a generation-2 payload onto the canonical Device.
// Busy is not derivable from generation-2 status, anything but "online"
// becomes offline.
func NormalizeDevice(raw json.RawMessage) (models.Device, error) {
	var w wireDevice
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.Device{}, fmt.Errorf("%w: device: %v", ErrMalformedPayload, err)
	}
	return w.normalize()
}

func (w wireDevice) normalize() (models.Device, error) {
	lastSeen, err := parseTimestamp(w.LastSeen)
	if err != nil {
		return models.Device{}, fmt.Errorf("%w: device %q last_seen: %v", ErrMalformedPayload, w.IP, err)
	}

	d := models.Device{
		IP:           strings.TrimSpace(w.IP),
		Port:         models.DefaultAgentPort,
		Status:       models.StatusOffline,
		Capabilities: w.Capabilities,
		LastSeen:     lastSeen,
		CurrentTask:  w.CurrentTask,
		Hostname:     w.Hostname,
		DeviceID:     strings.TrimSpace(w.DeviceID),
		UniqueID:     strings.TrimSpace(w.UniqueID),
	}
	if w.Port != nil && *w.Port > 0 {
		d.Port = *w.Port
	}
	if w.Status == string(models.StatusOnline) {
		d.Status = models.StatusOnline
	}
	if d.Capabilities == nil {
		d.Capabilities = []string{}
	}
	if d.Identity() == "" {
		return models.Device{}, fmt.Errorf("%w: device has no ip, unique_id or device_id", ErrMalformedPayload)
	}
	return d, nil
}

func (w wireDevice) normalizePaired() (models.PairedDevice, error) {
	d, err := w.normalize()
	if err != nil {
		return models.PairedDevice{}, err
	}
	pairedAt, err := parseTimestamp(w.PairedAt)
	if err != nil {
		return models.PairedDevice{}, fmt.Errorf("%w: paired device %q paired_at: %v", ErrMalformedPayload, d.Identity(), err)
	}
	return models.PairedDevice{Device: d, Nickname: w.Nickname, PairedAt: pairedAt}, nil
}

// normalize keeps legacy fields as sent. Only the address falls back to the
// mapping key and an unknown status reads as offline.
func (l legacyDevice) normalize(address string) (models.Device, error) {
	lastSeen, err := parseTimestamp(l.LastSeen)
	if err != nil {
		return models.Device{}, fmt.Errorf("%w: legacy device %q last_seen: %v", ErrMalformedPayload, address, err)
	}

	ip := strings.TrimSpace(l.IP)
	if ip == "" {
		ip = strings.TrimSpace(address)
	}
	if ip == "" {
		return models.Device{}, fmt.Errorf("%w: legacy device has no address", ErrMalformedPayload)
	}

	status := models.DeviceStatus(l.Status)
	switch status {
	case models.StatusOnline, models.StatusOffline, models.StatusBusy:
	default:
		status = models.StatusOffline
	}

	return models.Device{
		IP:           ip,
		Port:         l.Port,
		Status:       status,
		Capabilities: l.Capabilities,
		LastSeen:     lastSeen,
		CurrentTask:  l.CurrentTask,
	}, nil
}
