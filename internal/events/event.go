// Package events turns raw push-channel payloads from either backend
// protocol generation into canonical records.
//
// Every inbound message is decoded into exactly one Event variant. Decoding
// is pure: it never touches shared state and either returns a complete
// Event or an error.
package events

import (
	"time"

	"benchmark_dashboard/internal/models"
)

// Push channel event names.
const (
	NameInitialDevices    = "initial_devices"
	NameDeviceEvent       = "device_event"
	NameSutsUpdate        = "suts_update"
	NameGamesUpdate       = "games_update"
	NameRunsUpdate        = "runs_update"
	NameRunProgress       = "run_progress"
	NamePairedSutsUpdate  = "paired_suts_update"
	NameErrorNotification = "error_notification"
)

// Names lists every data event a session subscribes to.
var Names = []string{
	NameInitialDevices,
	NameDeviceEvent,
	NameSutsUpdate,
	NameGamesUpdate,
	NameRunsUpdate,
	NameRunProgress,
	NamePairedSutsUpdate,
	NameErrorNotification,
}

// Generation identifies which backend protocol shaped a payload.
type Generation int

const (
	Gen1 Generation = 1 // address -> status mapping
	Gen2 Generation = 2 // {devices: [...]} rosters and device_event deltas
)

// Event is the closed set of canonical inbound messages.
type Event interface{ isEvent() }

// FullRoster replaces the whole device mapping.
type FullRoster struct {
	Generation  Generation
	Devices     map[string]models.Device
	TotalCount  int
	OnlineCount int
}

// DeviceDelta replaces a single device entry.
type DeviceDelta struct {
	Kind      string // added | updated | removed, informational only
	Device    models.Device
	Timestamp *time.Time
}

type GameRoster struct {
	Games map[string]models.GameConfig
}

type RunsSnapshot struct {
	Active  map[string]models.Run
	History []models.Run
}

type RunProgress struct {
	RunID string
	Run   models.Run
}

type PairedRoster struct {
	Devices []models.PairedDevice
}

// ErrorNotification carries a notification whose local id is not yet assigned.
type ErrorNotification struct {
	Notification models.Notification
}

func (FullRoster) isEvent()        {}
func (DeviceDelta) isEvent()       {}
func (GameRoster) isEvent()        {}
func (RunsSnapshot) isEvent()      {}
func (RunProgress) isEvent()       {}
func (PairedRoster) isEvent()      {}
func (ErrorNotification) isEvent() {}
