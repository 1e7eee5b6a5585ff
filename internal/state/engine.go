package state

import (
	"fmt"
	"time"

	"benchmark_dashboard/internal/alert"
	"benchmark_dashboard/internal/events"
	"benchmark_dashboard/internal/logger"
	"benchmark_dashboard/internal/models"
)

// Engine applies normalized events and REST snapshots to a Store.
// Every apply is a total replace or a single-key upsert. There is no
// sequence check, the last writer for a key wins.
type Engine struct {
	store  *Store
	alerts alert.Alerter
	log    *logger.Logger
	now    func() time.Time

	nextNotificationID uint64 // guarded by store.mu

	// OnNotification, if set, observes every buffered notification after
	// it was assigned its id.
	OnNotification func(models.Notification)
}

func NewEngine(store *Store, alerts alert.Alerter, log *logger.Logger) *Engine {
	return &Engine{store: store, alerts: alerts, log: log, now: time.Now}
}

func (e *Engine) Store() *Store { return e.store }

// Apply dispatches a decoded push event.
func (e *Engine) Apply(ev events.Event) {
	switch m := ev.(type) {
	case events.FullRoster:
		e.ApplyFullRoster(m.Devices)
	case events.DeviceDelta:
		e.ApplyDeviceDelta(m.Device)
	case events.GameRoster:
		e.ApplyGameRoster(m.Games)
	case events.RunsSnapshot:
		e.ApplyRunsSnapshot(m.Active, m.History)
	case events.RunProgress:
		e.ApplyRunProgress(m.RunID, m.Run)
	case events.PairedRoster:
		e.ApplyPairedRoster(m.Devices)
	case events.ErrorNotification:
		e.ApplyNotification(m.Notification)
	}
}

// ApplyFullRoster atomically replaces the device mapping.
func (e *Engine) ApplyFullRoster(devices map[string]models.Device) {
	next := cloneDevices(devices)

	e.store.mu.Lock()
	e.store.devices = next
	e.store.version++
	e.store.mu.Unlock()

	if e.log != nil {
		e.log.Debugw("devices_replaced", "count", len(next))
	}
}

// ApplyDeviceDelta replaces one device entry under its preferred identity.
// A device that now reports a durable id supersedes the entry that was
// keyed by its bare address.
func (e *Engine) ApplyDeviceDelta(d models.Device) {
	key := d.Identity()
	if key == "" {
		return
	}

	e.store.mu.Lock()
	if key != d.IP && d.IP != "" {
		if prev, ok := e.store.devices[d.IP]; ok && prev.Identity() == d.IP {
			delete(e.store.devices, d.IP)
		}
	}
	e.store.devices[key] = d.Clone()
	e.store.version++
	e.store.mu.Unlock()
}

// ApplyGameRoster atomically replaces the game mapping.
func (e *Engine) ApplyGameRoster(games map[string]models.GameConfig) {
	next := make(map[string]models.GameConfig, len(games))
	for k, g := range games {
		next[k] = g
	}

	e.store.mu.Lock()
	e.store.games = next
	e.store.version++
	e.store.mu.Unlock()
}

// ApplyRunsSnapshot replaces both the active runs and the history. It is
// the only path that removes a run from the active set.
func (e *Engine) ApplyRunsSnapshot(active map[string]models.Run, history []models.Run) {
	nextActive := cloneRuns(active)
	if len(history) > HistoryCapacity {
		history = history[len(history)-HistoryCapacity:]
	}
	nextHistory := cloneRunSlice(history)

	e.store.mu.Lock()
	e.store.activeRuns = nextActive
	e.store.runHistory = nextHistory
	e.store.version++
	e.store.mu.Unlock()
}

// ApplyRunProgress upserts one active run. History is left alone, so a
// run already in history can reappear as active.
func (e *Engine) ApplyRunProgress(runID string, run models.Run) {
	if runID == "" {
		return
	}

	e.store.mu.Lock()
	e.store.activeRuns[runID] = run.Clone()
	e.store.version++
	e.store.mu.Unlock()
}

// ApplyPairedRoster atomically replaces the paired device list.
func (e *Engine) ApplyPairedRoster(list []models.PairedDevice) {
	next := clonePaired(list)

	e.store.mu.Lock()
	e.store.paired = next
	e.store.version++
	e.store.mu.Unlock()
}

// ApplyNotification assigns a local id, buffers the notification newest
// first and raises an alert labelled by its type.
func (e *Engine) ApplyNotification(n models.Notification) models.Notification {
	if n.Timestamp.IsZero() {
		n.Timestamp = e.now().UTC()
	}

	e.store.mu.Lock()
	e.nextNotificationID++
	n.ID = e.nextNotificationID
	buf := make([]models.Notification, 0, NotificationCapacity)
	buf = append(buf, n)
	buf = append(buf, e.store.notifications...)
	if len(buf) > NotificationCapacity {
		buf = buf[:NotificationCapacity]
	}
	e.store.notifications = buf
	e.store.version++
	e.store.mu.Unlock()

	if e.alerts != nil {
		e.alerts.Error(notificationText(n))
	}
	if e.log != nil {
		e.log.Warnw("backend_error_notification", "type", n.Type, "title", n.Title, "run_id", n.RunID, "sut_ip", n.SutIP)
	}
	if e.OnNotification != nil {
		e.OnNotification(n)
	}
	return n
}

// SetConnected records the transport connectivity flag.
func (e *Engine) SetConnected(connected bool) {
	e.store.mu.Lock()
	if e.store.connected != connected {
		e.store.connected = connected
		e.store.version++
	}
	e.store.mu.Unlock()
}

func (e *Engine) ApplyServerStatus(st models.ServerStatus) {
	e.store.mu.Lock()
	e.store.serverStatus = &st
	e.store.version++
	e.store.mu.Unlock()
}

func (e *Engine) ApplyImageServiceStatus(st models.ImageServiceStatus) {
	e.store.mu.Lock()
	e.store.imageService = &st
	e.store.version++
	e.store.mu.Unlock()
}

func notificationText(n models.Notification) string {
	text := n.Type.Label()
	if n.Title != "" {
		text = fmt.Sprintf("%s: %s", text, n.Title)
	}
	if n.Message != "" {
		text = fmt.Sprintf("%s - %s", text, n.Message)
	}
	return text
}
