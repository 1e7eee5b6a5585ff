// Package state owns the dashboard's in-memory view. Store is read-only to
// the outside; Engine is its only writer.
package state

import (
	"sort"
	"sync"
	"time"

	"benchmark_dashboard/internal/models"
)

const (
	// NotificationCapacity bounds the error notification ring.
	NotificationCapacity = 10
	// HistoryCapacity bounds the run history kept from server snapshots.
	HistoryCapacity = 200
)

type Store struct {
	mu sync.RWMutex

	version   uint64
	connected bool

	devices       map[string]models.Device
	games         map[string]models.GameConfig
	activeRuns    map[string]models.Run
	runHistory    []models.Run
	paired        []models.PairedDevice
	notifications []models.Notification // newest first

	serverStatus *models.ServerStatus
	imageService *models.ImageServiceStatus
}

func NewStore() *Store {
	return &Store{
		devices:    map[string]models.Device{},
		games:      map[string]models.GameConfig{},
		activeRuns: map[string]models.Run{},
	}
}

// Version increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Store) Devices() map[string]models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDevices(s.devices)
}

func (s *Store) Device(id string) (models.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[id]
	if !ok {
		return models.Device{}, false
	}
	return d.Clone(), true
}

// OnlineDevices returns online devices ordered by key.
func (s *Store) OnlineDevices() []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.devices))
	for k, d := range s.devices {
		if d.Status == models.StatusOnline {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]models.Device, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.devices[k].Clone())
	}
	return out
}

func (s *Store) Games() map[string]models.GameConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.GameConfig, len(s.games))
	for k, g := range s.games {
		out[k] = g
	}
	return out
}

func (s *Store) ActiveRuns() map[string]models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRuns(s.activeRuns)
}

func (s *Store) RunHistory() []models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRunSlice(s.runHistory)
}

func (s *Store) PairedDevices() []models.PairedDevice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePaired(s.paired)
}

// Notifications returns buffered notifications, newest first.
func (s *Store) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Notification{}, s.notifications...)
}

func (s *Store) ServerStatus() (models.ServerStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.serverStatus == nil {
		return models.ServerStatus{}, false
	}
	return *s.serverStatus, true
}

func (s *Store) ImageServiceStatus() (models.ImageServiceStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.imageService == nil {
		return models.ImageServiceStatus{}, false
	}
	return *s.imageService, true
}

// Snapshot copies every collection under one read lock.
func (s *Store) Snapshot() models.View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := models.View{
		Version:       s.version,
		Connected:     s.connected,
		Devices:       cloneDevices(s.devices),
		Games:         make(map[string]models.GameConfig, len(s.games)),
		ActiveRuns:    cloneRuns(s.activeRuns),
		RunHistory:    cloneRunSlice(s.runHistory),
		PairedDevices: clonePaired(s.paired),
		Notifications: append([]models.Notification{}, s.notifications...),
		TakenAt:       time.Now().UTC(),
	}
	for k, g := range s.games {
		v.Games[k] = g
	}
	if s.serverStatus != nil {
		st := *s.serverStatus
		v.ServerStatus = &st
	}
	if s.imageService != nil {
		st := *s.imageService
		v.ImageService = &st
	}
	return v
}

func cloneDevices(in map[string]models.Device) map[string]models.Device {
	out := make(map[string]models.Device, len(in))
	for k, d := range in {
		out[k] = d.Clone()
	}
	return out
}

func cloneRuns(in map[string]models.Run) map[string]models.Run {
	out := make(map[string]models.Run, len(in))
	for k, r := range in {
		out[k] = r.Clone()
	}
	return out
}

func cloneRunSlice(in []models.Run) []models.Run {
	out := make([]models.Run, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func clonePaired(in []models.PairedDevice) []models.PairedDevice {
	out := make([]models.PairedDevice, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
