package service

import (
	"sort"

	"benchmark_dashboard/internal/models"
	"benchmark_dashboard/internal/state"
)

// RunsView groups active runs and the bounded history.
type RunsView struct {
	Active  []models.Run `json:"active"`
	History []models.Run `json:"history"`
}

// StatusView is the connectivity and backend health summary.
type StatusView struct {
	Connected    bool                       `json:"connected"`
	Version      uint64                     `json:"version"`
	Server       *models.ServerStatus       `json:"server,omitempty"`
	ImageService *models.ImageServiceStatus `json:"image_service,omitempty"`
}

type MonitoringService struct {
	store *state.Store
}

func NewMonitoringService(store *state.Store) *MonitoringService {
	return &MonitoringService{store: store}
}

func (s *MonitoringService) View() models.View { return s.store.Snapshot() }
func (s *MonitoringService) Version() uint64   { return s.store.Version() }

// Devices returns devices sorted by identity.
func (s *MonitoringService) Devices(onlineOnly bool) []models.Device {
	if onlineOnly {
		return s.store.OnlineDevices()
	}
	m := s.store.Devices()
	out := make([]models.Device, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity() < out[j].Identity() })
	return out
}

func (s *MonitoringService) Games() []models.GameConfig {
	m := s.store.Games()
	out := make([]models.GameConfig, 0, len(m))
	for _, g := range m {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Runs lists active runs by run id; history keeps backend order.
func (s *MonitoringService) Runs() RunsView {
	active := s.store.ActiveRuns()
	v := RunsView{Active: make([]models.Run, 0, len(active)), History: s.store.RunHistory()}
	for _, r := range active {
		v.Active = append(v.Active, r)
	}
	sort.Slice(v.Active, func(i, j int) bool { return v.Active[i].RunID < v.Active[j].RunID })
	if v.History == nil {
		v.History = []models.Run{}
	}
	return v
}

func (s *MonitoringService) Paired() []models.PairedDevice {
	if p := s.store.PairedDevices(); p != nil {
		return p
	}
	return []models.PairedDevice{}
}

func (s *MonitoringService) Notifications() []models.Notification {
	if n := s.store.Notifications(); n != nil {
		return n
	}
	return []models.Notification{}
}

func (s *MonitoringService) Status() StatusView {
	v := StatusView{Connected: s.store.Connected(), Version: s.store.Version()}
	if st, ok := s.store.ServerStatus(); ok {
		v.Server = &st
	}
	if st, ok := s.store.ImageServiceStatus(); ok {
		v.ImageService = &st
	}
	return v
}
