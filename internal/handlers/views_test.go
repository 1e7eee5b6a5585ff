package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"benchmark_dashboard/internal/alert"
	"benchmark_dashboard/internal/models"
	"benchmark_dashboard/internal/service"
)

func get(t *testing.T, s *service.Service, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := newTestRouter(s)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	mon := &fakeMonitoring{connected: true}
	w := get(t, &service.Service{Monitoring: mon}, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var out struct {
		Status    string `json:"status"`
		Connected bool   `json:"connected"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Status != "ok" || !out.Connected {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestViews_ArePublic(t *testing.T) {
	mon := &fakeMonitoring{
		devices: []models.Device{{IP: "10.0.0.5", Port: 8080, Status: models.StatusOnline, DeviceID: "a"}},
		games:   []models.GameConfig{{Name: "cs2"}},
		runs:    service.RunsView{Active: []models.Run{{RunID: "r1", Status: models.RunRunning}}, History: []models.Run{}},
		paired:  []models.PairedDevice{{Device: models.Device{DeviceID: "a"}, Nickname: "rig"}},
		notes:   []models.Notification{{ID: 1, Type: models.NotifyLaunchFailed, Message: "boom"}},
	}
	mon.version.Store(7)
	s := &service.Service{Monitoring: mon}

	cases := []struct {
		path string
		key  string
	}{
		{"/api/v1/state", "version"},
		{"/api/v1/devices", "devices"},
		{"/api/v1/games", "games"},
		{"/api/v1/runs", "active"},
		{"/api/v1/paired", "devices"},
		{"/api/v1/notifications", "notifications"},
		{"/api/v1/status", "connected"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			w := get(t, s, tc.path)
			if w.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			var m map[string]json.RawMessage
			if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if _, ok := m[tc.key]; !ok {
				t.Fatalf("missing %q in %s", tc.key, w.Body.String())
			}
		})
	}
}

func TestDevices_OnlineFilter(t *testing.T) {
	mon := &fakeMonitoring{
		devices: []models.Device{{IP: "a"}, {IP: "b"}},
		online:  []models.Device{{IP: "a", Status: models.StatusOnline}},
	}
	s := &service.Service{Monitoring: mon}

	w := get(t, s, "/api/v1/devices?online=true")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var out struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 1 || !mon.lastOnlineOnly {
		t.Fatalf("count=%d onlineOnly=%v", out.Count, mon.lastOnlineOnly)
	}

	w = get(t, s, "/api/v1/devices?online=maybe")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAlerts_RecentAndSince(t *testing.T) {
	al := &fakeAlerts{}
	al.add(alert.LevelSuccess, "Connected to backend server")
	al.add(alert.LevelError, "Disconnected from backend server")
	s := &service.Service{Alerts: al}

	var out struct {
		Count  int           `json:"count"`
		Alerts []alert.Alert `json:"alerts"`
	}

	w := get(t, s, "/api/v1/alerts")
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || out.Alerts[0].Text != "Disconnected from backend server" {
		t.Fatalf("recent: %+v", out)
	}

	w = get(t, s, "/api/v1/alerts?after=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 0 || out.Alerts == nil {
		t.Fatalf("since: %+v", out)
	}

	w = get(t, s, "/api/v1/alerts?after=-1")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLastSnapshot(t *testing.T) {
	cases := []struct {
		name string
		snap *fakeSnapshotter
		want int
	}{
		{"none_saved", &fakeSnapshotter{}, http.StatusNotFound},
		{"saved", &fakeSnapshotter{view: models.View{Version: 3}, ok: true}, http.StatusOK},
		{"load_error", &fakeSnapshotter{err: errors.New("disk")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(t, &service.Service{Snapshotter: tc.snap}, "/api/v1/snapshot/last")
			if w.Code != tc.want {
				t.Fatalf("status=%d want %d", w.Code, tc.want)
			}
		})
	}
}
