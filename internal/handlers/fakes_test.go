package handlers

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	bd "benchmark_dashboard"
	"benchmark_dashboard/internal/alert"
	"benchmark_dashboard/internal/gateway"
	"benchmark_dashboard/internal/models"
	"benchmark_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service fakes ----

type fakeAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastGenUsername    string
	lastParseToken     string
}

func (m *fakeAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	return m.signUpID, m.signUpErr
}
func (m *fakeAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	return m.genTokenToken, m.genTokenErr
}
func (m *fakeAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type fakeCommands struct {
	err       error
	startRes  bd.StartRunsResult
	runID     string
	lastRun   service.SingleRunParams
	history   []bd.DeviceHistoryEntry
	calls     []string
	lastPair  service.PairParams
	lastStart service.StartRunParams
	lastID    string
	lastNick  string
}

func (f *fakeCommands) Pair(ctx context.Context, p service.PairParams) error {
	f.calls = append(f.calls, gateway.CmdPair)
	f.lastPair = p
	return f.err
}
func (f *fakeCommands) Unpair(ctx context.Context, deviceID string) error {
	f.calls = append(f.calls, gateway.CmdUnpair)
	f.lastID = deviceID
	return f.err
}
func (f *fakeCommands) Rename(ctx context.Context, deviceID, nickname string) error {
	f.calls = append(f.calls, gateway.CmdRename)
	f.lastID, f.lastNick = deviceID, nickname
	return f.err
}
func (f *fakeCommands) ScanNetwork(ctx context.Context) error {
	f.calls = append(f.calls, gateway.CmdScanNetwork)
	return f.err
}
func (f *fakeCommands) StartRun(ctx context.Context, p service.SingleRunParams) (string, error) {
	f.calls = append(f.calls, gateway.CmdStartRun)
	f.lastRun = p
	return f.runID, f.err
}
func (f *fakeCommands) StartRuns(ctx context.Context, p service.StartRunParams) (bd.StartRunsResult, error) {
	f.calls = append(f.calls, gateway.CmdStartRuns)
	f.lastStart = p
	return f.startRes, f.err
}
func (f *fakeCommands) StopRun(ctx context.Context, runID string) error {
	f.calls = append(f.calls, gateway.CmdStopRun)
	f.lastID = runID
	return f.err
}
func (f *fakeCommands) ReloadGameConfigs(ctx context.Context) error {
	f.calls = append(f.calls, gateway.CmdReloadGames)
	return f.err
}
func (f *fakeCommands) DeviceHistory(ctx context.Context, deviceID string) ([]bd.DeviceHistoryEntry, error) {
	f.calls = append(f.calls, gateway.QueryHistory)
	f.lastID = deviceID
	return f.history, f.err
}

// fakeMonitoring is read from the websocket goroutine; version is atomic.
type fakeMonitoring struct {
	version   atomic.Uint64
	devices   []models.Device
	online    []models.Device
	games     []models.GameConfig
	runs      service.RunsView
	paired    []models.PairedDevice
	notes     []models.Notification
	connected bool

	lastOnlineOnly bool
}

func (f *fakeMonitoring) View() models.View {
	return models.View{Version: f.version.Load(), Connected: f.connected}
}
func (f *fakeMonitoring) Version() uint64 { return f.version.Load() }
func (f *fakeMonitoring) Devices(onlineOnly bool) []models.Device {
	f.lastOnlineOnly = onlineOnly
	if onlineOnly {
		return f.online
	}
	return f.devices
}
func (f *fakeMonitoring) Games() []models.GameConfig           { return f.games }
func (f *fakeMonitoring) Runs() service.RunsView               { return f.runs }
func (f *fakeMonitoring) Paired() []models.PairedDevice        { return f.paired }
func (f *fakeMonitoring) Notifications() []models.Notification { return f.notes }
func (f *fakeMonitoring) Status() service.StatusView {
	return service.StatusView{Connected: f.connected, Version: f.version.Load()}
}

type fakeJournal struct {
	resp       []models.JournalEntry
	err        error
	lastFilter service.JournalFilter
}

func (f *fakeJournal) List(ctx context.Context, jf service.JournalFilter) ([]models.JournalEntry, error) {
	f.lastFilter = jf
	return f.resp, f.err
}
func (f *fakeJournal) Record(kind, message string, metadata any)    {}
func (f *fakeJournal) RecordNotification(n models.Notification)     {}
func (f *fakeJournal) RecordCommandFailure(e *gateway.CommandError) {}

type fakeSnapshotter struct {
	view models.View
	ok   bool
	err  error
}

func (f *fakeSnapshotter) Run(ctx context.Context, tick time.Duration) {}
func (f *fakeSnapshotter) Last(ctx context.Context) (models.View, bool, error) {
	return f.view, f.ok, f.err
}

// fakeAlerts keeps alerts oldest first, like the real feed.
type fakeAlerts struct {
	mu    sync.Mutex
	items []alert.Alert
}

func (f *fakeAlerts) add(level alert.Level, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, alert.Alert{ID: uint64(len(f.items) + 1), Level: level, Text: text, At: time.Now()})
}

func (f *fakeAlerts) Recent() []alert.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]alert.Alert, 0, len(f.items))
	for i := len(f.items) - 1; i >= 0; i-- {
		out = append(out, f.items[i])
	}
	return out
}

func (f *fakeAlerts) Since(after uint64) []alert.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []alert.Alert
	for _, a := range f.items {
		if a.ID > after {
			out = append(out, a)
		}
	}
	return out
}

// ---- Shared test helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withHeader(req *http.Request, hdr http.Header) *http.Request {
	for k, vv := range hdr {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
