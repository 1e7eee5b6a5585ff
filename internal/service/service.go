package service

import (
	"context"
	"time"

	bd "benchmark_dashboard"
	"benchmark_dashboard/internal/alert"
	"benchmark_dashboard/internal/gateway"
	"benchmark_dashboard/internal/logger"
	"benchmark_dashboard/internal/models"
	"benchmark_dashboard/internal/repository"
	"benchmark_dashboard/internal/state"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Commands issues operator commands against the backend. Effects arrive
// later through the push stream, never through the return values.
type Commands interface {
	Pair(ctx context.Context, p PairParams) error
	Unpair(ctx context.Context, deviceID string) error
	Rename(ctx context.Context, deviceID, nickname string) error
	ScanNetwork(ctx context.Context) error
	StartRun(ctx context.Context, p SingleRunParams) (string, error)
	StartRuns(ctx context.Context, p StartRunParams) (bd.StartRunsResult, error)
	StopRun(ctx context.Context, runID string) error
	ReloadGameConfigs(ctx context.Context) error
	DeviceHistory(ctx context.Context, deviceID string) ([]bd.DeviceHistoryEntry, error)
}

// Monitoring exposes read-only copies of the synchronized state.
type Monitoring interface {
	View() models.View
	Version() uint64
	Devices(onlineOnly bool) []models.Device
	Games() []models.GameConfig
	Runs() RunsView
	Paired() []models.PairedDevice
	Notifications() []models.Notification
	Status() StatusView
}

// Journal is the local append-only record of connection, notification and
// command-failure events.
type Journal interface {
	List(ctx context.Context, f JournalFilter) ([]models.JournalEntry, error)
	Record(kind, message string, metadata any)
	RecordNotification(n models.Notification)
	RecordCommandFailure(e *gateway.CommandError)
}

// Snapshotter persists the last view in the background.
// Stop via context cancellation in main() for graceful shutdown.
type Snapshotter interface {
	Run(ctx context.Context, tick time.Duration)
	Last(ctx context.Context) (models.View, bool, error)
}

// Alerts is the operator alert feed.
type Alerts interface {
	Recent() []alert.Alert
	Since(after uint64) []alert.Alert
}

type Service struct {
	Commands
	Monitoring
	Journal
	Snapshotter
	Authorization
	Alerts
}

type Deps struct {
	Repos   *repository.Repository
	Gateway Gateway
	Store   *state.Store
	Alerts  *alert.Feed
	Auth    AuthConfig
	Log     *logger.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		Commands:      NewCommandService(d.Gateway),
		Monitoring:    NewMonitoringService(d.Store),
		Journal:       NewJournalService(d.Repos.Journal, d.Log),
		Snapshotter:   NewSnapshotService(d.Store, d.Repos.Snapshots, d.Log),
		Authorization: NewAuthService(d.Repos.Operators, d.Auth),
		Alerts:        d.Alerts,
	}
}
