package poller

import (
	"context"
	"time"

	"benchmark_dashboard/internal/events"
	"benchmark_dashboard/internal/logger"
	"benchmark_dashboard/internal/models"
	"benchmark_dashboard/internal/state"
)

const (
	DefaultStatusInterval = 30 * time.Second
	DefaultRunsInterval   = 5 * time.Second
)

// Source is the REST side the poller refreshes from.
type Source interface {
	ServerStatus(ctx context.Context) (models.ServerStatus, error)
	ImageServiceStatus(ctx context.Context) (models.ImageServiceStatus, error)
	ListRuns(ctx context.Context) (events.RunsSnapshot, error)
}

type Config struct {
	StatusInterval time.Duration
	RunsInterval   time.Duration
}

// Poller periodically refreshes status and runs over REST. Runs snapshots
// are a fallback for when the push channel is down and are discarded while
// it is connected. Failures are logged only.
type Poller struct {
	src    Source
	engine *state.Engine
	cfg    Config
	log    *logger.Logger
}

func New(src Source, engine *state.Engine, cfg Config, log *logger.Logger) *Poller {
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	if cfg.RunsInterval <= 0 {
		cfg.RunsInterval = DefaultRunsInterval
	}
	return &Poller{src: src, engine: engine, cfg: cfg, log: log.Component("poller")}
}

// Run refreshes once immediately and then on each tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	statusTick := time.NewTicker(p.cfg.StatusInterval)
	defer statusTick.Stop()
	runsTick := time.NewTicker(p.cfg.RunsInterval)
	defer runsTick.Stop()

	p.RefreshStatus(ctx)
	p.RefreshRuns(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-statusTick.C:
			p.RefreshStatus(ctx)
		case <-runsTick.C:
			p.RefreshRuns(ctx)
		}
	}
}

// RefreshStatus fetches server and image-service status.
func (p *Poller) RefreshStatus(ctx context.Context) {
	if st, err := p.src.ServerStatus(ctx); err != nil {
		p.failed("server_status", err)
	} else {
		p.engine.ApplyServerStatus(st)
	}

	if st, err := p.src.ImageServiceStatus(ctx); err != nil {
		p.failed("image_service_status", err)
	} else {
		p.engine.ApplyImageServiceStatus(st)
	}
}

// RefreshRuns fetches the runs snapshot and applies it unless push events
// are flowing. It reports whether the snapshot was applied.
func (p *Poller) RefreshRuns(ctx context.Context) bool {
	if p.engine.Store().Connected() {
		return false
	}
	snap, err := p.src.ListRuns(ctx)
	if err != nil {
		p.failed("list_runs", err)
		return false
	}
	// The push channel may have come up while the request was in flight.
	if p.engine.Store().Connected() {
		return false
	}
	p.engine.ApplyRunsSnapshot(snap.Active, snap.History)
	return true
}

func (p *Poller) failed(what string, err error) {
	if p.log == nil || err == nil {
		return
	}
	p.log.Debugw("poll_failed", "query", what, "error", err)
}
