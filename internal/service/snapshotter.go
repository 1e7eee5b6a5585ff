package service

import (
	"context"
	"time"

	"benchmark_dashboard/internal/logger"
	"benchmark_dashboard/internal/models"
	"benchmark_dashboard/internal/repository"
	"benchmark_dashboard/internal/state"
)

// SnapshotService saves the store view whenever its version moved since the
// last save. Saved views are for post-mortem reads only and are never loaded
// back into the store.
type SnapshotService struct {
	store *state.Store
	repo  repository.SnapshotRepo
	log   *logger.Logger

	savedVersion uint64
	saved        bool
}

func NewSnapshotService(store *state.Store, repo repository.SnapshotRepo, log *logger.Logger) *SnapshotService {
	return &SnapshotService{store: store, repo: repo, log: log.Component("snapshot")}
}

// Run ticks at the given interval until ctx is canceled, then saves once more.
func (s *SnapshotService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			s.SaveIfChanged(flushCtx)
			cancel()
			return
		case <-t.C:
			s.SaveIfChanged(ctx)
		}
	}
}

// SaveIfChanged persists the current view if the store changed since the
// last successful save. It reports whether a save happened.
func (s *SnapshotService) SaveIfChanged(ctx context.Context) bool {
	v := s.store.Snapshot()
	if s.saved && v.Version == s.savedVersion {
		return false
	}
	if err := s.repo.Save(ctx, v); err != nil {
		if s.log != nil {
			s.log.Errorw("snapshot_save_failed", "version", v.Version, "error", err)
		}
		return false
	}
	s.saved, s.savedVersion = true, v.Version
	return true
}

func (s *SnapshotService) Last(ctx context.Context) (models.View, bool, error) {
	return s.repo.Load(ctx)
}
