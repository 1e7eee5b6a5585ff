package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"benchmark_dashboard/internal/gateway"
	"benchmark_dashboard/internal/logger"
	"benchmark_dashboard/internal/models"
	"benchmark_dashboard/internal/repository"
)

const recordTimeout = 2 * time.Second

type JournalService struct {
	repo repository.JournalRepo
	log  *logger.Logger
	now  func() time.Time
}

func NewJournalService(repo repository.JournalRepo, log *logger.Logger) *JournalService {
	return &JournalService{repo: repo, log: log.Component("journal"), now: time.Now}
}

var errInvalidTimeRange = errors.New("invalid time range: from must be <= to")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func normalizeKind(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

func normalizeAndValidateFilter(f JournalFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}
	return from, to, normalizeKind(f.Kind), nil
}

func (s *JournalService) List(ctx context.Context, f JournalFilter) ([]models.JournalEntry, error) {
	from, to, kind, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, from, to, kind)
}

// Record appends an entry. Failures are logged and otherwise ignored: the
// journal is an audit aid and must not hold up event handling.
func (s *JournalService) Record(kind, message string, metadata any) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := s.repo.Append(ctx, models.JournalEntry{
		OccurredAt: s.now().UTC(),
		Kind:       kind,
		Message:    message,
		Metadata:   metadata,
	})
	if err != nil && s.log != nil {
		s.log.Errorw("journal_append_failed", "kind", kind, "error", err)
	}
}

func (s *JournalService) RecordNotification(n models.Notification) {
	meta := map[string]any{"type": n.Type, "notification_id": n.ID}
	if n.RunID != "" {
		meta["run_id"] = n.RunID
	}
	if n.GameName != "" {
		meta["game_name"] = n.GameName
	}
	if n.SutIP != "" {
		meta["sut_ip"] = n.SutIP
	}
	msg := n.Title
	if n.Message != "" {
		msg = strings.TrimSpace(msg + " - " + n.Message)
	}
	s.Record(models.JournalNotification, msg, meta)
}

func (s *JournalService) RecordCommandFailure(e *gateway.CommandError) {
	if e == nil {
		return
	}
	meta := map[string]any{"command": e.Command}
	if e.StatusCode != 0 {
		meta["status_code"] = e.StatusCode
	}
	s.Record(models.JournalCommandFailed, e.Message, meta)
}
