package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"benchmark_dashboard/internal/models"
)

type SnapshotSQLite struct {
	db *sql.DB
}

func NewSnapshotSQLite(db *sql.DB) *SnapshotSQLite {
	return &SnapshotSQLite{db: db}
}

const (
	snapshotRowID = 1

	upsertSnapshotSQL = `
		INSERT INTO view_snapshot (id, version, taken_at, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version=excluded.version,
			taken_at=excluded.taken_at,
			body=excluded.body
	`

	selectSnapshotSQL = `SELECT version, taken_at, body FROM view_snapshot WHERE id=?`
)

// Save overwrites the stored view.
func (r *SnapshotSQLite) Save(ctx context.Context, v models.View) error {
	if v.TakenAt.IsZero() {
		v.TakenAt = time.Now().UTC()
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, upsertSnapshotSQL, snapshotRowID, int64(v.Version), formatTime(v.TakenAt), string(body)); err != nil {
		return fmt.Errorf("save view snapshot: %w", err)
	}
	return nil
}

// Load returns the stored view. ok is false when nothing was saved yet.
func (r *SnapshotSQLite) Load(ctx context.Context) (models.View, bool, error) {
	var (
		version int64
		takenAt string
		body    string
	)
	err := r.db.QueryRowContext(ctx, selectSnapshotSQL, snapshotRowID).Scan(&version, &takenAt, &body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.View{}, false, nil
		}
		return models.View{}, false, fmt.Errorf("load view snapshot: %w", err)
	}

	var v models.View
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return models.View{}, false, fmt.Errorf("decode view snapshot: %w", err)
	}
	v.Version = uint64(version)
	if t, err := parseTime(takenAt); err == nil {
		v.TakenAt = t
	}
	return v, true, nil
}
