package repository

import (
	"context"
	"database/sql"
	"time"

	"benchmark_dashboard/internal/models"
)

type Operators interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

// SnapshotRepo keeps the single most recent view of the store.
type SnapshotRepo interface {
	Save(ctx context.Context, v models.View) error
	Load(ctx context.Context) (models.View, bool, error)
}

type JournalRepo interface {
	Append(ctx context.Context, e models.JournalEntry) error
	List(ctx context.Context, from, to time.Time, kind string) ([]models.JournalEntry, error)
}

type Repository struct {
	Snapshots SnapshotRepo
	Journal   JournalRepo
	Operators Operators
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Snapshots: NewSnapshotSQLite(db),
		Journal:   NewJournalSQLite(db),
		Operators: NewOperatorRepository(db),
	}
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC(), nil
}
