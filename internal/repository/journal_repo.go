package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"benchmark_dashboard/internal/models"

	"github.com/google/uuid"
)

type JournalSQLite struct {
	db *sql.DB
}

func NewJournalSQLite(db *sql.DB) *JournalSQLite { return &JournalSQLite{db: db} }

const insertJournalSQL = `
		INSERT INTO journal (id, occurred_at, kind, message, meta)
		VALUES (?, ?, ?, ?, ?)
	`

// Append inserts an entry, filling in the id and time when empty.
func (r *JournalSQLite) Append(ctx context.Context, e models.JournalEntry) error {
	if e.EntryID == "" {
		e.EntryID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	var metaPtr *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			metaPtr = &s
		}
	}

	_, err := r.db.ExecContext(ctx, insertJournalSQL,
		e.EntryID,
		formatTime(e.OccurredAt),
		strings.ToUpper(strings.TrimSpace(e.Kind)),
		e.Message,
		metaPtr,
	)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

// List returns entries within [from, to] and of the given kind, oldest first.
// Zero bounds and an empty kind do not filter.
func (r *JournalSQLite) List(ctx context.Context, from, to time.Time, kind string) ([]models.JournalEntry, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, formatTime(to))
	}
	if kind = strings.ToUpper(strings.TrimSpace(kind)); kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, kind)
	}

	q := `SELECT id, occurred_at, kind, message, meta FROM journal`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	out := make([]models.JournalEntry, 0, 64)
	for rows.Next() {
		var (
			e       models.JournalEntry
			at      string
			metaStr sql.NullString
		)
		if err := rows.Scan(&e.EntryID, &at, &e.Kind, &e.Message, &metaStr); err != nil {
			return nil, err
		}
		if e.OccurredAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("journal entry %s: %w", e.EntryID, err)
		}
		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				e.Metadata = v
			} else {
				e.Metadata = metaStr.String
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
