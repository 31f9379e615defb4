package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200

	// timeLayout is fixed width so created_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteRepository stores the trail in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a repository over db. The audit_entries
// table must already be migrated.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts e, filling ID and At when empty.
func (r *SQLiteRepository) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "aud-" + uuid.NewString()[:8]
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	var details *string
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encoding audit details: %w", err)
		}
		s := string(b)
		details = &s
	}

	var recordID any
	if e.RecordID > 0 {
		recordID = e.RecordID
	}
	var actor any
	if e.Actor != "" {
		actor = e.Actor
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_entries (id, action, record_id, project, source, actor, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, recordID, e.Project, e.Source, actor, details,
		e.At.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// List returns matching entries, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*Page, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultPageSize
	case filter.Limit > maxPageSize:
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conds []string
	var args []any
	if filter.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Project != "" {
		conds = append(conds, "project = ?")
		args = append(args, filter.Project)
	}
	if filter.RecordID > 0 {
		conds = append(conds, "record_id = ?")
		args = append(args, filter.RecordID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	//nolint:gosec // where holds only fixed column names and placeholders
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_entries"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}

	//nolint:gosec // as above
	query := "SELECT id, action, record_id, project, source, actor, details, created_at FROM audit_entries" +
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	return &Page{Entries: entries, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e         Entry
		recordID  sql.NullInt64
		actor     sql.NullString
		details   sql.NullString
		createdAt string
	)
	if err := rows.Scan(&e.ID, &e.Action, &recordID, &e.Project, &e.Source, &actor, &details, &createdAt); err != nil {
		return e, fmt.Errorf("scanning audit entry: %w", err)
	}
	e.RecordID = recordID.Int64
	e.Actor = actor.String
	if details.Valid && details.String != "" {
		var d map[string]any
		if json.Unmarshal([]byte(details.String), &d) == nil {
			e.Details = d
		}
	}
	at, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return e, fmt.Errorf("parsing audit timestamp %q: %w", createdAt, err)
	}
	e.At = at
	return e, nil
}
