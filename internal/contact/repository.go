package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository is the full persistence surface for contact messages.
type Repository interface {
	Create(ctx context.Context, in Input) (int64, error)
	FindByID(ctx context.Context, id int64) (*Message, error)
	FindAll(ctx context.Context) ([]Message, error)
	FindByEmail(ctx context.Context, email string) ([]Message, error)
	Update(ctx context.Context, id int64, in Input) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over db. The contact_messages
// table must already be migrated.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `SELECT id, name, email, subject, message, project, source, created_at, updated_at
	FROM contact_messages`

// Create inserts a message and returns its ID. Callers validate first.
func (r *SQLiteRepository) Create(ctx context.Context, in Input) (int64, error) {
	source := in.Source
	if source == "" {
		source = SourceREST
	}

	const query = `INSERT INTO contact_messages (name, email, subject, message, project, source)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, in.Name, in.Email, in.Subject, in.Message, in.Project, source)
	if err != nil {
		return 0, fmt.Errorf("%w: inserting contact message: %w", ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading inserted id: %w", ErrPersistence, err)
	}
	return id, nil
}

// FindByID returns one message or ErrNotFound.
func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (*Message, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading contact message %d: %w", ErrPersistence, id, err)
	}
	return m, nil
}

// FindAll returns every message, newest first.
func (r *SQLiteRepository) FindAll(ctx context.Context) ([]Message, error) {
	return r.query(ctx, selectColumns+` ORDER BY created_at DESC, id DESC`)
}

// FindByEmail returns the messages sent from email, newest first.
func (r *SQLiteRepository) FindByEmail(ctx context.Context, email string) ([]Message, error) {
	return r.query(ctx, selectColumns+` WHERE email = ? ORDER BY created_at DESC, id DESC`, email)
}

// Update replaces the four user fields of message id.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, in Input) error {
	const query = `UPDATE contact_messages SET name = ?, email = ?, subject = ?, message = ?,
		updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, in.Name, in.Email, in.Subject, in.Message, id)
	if err != nil {
		return fmt.Errorf("%w: updating contact message %d: %w", ErrPersistence, id, err)
	}
	n, _ := res.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes message id. Returns ErrNotFound if nothing was deleted.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting contact message %d: %w", ErrPersistence, id, err)
	}
	n, _ := res.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored messages.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contact_messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting contact messages: %w", ErrPersistence, err)
	}
	return n, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying contact messages: %w", ErrPersistence, err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning contact message: %w", ErrPersistence, err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating contact messages: %w", ErrPersistence, err)
	}
	return messages, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (*Message, error) {
	var m Message
	var createdAt, updatedAt string
	err := s.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.Project, &m.Source, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

// parseTime reads the strftime('%Y-%m-%dT%H:%M:%fZ') column format.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
