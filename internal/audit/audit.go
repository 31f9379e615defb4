// Package audit records who changed which contact message, and through
// which surface, in the audit_entries table.
package audit

import (
	"context"
	"time"
)

// Actions recorded against a contact message.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Entry is one row of the audit trail.
type Entry struct {
	ID       string         `json:"id"`
	Action   string         `json:"action"`
	RecordID int64          `json:"recordId,omitempty"`
	Project  string         `json:"project"`
	Source   string         `json:"source"`
	Actor    string         `json:"actor,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	At       time.Time      `json:"createdAt"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Action   string
	Project  string
	RecordID int64
	Limit    int // default 50, max 200
	Offset   int
}

// Page is one page of List results.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Writer appends entries.
type Writer interface {
	Record(ctx context.Context, e *Entry) error
}

// Repository is the full audit trail surface.
type Repository interface {
	Writer
	List(ctx context.Context, filter Filter) (*Page, error)
}
