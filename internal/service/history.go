package service

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"
)

// HistoryStore records base layer switches.
type HistoryStore interface {
	Record(ctx context.Context, e HistoryEntry) error
	// List returns the newest entries first. An empty sessionID lists all
	// sessions; limit <= 0 means no limit.
	List(ctx context.Context, sessionID string, limit int) ([]HistoryEntry, error)
}

// DuckDBHistory stores switches in the layer_switches table.
type DuckDBHistory struct {
	db *sql.DB
}

// NewDuckDBHistory creates a history store on an open, migrated database.
func NewDuckDBHistory(db *sql.DB) *DuckDBHistory {
	return &DuckDBHistory{db: db}
}

func (h *DuckDBHistory) Record(ctx context.Context, e HistoryEntry) error {
	at, err := time.Parse(time.RFC3339Nano, e.At)
	if err != nil {
		return err
	}
	var from sql.NullString
	if e.From != "" {
		from = sql.NullString{String: e.From, Valid: true}
	}
	_, err = h.db.ExecContext(ctx,
		`INSERT INTO layer_switches (session_id, from_layer, to_layer, name, at) VALUES (?, ?, ?, ?, ?)`,
		e.SessionID, from, e.To, e.Name, at.UTC())
	return err
}

func (h *DuckDBHistory) List(ctx context.Context, sessionID string, limit int) ([]HistoryEntry, error) {
	query := `SELECT session_id, from_layer, to_layer, name, at FROM layer_switches`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var (
			e    HistoryEntry
			from sql.NullString
			at   time.Time
		)
		if err := rows.Scan(&e.SessionID, &from, &e.To, &e.Name, &at); err != nil {
			return nil, err
		}
		e.From = from.String
		e.At = at.UTC().Format(time.RFC3339Nano)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MemoryHistory keeps switches in memory. Used when no database is configured.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func NewMemoryHistory() *MemoryHistory { return &MemoryHistory{} }

func (h *MemoryHistory) Record(_ context.Context, e HistoryEntry) error {
	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.mu.Unlock()
	return nil
}

func (h *MemoryHistory) List(_ context.Context, sessionID string, limit int) ([]HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := []HistoryEntry{}
	for _, e := range slices.Backward(h.entries) {
		if sessionID != "" && e.SessionID != sessionID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
