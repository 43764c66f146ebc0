// Package outbox persists the render plans the service publishes so they can
// be inspected or replayed after the fact.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	errspkg "github.com/drblury/msgflow/internal/runtime/errors"
)

// Store receives every outgoing message produced by a handler.
type Store interface {
	StoreOutgoingMessage(ctx context.Context, eventType, uuid, payload string) error
}

// Record is a stored outgoing message.
type Record struct {
	UUID      string    `json:"uuid"`
	EventType string    `json:"event_type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

type dialect struct {
	driver string
	schema string
	insert string
	recent string
}

var dialects = map[string]dialect{
	"sqlite": {
		driver: "sqlite3",
		schema: `CREATE TABLE IF NOT EXISTS msgflow_outbox (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL UNIQUE,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		insert: `INSERT INTO msgflow_outbox (uuid, event_type, payload, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (uuid) DO NOTHING`,
		recent: `SELECT uuid, event_type, payload, created_at FROM msgflow_outbox ORDER BY id DESC LIMIT ?`,
	},
	"postgres": {
		driver: "postgres",
		schema: `CREATE TABLE IF NOT EXISTS msgflow_outbox (
			id BIGSERIAL PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		insert: `INSERT INTO msgflow_outbox (uuid, event_type, payload, created_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (uuid) DO NOTHING`,
		recent: `SELECT uuid, event_type, payload, created_at FROM msgflow_outbox ORDER BY id DESC LIMIT $1`,
	},
}

// SQLStore is a Store backed by database/sql. Storing the same uuid twice is
// a no-op so retried handlers do not duplicate rows.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// Open connects to the database for driver ("sqlite" or "postgres") and
// creates the outbox table when missing.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	d, ok := dialects[strings.ToLower(driver)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errspkg.ErrUnsupportedOutboxDriver, driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open outbox database: %w", err)
	}
	if d.driver == "sqlite3" {
		// a second connection to ":memory:" would see an empty database
		db.SetMaxOpenConns(1)
	}

	store := &SQLStore{db: db, dialect: d, now: time.Now}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize outbox schema: %w", err)
	}
	return store, nil
}

// StoreOutgoingMessage implements Store.
func (s *SQLStore) StoreOutgoingMessage(ctx context.Context, eventType, uuid, payload string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.insert, uuid, eventType, payload, s.now().UTC()); err != nil {
		return fmt.Errorf("store outgoing message %s: %w", uuid, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.recent, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.UUID, &r.EventType, &r.Payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
