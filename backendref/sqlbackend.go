package backendref

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/collab"
	"github.com/AtRiskMedia/keystone/event"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS keystone_events (
	id TEXT PRIMARY KEY,
	timestamp_unix INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS keystone_events_ts ON keystone_events (timestamp_unix);
`

// SQLBackend is a database/sql-backed Backend, shared by the sqlite
// and libsql reference implementations (both register as database/sql
// drivers).
type SQLBackend struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open establishes a connection through driverName and ensures the
// event table exists.
func Open(driverName, dataSourceName string, logger *slog.Logger) (*SQLBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	logger.Debug("opening backend connection", "driver", driverName)

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("backendref: open %s: %w", driverName, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("backendref: ping %s: %w", driverName, err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		return nil, fmt.Errorf("backendref: ensure schema: %w", err)
	}

	logger.Info("backend connection established", "driver", driverName, "duration", time.Since(start))
	return &SQLBackend{db: db, logger: logger}, nil
}

// NewSQLite opens a local sqlite3-backed Backend at path.
func NewSQLite(path string, logger *slog.Logger) (*SQLBackend, error) {
	return Open("sqlite3", path, logger)
}

// NewLibSQL opens a libsql-backed Backend against a remote database
// URL, standing in for a cloud record store.
func NewLibSQL(databaseURL, authToken string, logger *slog.Logger) (*SQLBackend, error) {
	dsn := databaseURL
	if authToken != "" {
		dsn = fmt.Sprintf("%s?authToken=%s", databaseURL, authToken)
	}
	return Open("libsql", dsn, logger)
}

func (b *SQLBackend) Persist(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("backendref: marshal event %s: %w", e.ID, err)
	}
	const query = `INSERT OR REPLACE INTO keystone_events (id, timestamp_unix, payload) VALUES (?, ?, ?)`
	start := time.Now()
	_, err = b.db.ExecContext(ctx, query, e.ID, e.Timestamp.Unix(), string(payload))
	if err != nil {
		b.logger.Error("event insert failed", "id", e.ID, "error", err)
		return fmt.Errorf("backendref: insert event %s: %w", e.ID, err)
	}
	b.logger.Debug("event insert completed", "id", e.ID, "duration", time.Since(start))
	return nil
}

func (b *SQLBackend) PersistBatch(ctx context.Context, events []event.Event) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("backendref: begin batch: %w", err)
	}
	const query = `INSERT OR REPLACE INTO keystone_events (id, timestamp_unix, payload) VALUES (?, ?, ?)`
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("backendref: marshal event %s: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, e.ID, e.Timestamp.Unix(), string(payload)); err != nil {
			tx.Rollback()
			return fmt.Errorf("backendref: insert event %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

func (b *SQLBackend) LoadEvents(ctx context.Context, interval calendar.Interval, updateStatus func(collab.LoadStatus)) ([]event.Event, error) {
	const query = `SELECT payload FROM keystone_events WHERE timestamp_unix BETWEEN ? AND ? ORDER BY timestamp_unix ASC`
	rows, err := b.db.QueryContext(ctx, query, interval.Start.Unix(), interval.End.Unix())
	if err != nil {
		return nil, fmt.Errorf("backendref: load events: %w", err)
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("backendref: scan event: %w", err)
		}
		var e event.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("backendref: decode event: %w", err)
		}
		out = append(out, e)
		if updateStatus != nil && len(out)%500 == 0 {
			updateStatus(collab.LoadStatus{FetchedRecords: len(out)})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if updateStatus != nil {
		updateStatus(collab.LoadStatus{FetchedRecords: len(out)})
		updateStatus(collab.LoadStatus{Ready: true})
	}
	return out, nil
}

func (b *SQLBackend) LoadAllEvents(ctx context.Context, updateStatus func(collab.LoadStatus)) ([]event.Event, error) {
	return collab.LoadAllEventsDefault(ctx, b, updateStatus)
}

// Close releases the underlying connection pool.
func (b *SQLBackend) Close() error { return b.db.Close() }
