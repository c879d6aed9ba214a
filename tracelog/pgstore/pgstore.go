// Package pgstore is a Postgres-backed tracelog.Store, one run per table:
// CreateSchema lays down the shared runs registry plus a per-run columnar
// log/trace pair so a long-running board doesn't contend on a single
// global log table under concurrent runs.
//
// Grounded on oriys-nova's internal/store.PostgresStore (pgxpool.Pool,
// Ping-on-construct, ensureSchema laying down CREATE TABLE IF NOT EXISTS
// statements with a JSONB data column plus indexed id columns), reshaped
// from ensureSchema's one-table-per-entity layout into CreateSchema's
// per-run table pair addressed by run id.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evalgo/flowengine/tracelog"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists logs and traces for every run through one connection
// pool, each run addressed by its own pair of tables.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool against connString and verifies it with a
// Ping before returning.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("pgstore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func logTable(runID string) string   { return fmt.Sprintf("run_log_%s", sanitize(runID)) }
func traceTable(runID string) string { return fmt.Sprintf("run_trace_%s", sanitize(runID)) }

// sanitize keeps run ids usable as unquoted table name suffixes; callers
// are expected to pass uuid.NewString() values, which already satisfy
// this, but a defensive pass costs nothing.
func sanitize(id string) string {
	out := make([]byte, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, byte(r))
		case r >= 'A' && r <= 'Z':
			out = append(out, byte(r)+('a'-'A'))
		case r == '_':
			out = append(out, byte(r))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// CreateSchema creates the shared runs registry (once) and the per-run
// log/trace tables (once per run). Indexes on node_id/log_level/start are
// only ever created on the per-run tables; the shared runs table is
// small and queried by run id alone, so an index there would cost writes
// for no read it ever serves.
func (s *Store) CreateSchema(ctx context.Context, runID, boardID string) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			run_id BIGSERIAL PRIMARY KEY,
			external_id VARCHAR(64) NOT NULL UNIQUE,
			board_id VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			start TIMESTAMPTZ NOT NULL DEFAULT now(),
			finish TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("pgstore: create runs table: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO runs (external_id, board_id) VALUES ($1, $2)
		ON CONFLICT (external_id) DO NOTHING
	`, runID, boardID)
	if err != nil {
		return fmt.Errorf("pgstore: register run: %w", err)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			node_id VARCHAR(255) NOT NULL,
			log_level INT NOT NULL,
			message TEXT NOT NULL,
			payload JSONB,
			start TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS %s_node_id ON %s (node_id);
		CREATE INDEX IF NOT EXISTS %s_log_level ON %s (log_level);
		CREATE INDEX IF NOT EXISTS %s_start ON %s (start);
	`, logTable(runID), logTable(runID), logTable(runID), logTable(runID), logTable(runID), logTable(runID), logTable(runID))
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("pgstore: create log table: %w", err)
	}

	ddl = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			node_id VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			err TEXT,
			start TIMESTAMPTZ NOT NULL,
			finish TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS %s_node_id ON %s (node_id);
	`, traceTable(runID), traceTable(runID), traceTable(runID))
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("pgstore: create trace table: %w", err)
	}

	return nil
}

// AppendLog implements tracelog.Store.
func (s *Store) AppendLog(msg tracelog.LogMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("pgstore: marshal payload: %w", err)
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (node_id, log_level, message, payload, start)
		VALUES ($1, $2, $3, $4, $5)
	`, logTable(msg.RunID)), msg.NodeID, msg.Level, msg.Message, payload, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("pgstore: append log: %w", err)
	}
	return nil
}

// AppendTrace implements tracelog.Store.
func (s *Store) AppendTrace(tr tracelog.Trace) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (node_id, status, err, start, finish)
		VALUES ($1, $2, $3, $4, $5)
	`, traceTable(tr.RunID)), tr.NodeID, tr.Status, tr.Err, tr.Start, tr.End)
	if err != nil {
		return fmt.Errorf("pgstore: append trace: %w", err)
	}
	return nil
}

// Logs implements tracelog.Store.
func (s *Store) Logs(runID string) ([]tracelog.LogMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT node_id, log_level, message, payload, start FROM %s ORDER BY id
	`, logTable(runID)))
	if err != nil {
		return nil, fmt.Errorf("pgstore: query logs: %w", err)
	}
	defer rows.Close()

	var out []tracelog.LogMessage
	for rows.Next() {
		var msg tracelog.LogMessage
		var payload []byte
		if err := rows.Scan(&msg.NodeID, &msg.Level, &msg.Message, &payload, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("pgstore: scan log: %w", err)
		}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &msg.Payload)
		}
		msg.RunID = runID
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Traces implements tracelog.Store.
func (s *Store) Traces(runID string) ([]tracelog.Trace, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT node_id, status, err, start, finish FROM %s ORDER BY id
	`, traceTable(runID)))
	if err != nil {
		return nil, fmt.Errorf("pgstore: query traces: %w", err)
	}
	defer rows.Close()

	var out []tracelog.Trace
	for rows.Next() {
		var tr tracelog.Trace
		var errText *string
		var finish *time.Time
		if err := rows.Scan(&tr.NodeID, &tr.Status, &errText, &tr.Start, &finish); err != nil {
			return nil, fmt.Errorf("pgstore: scan trace: %w", err)
		}
		if errText != nil {
			tr.Err = *errText
		}
		if finish != nil {
			tr.End = *finish
		}
		tr.RunID = runID
		out = append(out, tr)
	}
	return out, rows.Err()
}
