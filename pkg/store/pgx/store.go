package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/regioflex/regioflex/pkg/scenario"
	"github.com/regioflex/regioflex/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// ScenarioDBStore implements store.ScenarioStore on PostgreSQL. Dumps are
// stored as compressed blobs, the metadata as jsonb so Search can use
// containment queries.
type ScenarioDBStore struct {
	conn pgxIConn
}

// NewScenarioDBStoreWithConnection creates a store using an existing
// database connection or pool and makes sure the dump table exists.
func NewScenarioDBStoreWithConnection(ctx context.Context, conn pgxIConn) (*ScenarioDBStore, error) {
	s := &ScenarioDBStore{conn: conn}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ScenarioDBStore) ensureSchema(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS scenario_dumps (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			meta JSONB NOT NULL DEFAULT '{}'::jsonb,
			has_results BOOLEAN NOT NULL DEFAULT FALSE,
			dump BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create scenario_dumps table: %w", err)
	}
	_, err = s.conn.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS scenario_dumps_meta_idx ON scenario_dumps USING gin (meta)`)
	if err != nil {
		return fmt.Errorf("failed to create scenario_dumps meta index: %w", err)
	}
	return nil
}

// Save stores a dump of the scenario and returns its registry id.
func (s *ScenarioDBStore) Save(ctx context.Context, sc *scenario.Scenario) (string, error) {
	blob, err := sc.Dump()
	if err != nil {
		return "", fmt.Errorf("failed to dump scenario %q: %w", sc.Name(), err)
	}
	meta, err := json.Marshal(sc.Meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode scenario meta: %w", err)
	}

	id := uuid.NewString()
	_, err = s.conn.Exec(ctx,
		`INSERT INTO scenario_dumps (id, name, meta, has_results, dump) VALUES ($1, $2, $3, $4, $5)`,
		id, sc.Name(), meta, sc.HasResults(), blob)
	if err != nil {
		return "", fmt.Errorf("failed to store scenario dump: %w", err)
	}
	return id, nil
}

// Load restores the scenario stored under the given id.
func (s *ScenarioDBStore) Load(ctx context.Context, id string) (*scenario.Scenario, error) {
	var blob []byte
	err := s.conn.QueryRow(ctx, `SELECT dump FROM scenario_dumps WHERE id = $1`, id).Scan(&blob)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("no scenario dump with id %q", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario dump: %w", err)
	}
	sc, err := scenario.Restore(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to restore scenario dump %q: %w", id, err)
	}
	return sc, nil
}

// List returns the metadata of all stored dumps, newest first.
func (s *ScenarioDBStore) List(ctx context.Context) ([]store.DumpRecord, error) {
	return s.query(ctx,
		`SELECT id, name, meta, has_results, created_at FROM scenario_dumps ORDER BY created_at DESC`)
}

// Search returns the dumps whose metadata contains all given key/value
// pairs, newest first.
func (s *ScenarioDBStore) Search(ctx context.Context, meta map[string]string) ([]store.DumpRecord, error) {
	filter, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode meta filter: %w", err)
	}
	return s.query(ctx,
		`SELECT id, name, meta, has_results, created_at FROM scenario_dumps
		 WHERE meta @> $1::jsonb ORDER BY created_at DESC`, filter)
}

// Delete removes a dump from the registry.
func (s *ScenarioDBStore) Delete(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM scenario_dumps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scenario dump: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no scenario dump with id %q", id)
	}
	return nil
}

func (s *ScenarioDBStore) query(ctx context.Context, sql string, args ...any) ([]store.DumpRecord, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenario dumps: %w", err)
	}
	defer rows.Close()

	var records []store.DumpRecord
	for rows.Next() {
		var rec store.DumpRecord
		var meta []byte
		if err := rows.Scan(&rec.ID, &rec.Name, &meta, &rec.HasResults, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scenario dump row: %w", err)
		}
		if err := json.Unmarshal(meta, &rec.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode scenario meta: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scenario dump rows: %w", err)
	}
	return records, nil
}
