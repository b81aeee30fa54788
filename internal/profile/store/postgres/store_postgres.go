// Package postgres persists intake records as jsonb documents. The merge is a
// read-modify-write under row lock so nested maps merge at field granularity;
// plain jsonb concatenation is shallow and would clobber sub-records.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"intake/internal/profile"
	id "intake/pkg/domain"
	"intake/pkg/platform/sentinel"
)

const schema = `
CREATE TABLE IF NOT EXISTS intake_records (
	user_id    TEXT PRIMARY KEY,
	fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the records table when migrations have not run yet
// (dev environments, integration tests).
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure intake_records schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID id.UserID) (*profile.Record, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT fields FROM intake_records WHERE user_id = $1`, userID.String(),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get intake record: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode intake record: %w", err)
	}
	return profile.NewRecord(fields), nil
}

func (s *Store) Merge(ctx context.Context, userID id.UserID, fields map[string]any) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin merge tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx,
		`SELECT fields FROM intake_records WHERE user_id = $1 FOR UPDATE`, userID.String(),
	).Scan(&raw)

	existing := map[string]any{}
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first write creates the record
	case err != nil:
		return fmt.Errorf("lock intake record: %w", err)
	default:
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("decode intake record: %w", err)
		}
	}

	merged, err := json.Marshal(profile.MergeFields(existing, fields))
	if err != nil {
		return fmt.Errorf("encode intake record: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO intake_records (user_id, fields, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET
			fields = EXCLUDED.fields,
			updated_at = now()
	`, userID.String(), merged)
	if err != nil {
		return fmt.Errorf("merge intake record: %w", err)
	}

	return tx.Commit(ctx)
}
