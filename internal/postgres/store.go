package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wavespace/wavespace/pkg/backend"
)

// Store is a backend.Backend over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

var _ backend.Backend = (*Store)(nil)

// NewStore wraps pool.
func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{pool: pool, log: logger.Named("postgres")}
}

func collect(rows pgx.Rows) ([]backend.Row, error) {
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]backend.Row, len(maps))
	for i, m := range maps {
		for k, v := range m {
			m[k] = normalize(v)
		}
		out[i] = m
	}
	return out, nil
}

// normalize turns scanned values into the shapes the REST API sends, so rows
// read the same whichever backend produced them.
func normalize(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x).String()
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
	}
	return v
}

// Select implements backend.Backend.
func (s *Store) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	sql, args, err := buildSelect(table, q)
	if err != nil {
		return nil, fmt.Errorf("postgres.Select: %w", err)
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres.Select: %w", err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres.Select: %w", err)
	}
	return out, nil
}

// Count implements backend.Backend.
func (s *Store) Count(ctx context.Context, table string, filter map[string]any) (int, error) {
	sql, args := buildCount(table, filter)
	var n int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres.Count: %w", err)
	}
	return int(n), nil
}

// Insert implements backend.Backend. All rows go in one transaction.
func (s *Store) Insert(ctx context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	if len(rows) == 0 {
		return []backend.Row{}, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres.Insert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var out []backend.Row
	for _, row := range rows {
		sql, args, err := buildInsert(table, row)
		if err != nil {
			return nil, fmt.Errorf("postgres.Insert: %w", err)
		}
		res, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return nil, fmt.Errorf("postgres.Insert: %w", err)
		}
		inserted, err := collect(res)
		if err != nil {
			return nil, fmt.Errorf("postgres.Insert: %w", err)
		}
		out = append(out, inserted...)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres.Insert: %w", err)
	}
	return out, nil
}

// Update implements backend.Backend.
func (s *Store) Update(ctx context.Context, table string, patch backend.Row, match map[string]any) ([]backend.Row, error) {
	sql, args, err := buildUpdate(table, patch, match)
	if err != nil {
		return nil, fmt.Errorf("postgres.Update: %w", err)
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres.Update: %w", err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres.Update: %w", err)
	}
	return out, nil
}

// Delete implements backend.Backend.
func (s *Store) Delete(ctx context.Context, table string, match map[string]any) error {
	sql, args, err := buildDelete(table, match)
	if err != nil {
		return fmt.Errorf("postgres.Delete: %w", err)
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("postgres.Delete: %w", err)
	}
	s.log.Debug("deleted rows", zap.String("table", table), zap.Int64("count", tag.RowsAffected()))
	return nil
}
