package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"quotadrop/internal/domain"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, kind, id string, body []byte) (int64, error) {
	query := `
        INSERT INTO records (kind, id, body, version)
        VALUES ($1, $2, $3, 1)
        RETURNING version`

	var version int64
	err := s.db.QueryRowxContext(ctx, query, kind, id, body).Scan(&version)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, fmt.Errorf("%s %s: %w", kind, id, ErrAlreadyExists)
		}
		return 0, fmt.Errorf("%w: failed to create %s %s: %v", domain.ErrStoreUnavailable, kind, id, err)
	}

	return version, nil
}

func (s *PostgresStore) Read(ctx context.Context, kind, id string) ([]byte, int64, error) {
	var row struct {
		Body    []byte `db:"body"`
		Version int64  `db:"version"`
	}

	err := s.db.GetContext(ctx, &row,
		`SELECT body, version FROM records WHERE kind = $1 AND id = $2`,
		kind, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, fmt.Errorf("%s %s: %w", kind, id, ErrRecordNotFound)
		}
		return nil, 0, fmt.Errorf("%w: failed to read %s %s: %v", domain.ErrStoreUnavailable, kind, id, err)
	}

	return row.Body, row.Version, nil
}

func (s *PostgresStore) ConditionalReplace(ctx context.Context, kind, id string, body []byte, expected int64) (int64, error) {
	query := `
        UPDATE records
        SET body = $1,
            version = version + 1,
            updated_at = CURRENT_TIMESTAMP
        WHERE kind = $2 AND id = $3 AND version = $4
        RETURNING version`

	var version int64
	err := s.db.QueryRowxContext(ctx, query, body, kind, id, expected).Scan(&version)
	if err == nil {
		return version, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("%w: failed to replace %s %s: %v", domain.ErrStoreUnavailable, kind, id, err)
	}

	// Ни одна строка не обновилась: либо записи нет, либо версия уже другая
	var exists bool
	err = s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM records WHERE kind = $1 AND id = $2)`,
		kind, id)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to check %s %s: %v", domain.ErrStoreUnavailable, kind, id, err)
	}
	if !exists {
		return 0, fmt.Errorf("%s %s: %w", kind, id, ErrRecordNotFound)
	}

	return 0, fmt.Errorf("%s %s at version %d: %w", kind, id, expected, ErrVersionConflict)
}

func (s *PostgresStore) ListIDs(ctx context.Context, kind string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		`SELECT id FROM records WHERE kind = $1 ORDER BY created_at, id`,
		kind)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list %s records: %v", domain.ErrStoreUnavailable, kind, err)
	}

	return ids, nil
}
