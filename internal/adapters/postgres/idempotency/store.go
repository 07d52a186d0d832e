package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	postgres "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/idempotency"
)

var _ idempotency.Store = (*Store)(nil)

// Store keeps idempotency entries in the idempotency_keys table.
type Store struct {
	db *postgres.DB
}

func NewStore(db *postgres.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Reserve(ctx context.Context, req idempotency.Request, bodyHash string, at time.Time) (idempotency.Entry, bool, error) {
	// The insert either claims the key or leaves the existing row untouched.
	tag, err := s.db.Pool.Exec(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, user_id, method, route, body_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (idempotency_key, user_id, method, route) DO NOTHING
	`, string(req.Key), string(req.User), req.Method, req.Route, bodyHash, at.UTC())
	if err != nil {
		return idempotency.Entry{}, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return idempotency.Entry{BodyHash: bodyHash, CreatedAt: at.UTC()}, true, nil
	}

	var (
		e           idempotency.Entry
		status      *int
		contentType *string
		body        []byte
	)
	err = s.db.Pool.QueryRow(ctx, `
		SELECT body_hash, status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1 AND user_id = $2 AND method = $3 AND route = $4
	`, string(req.Key), string(req.User), req.Method, req.Route).Scan(&e.BodyHash, &status, &contentType, &body, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Released between our insert and this read; report it as held so the caller retries later.
			return idempotency.Entry{BodyHash: bodyHash, CreatedAt: at.UTC()}, false, nil
		}
		return idempotency.Entry{}, false, fmt.Errorf("load idempotency key: %w", err)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if status != nil {
		e.Response = &idempotency.Response{StatusCode: *status, Body: body}
		if contentType != nil {
			e.Response.ContentType = *contentType
		}
	}
	return e, false, nil
}

func (s *Store) Complete(ctx context.Context, req idempotency.Request, resp idempotency.Response) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE idempotency_keys
		SET status_code = $5, content_type = $6, body = $7
		WHERE idempotency_key = $1 AND user_id = $2 AND method = $3 AND route = $4
	`, string(req.Key), string(req.User), req.Method, req.Route, resp.StatusCode, resp.ContentType, resp.Body)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return idempotency.ErrNotReserved
	}
	return nil
}

func (s *Store) Release(ctx context.Context, req idempotency.Request) error {
	_, err := s.db.Pool.Exec(ctx, `
		DELETE FROM idempotency_keys
		WHERE idempotency_key = $1 AND user_id = $2 AND method = $3 AND route = $4
		  AND status_code IS NULL
	`, string(req.Key), string(req.User), req.Method, req.Route)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
