package opstore

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// CachedResponse is a previously-recorded response for a mutating request,
// keyed by its Idempotency-Key header (spec.md §4.5 "All mutating endpoints
// accept an Idempotency-Key header").
type CachedResponse struct {
	StatusCode int
	Body       []byte
}

// GetIdempotentResponse looks up a cached response for key. ErrNotFound
// means no request with this key has completed yet.
func (s *Store) GetIdempotentResponse(ctx context.Context, key string) (CachedResponse, error) {
	var out CachedResponse
	err := s.pool.QueryRow(ctx,
		`SELECT status_code, response FROM idempotency_keys WHERE key = $1`, key,
	).Scan(&out.StatusCode, &out.Body)
	if err == pgx.ErrNoRows {
		return CachedResponse{}, ErrNotFound
	}
	return out, err
}

// PutIdempotentResponse records the response for key so a retried request
// with the same header returns the original result instead of re-running
// the handler. A second writer racing the same key is harmless: ON
// CONFLICT keeps whichever response landed first.
func (s *Store) PutIdempotentResponse(ctx context.Context, key string, statusCode int, body []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, status_code, response)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING
	`, key, statusCode, body)
	return err
}
