package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"perfdash/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) CreateSession(ctx context.Context, sessionID, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (id, user_id, token_hash, expires_at)
    VALUES ($1,$2,$3,$4)
  `, sessionID, userID, tokenHash, expires)
	return err
}

func (s *Store) SessionValid(ctx context.Context, sessionID, userID, tokenHash string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM sessions
      WHERE id = $1 AND user_id = $2 AND token_hash = $3
        AND revoked_at IS NULL AND expires_at > now()
    )
  `, sessionID, userID, tokenHash).Scan(&exists)
	if db.IsInvalidInput(err) {
		return false, nil
	}
	return exists, err
}

func (s *Store) RevokeSession(ctx context.Context, sessionID, userID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE sessions SET revoked_at = now()
    WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL
  `, sessionID, userID)
	return err
}

func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM sessions WHERE expires_at < now() - interval '7 days'")
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
