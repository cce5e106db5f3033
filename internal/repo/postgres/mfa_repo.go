package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// MFARepo stores hashed one-time login codes. Codes are never invalidated on
// issue; verification always picks the most recent valid record.
type MFARepo interface {
	Create(ctx context.Context, userID, codeHash string, expiresAt time.Time) error
	// Consume checks the submitted code against the most recent unused,
	// unexpired record for the user. A mismatch bumps that record's attempt
	// counter. A match marks the record used exactly once.
	Consume(ctx context.Context, userID, code string) (bool, error)
	// DeleteExpired removes stale records (maintenance).
	DeleteExpired(ctx context.Context) (int64, error)
}

type MFARepoImpl struct{ pool *pgxpool.Pool }

func NewMFARepo(pool *pgxpool.Pool) *MFARepoImpl { return &MFARepoImpl{pool: pool} }

func (r *MFARepoImpl) Create(ctx context.Context, userID, codeHash string, expiresAt time.Time) error {
	const q = `
INSERT INTO mfa_codes (id, user_id, code_hash, expires_at)
VALUES ($1,$2,$3,$4)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, uuid.NewString(), userID, codeHash, expiresAt)
	return err
}

func (r *MFARepoImpl) Consume(ctx context.Context, userID, code string) (bool, error) {
	const q = `
SELECT id, code_hash
FROM mfa_codes
WHERE user_id=$1 AND used=false AND expires_at > now()
ORDER BY created_at DESC
LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		id   string
		hash string
	)
	err := r.pool.QueryRow(ctx, q, userID).Scan(&id, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		_, _ = r.pool.Exec(ctx, `UPDATE mfa_codes SET attempts=attempts+1 WHERE id=$1`, id)
		return false, nil
	}

	// The used=false guard makes consumption single-shot even under
	// concurrent verification of the same code.
	tag, err := r.pool.Exec(ctx, `UPDATE mfa_codes SET used=true WHERE id=$1 AND used=false`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *MFARepoImpl) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, `
DELETE FROM mfa_codes
WHERE (used = true AND created_at < now() - interval '30 days')
   OR (used = false AND expires_at < now() - interval '30 days')`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
