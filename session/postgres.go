package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the table Postgres expects. Run it once at deploy time or
// through EnsureSchema.
const Schema = `
CREATE SCHEMA IF NOT EXISTS authloop;

CREATE TABLE IF NOT EXISTS authloop.sessions (
  account_id   text PRIMARY KEY,
  renewal_hash bytea NOT NULL,
  expires_at   timestamptz NOT NULL,
  rotated_at   timestamptz NOT NULL
);
`

const (
	getSessionQuery = `
SELECT renewal_hash
FROM authloop.sessions
WHERE account_id = $1 AND expires_at > now()
`

	replaceSessionQuery = `
INSERT INTO authloop.sessions (account_id, renewal_hash, expires_at, rotated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (account_id) DO UPDATE
SET
  renewal_hash = EXCLUDED.renewal_hash,
  expires_at = EXCLUDED.expires_at,
  rotated_at = EXCLUDED.rotated_at
`

	// The hash predicate is the compare half of compare-and-swap: a row is
	// updated only when it still holds the presented hash.
	casSessionQuery = `
UPDATE authloop.sessions
SET renewal_hash = $3, expires_at = $4, rotated_at = now()
WHERE account_id = $1 AND renewal_hash = $2 AND expires_at > now()
`

	existsSessionQuery = `
SELECT 1 FROM authloop.sessions WHERE account_id = $1 AND expires_at > now()
`

	clearSessionQuery = `DELETE FROM authloop.sessions WHERE account_id = $1`
)

// Postgres is the Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema applies Schema.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, Schema)
	return err
}

func (p *Postgres) Get(ctx context.Context, accountID string) ([32]byte, error) {
	var hash [32]byte
	var raw []byte
	err := p.pool.QueryRow(ctx, getSessionQuery, accountID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return hash, ErrNotFound
	}
	if err != nil {
		return hash, err
	}
	if len(raw) != len(hash) {
		return hash, errors.New("corrupt session row")
	}
	copy(hash[:], raw)
	return hash, nil
}

func (p *Postgres) Replace(ctx context.Context, accountID string, hash [32]byte, ttl time.Duration) error {
	_, err := p.pool.Exec(ctx, replaceSessionQuery, accountID, hash[:], time.Now().UTC().Add(ttl))
	return err
}

func (p *Postgres) CompareAndSwap(ctx context.Context, accountID string, provided, next [32]byte, ttl time.Duration) error {
	tag, err := p.pool.Exec(ctx, casSessionQuery, accountID, provided[:], next[:], time.Now().UTC().Add(ttl))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Distinguish mismatch from absence for the caller's metrics; both refuse
	// the rotation either way.
	var one int
	err = p.pool.QueryRow(ctx, existsSessionQuery, accountID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrHashMismatch
}

func (p *Postgres) Clear(ctx context.Context, accountID string) error {
	_, err := p.pool.Exec(ctx, clearSessionQuery, accountID)
	return err
}
