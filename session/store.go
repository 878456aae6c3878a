// Package session persists the server-side session slot: per account, the
// hash of the currently valid renewal token. At most one slot exists per
// account, so issuing a new pair always invalidates the previous renewal
// token.
//
// Store implementations must make CompareAndSwap atomic per account: of two
// concurrent rotations presenting the same hash, exactly one may succeed.
package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"
)

// ErrNotFound is returned when no session slot exists for the account.
var ErrNotFound = errors.New("session not found")

// ErrHashMismatch is returned by CompareAndSwap when the presented hash does
// not match the stored one: either a forged token or reuse after rotation.
var ErrHashMismatch = errors.New("renewal hash mismatch")

// Store is the credential-store collaborator of the engine.
type Store interface {
	// Get returns the stored renewal hash for accountID.
	Get(ctx context.Context, accountID string) ([32]byte, error)
	// Replace writes hash unconditionally, overwriting any prior slot.
	Replace(ctx context.Context, accountID string, hash [32]byte, ttl time.Duration) error
	// CompareAndSwap replaces the stored hash with next only if it currently
	// equals provided, atomically.
	CompareAndSwap(ctx context.Context, accountID string, provided, next [32]byte, ttl time.Duration) error
	// Clear removes the slot. Clearing an absent slot is not an error.
	Clear(ctx context.Context, accountID string) error
}

// HashRenewalToken produces the digest stored and compared by every Store.
// Renewal tokens carry full signing entropy, so a plain SHA-256 suffices.
func HashRenewalToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}
