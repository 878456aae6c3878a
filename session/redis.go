package session

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	casStatusNotFound int64 = 0
	casStatusMismatch int64 = 1
	casStatusSwapped  int64 = 2
)

// The compare and the overwrite must happen in one server-side call, or two
// concurrent rotations could both pass verification before either writes.
const casScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 2
`

var casLua = redis.NewScript(casScript)

// Redis is the Store backed by a shared Redis instance. Slots are stored as
// hex digests under <prefix>:renewal:<accountID> with the renewal TTL, so
// abandoned sessions expire on their own.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis store. prefix namespaces all keys.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(accountID string) string {
	return r.prefix + ":renewal:" + accountID
}

func (r *Redis) Get(ctx context.Context, accountID string) ([32]byte, error) {
	var hash [32]byte
	val, err := r.client.Get(ctx, r.key(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return hash, ErrNotFound
	}
	if err != nil {
		return hash, err
	}
	raw, err := hex.DecodeString(val)
	if err != nil || len(raw) != len(hash) {
		return hash, errors.New("corrupt session slot")
	}
	copy(hash[:], raw)
	return hash, nil
}

func (r *Redis) Replace(ctx context.Context, accountID string, hash [32]byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(accountID), hex.EncodeToString(hash[:]), ttl).Err()
}

func (r *Redis) CompareAndSwap(ctx context.Context, accountID string, provided, next [32]byte, ttl time.Duration) error {
	status, err := casLua.Run(
		ctx,
		r.client,
		[]string{r.key(accountID)},
		hex.EncodeToString(provided[:]),
		hex.EncodeToString(next[:]),
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return err
	}
	switch status {
	case casStatusSwapped:
		return nil
	case casStatusMismatch:
		return ErrHashMismatch
	case casStatusNotFound:
		return ErrNotFound
	default:
		return errors.New("unexpected rotate script status")
	}
}

func (r *Redis) Clear(ctx context.Context, accountID string) error {
	return r.client.Del(ctx, r.key(accountID)).Err()
}
