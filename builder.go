package authloop

import (
	"errors"

	"github.com/go-logr/logr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	internalmetrics "github.com/mkellner/authloop/internal/metrics"
	"github.com/mkellner/authloop/password"
	"github.com/mkellner/authloop/session"
	"github.com/mkellner/authloop/token"
)

// Builder assembles an [Engine]. Exactly one session backend must be chosen:
// WithRedis, WithPostgres, or WithSessionStore.
type Builder struct {
	config Config
	redis  *redis.Client
	pg     *pgxpool.Pool
	store  session.Store

	userProvider UserProvider
	log          logr.Logger

	built bool
}

// New creates a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis selects the Redis session backend.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithPostgres selects the Postgres session backend.
func (b *Builder) WithPostgres(pool *pgxpool.Pool) *Builder {
	b.pg = pool
	return b
}

// WithSessionStore installs a custom [session.Store], e.g. session.NewMemory
// for tests and single-process deployments.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithUserProvider installs the account collaborator.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithLogger installs a logr.Logger. Without one the engine logs nothing.
func (b *Builder) WithLogger(log logr.Logger) *Builder {
	b.log = log
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider is required")
	}

	store := b.store
	switch {
	case store != nil:
	case b.redis != nil:
		store = session.NewRedis(b.redis, b.config.Session.RedisPrefix)
	case b.pg != nil:
		store = session.NewPostgres(b.pg)
	default:
		return nil, errors.New("session backend is required")
	}

	tokens, err := token.NewManager(token.Config{
		AccessTTL:     b.config.Token.AccessTTL,
		RenewalTTL:    b.config.Token.RenewalTTL,
		AccessSecret:  b.config.Token.AccessSecret,
		RenewalSecret: b.config.Token.RenewalSecret,
		Issuer:        b.config.Token.Issuer,
		Leeway:        b.config.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	passwordHash, err := password.NewArgon2(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	b.built = true
	return &Engine{
		config:       b.config,
		store:        store,
		tokens:       tokens,
		passwordHash: passwordHash,
		userProvider: b.userProvider,
		metrics:      internalmetrics.New(b.config.Metrics.Enabled),
		log:          resolveLogger(b.log),
	}, nil
}

func resolveLogger(log logr.Logger) logr.Logger {
	if log.GetSink() == nil {
		return logr.Discard()
	}
	return log
}
