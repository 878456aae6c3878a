package authloop

import (
	"bytes"
	"errors"
	"time"
)

// Config configures an [Engine]. Zero values are filled from [DefaultConfig]
// during Build; secrets have no default and must be provided.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Password PasswordConfig
	Metrics  MetricsConfig
}

// TokenConfig controls token issuance. Access and renewal tokens are signed
// with independent secrets so one can never stand in for the other.
type TokenConfig struct {
	AccessTTL     time.Duration
	RenewalTTL    time.Duration
	AccessSecret  []byte
	RenewalSecret []byte
	Issuer        string
	Leeway        time.Duration
}

// SessionConfig controls the server-side session slot.
type SessionConfig struct {
	RedisPrefix string
}

// PasswordConfig carries the argon2id parameters used for password hashing.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// MetricsConfig enables the in-process counters exposed through
// [Engine.MetricsSnapshot] and the prometheus exporter.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the recommended settings: 15 minute access tokens,
// 7 day renewal tokens, and argon2id parameters sized for interactive login.
// Secrets must still be set before Build.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RenewalTTL: 7 * 24 * time.Hour,
			Leeway:     30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "authloop",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.Token.AccessTTL <= 0 || cfg.Token.RenewalTTL <= 0 {
		return errors.New("invalid TTL configuration")
	}
	if cfg.Token.AccessTTL >= cfg.Token.RenewalTTL {
		return errors.New("access TTL must be shorter than renewal TTL")
	}
	if len(cfg.Token.AccessSecret) == 0 || len(cfg.Token.RenewalSecret) == 0 {
		return errors.New("access and renewal signing secrets are required")
	}
	if bytes.Equal(cfg.Token.AccessSecret, cfg.Token.RenewalSecret) {
		return errors.New("access and renewal signing secrets must differ")
	}
	if cfg.Token.Leeway < 0 || cfg.Token.Leeway > 2*time.Minute {
		return errors.New("invalid leeway configuration")
	}
	if cfg.Session.RedisPrefix == "" {
		return errors.New("session prefix must not be empty")
	}
	return nil
}
