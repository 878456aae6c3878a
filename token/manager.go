// Package token issues and verifies the signed claim bundles exchanged
// between engine and client. Access and renewal tokens use the same claim
// shape but independent signing secrets: a leaked access token can never be
// replayed as a renewal token.
package token

import (
	"bytes"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config configures a [Manager].
type Config struct {
	AccessTTL     time.Duration
	RenewalTTL    time.Duration
	AccessSecret  []byte
	RenewalSecret []byte
	Issuer        string
	Leeway        time.Duration
}

// Claims is the signed payload carried by both token kinds.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager signs and verifies token pairs. Immutable after NewManager.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RenewalTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.AccessSecret) == 0 || len(cfg.RenewalSecret) == 0 {
		return nil, errors.New("signing secrets are required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RenewalSecret) {
		return nil, errors.New("signing secrets must be independent")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// CreateAccess issues an access token expiring after AccessTTL.
func (m *Manager) CreateAccess(accountID, email string) (string, error) {
	return m.create(accountID, email, m.config.AccessSecret, m.config.AccessTTL)
}

// CreateRenewal issues a renewal token expiring after RenewalTTL.
func (m *Manager) CreateRenewal(accountID, email string) (string, error) {
	return m.create(accountID, email, m.config.RenewalSecret, m.config.RenewalTTL)
}

// ParseAccess verifies signature and expiry of an access token.
func (m *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, m.config.AccessSecret)
}

// ParseRenewal verifies signature and expiry of a renewal token.
func (m *Manager) ParseRenewal(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, m.config.RenewalSecret)
}

func (m *Manager) create(accountID, email string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			// Timestamps have second granularity; the jti is what makes two
			// tokens issued in the same second distinct, which rotation
			// depends on.
			ID:        uuid.NewString(),
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *Manager) parse(tokenStr string, secret []byte) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}
