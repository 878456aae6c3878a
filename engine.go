package authloop

import (
	"github.com/go-logr/logr"

	internalmetrics "github.com/mkellner/authloop/internal/metrics"
	"github.com/mkellner/authloop/password"
	"github.com/mkellner/authloop/session"
	"github.com/mkellner/authloop/token"
)

// Engine is the token issuer. It orchestrates login, rotation, and logout
// against the session store and is safe for concurrent use.
type Engine struct {
	config       Config
	store        session.Store
	tokens       *token.Manager
	passwordHash *password.Argon2
	userProvider UserProvider
	metrics      *internalmetrics.Metrics
	log          logr.Logger
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.tokens != nil && e.userProvider != nil
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// ValidateAccess verifies an access token and returns its claims. Any parse
// or signature failure surfaces as [ErrAccessDenied].
func (e *Engine) ValidateAccess(tokenStr string) (*token.Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	claims, err := e.tokens.ParseAccess(tokenStr)
	if err != nil {
		return nil, ErrAccessDenied
	}
	return claims, nil
}

// issuePair creates a fresh token pair for the account.
func (e *Engine) issuePair(user UserRecord) (TokenPair, error) {
	access, err := e.tokens.CreateAccess(user.ID, user.Email)
	if err != nil {
		return TokenPair{}, err
	}
	renewal, err := e.tokens.CreateRenewal(user.ID, user.Email)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RenewalToken: renewal}, nil
}
