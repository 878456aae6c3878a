package authloop

import (
	"context"
	"errors"

	"github.com/mkellner/authloop/session"
)

// Refresh verifies a renewal token and rotates the session: the stored hash
// is atomically compared against the presented token and overwritten with the
// hash of a freshly issued one. The presented token becomes invalid the
// instant rotation succeeds, so presenting it again is detected as reuse.
//
// Every failure mode collapses into [ErrAccessDenied]; the caller learns
// nothing about why a renewal was refused.
func (e *Engine) Refresh(ctx context.Context, renewalToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseRenewal(renewalToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrAccessDenied
	}

	user, err := e.userProvider.FindByID(ctx, claims.Subject)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrAccessDenied
	}

	nextRenewal, err := e.tokens.CreateRenewal(user.ID, user.Email)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.log.Error(err, "renewal issuance failed", "account", user.ID)
		return nil, err
	}

	err = e.store.CompareAndSwap(
		ctx,
		user.ID,
		session.HashRenewalToken(renewalToken),
		session.HashRenewalToken(nextRenewal),
		e.config.Token.RenewalTTL,
	)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrHashMismatch):
			e.metricInc(MetricRefreshReuseDetected)
			e.metricInc(MetricRefreshFailure)
			e.log.Info("renewal token reuse detected", "account", user.ID)
			return nil, ErrAccessDenied
		case errors.Is(err, session.ErrNotFound):
			e.metricInc(MetricRefreshFailure)
			return nil, ErrAccessDenied
		default:
			e.metricInc(MetricRefreshFailure)
			e.log.Error(err, "session rotate failed", "account", user.ID)
			return nil, err
		}
	}

	access, err := e.tokens.CreateAccess(user.ID, user.Email)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.log.Error(err, "access issuance failed", "account", user.ID)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	return &TokenPair{AccessToken: access, RenewalToken: nextRenewal}, nil
}
