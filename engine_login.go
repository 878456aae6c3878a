package authloop

import (
	"context"
	"strings"

	"github.com/mkellner/authloop/session"
)

// Login authenticates email/password and issues a fresh token pair. The hash
// of the new renewal token replaces any prior session for the account, so a
// second login invalidates the renewal token from the first.
//
// Unknown accounts and wrong passwords both return [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email = strings.TrimSpace(email)
	if email == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	user, err := e.userProvider.FindByEmail(ctx, email)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	ok, err := e.passwordHash.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	pair, err := e.issuePair(user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.log.Error(err, "token issuance failed", "account", user.ID)
		return nil, err
	}

	hash := session.HashRenewalToken(pair.RenewalToken)
	if err := e.store.Replace(ctx, user.ID, hash, e.config.Token.RenewalTTL); err != nil {
		e.metricInc(MetricLoginFailure)
		e.log.Error(err, "session write failed", "account", user.ID)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.log.V(1).Info("login", "account", user.ID)
	return &LoginResult{
		TokenPair: pair,
		User:      Profile{ID: user.ID, Email: user.Email},
	}, nil
}

// Register creates an account with a hashed password. Duplicate emails return
// [ErrAccountExists]. No tokens are issued; the caller logs in afterwards.
func (e *Engine) Register(ctx context.Context, email, pass string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	email = strings.TrimSpace(email)
	if email == "" {
		e.metricInc(MetricRegisterFailure)
		return ErrEmailRequired
	}

	hash, err := e.passwordHash.Hash(pass)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		return err
	}

	if _, err := e.userProvider.Create(ctx, email, hash); err != nil {
		e.metricInc(MetricRegisterFailure)
		return err
	}

	e.metricInc(MetricRegisterSuccess)
	return nil
}
