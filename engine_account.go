package authloop

import "context"

// Logout clears the account's session slot. Any outstanding renewal token
// stops working immediately. Logging out an account with no session is a
// no-op; Logout is idempotent.
func (e *Engine) Logout(ctx context.Context, accountID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if err := e.store.Clear(ctx, accountID); err != nil {
		e.log.Error(err, "session clear failed", "account", accountID)
		return err
	}
	e.metricInc(MetricLogout)
	e.log.V(1).Info("logout", "account", accountID)
	return nil
}

// Profile returns the account view for accountID with credential material
// excluded, or [ErrUserNotFound] if the account has vanished.
func (e *Engine) Profile(ctx context.Context, accountID string) (*Profile, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	user, err := e.userProvider.FindByID(ctx, accountID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return &Profile{ID: user.ID, Email: user.Email}, nil
}
