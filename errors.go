package authloop

import "errors"

var (
	// ErrInvalidCredentials is returned by [Engine.Login] for an unknown email
	// or a password mismatch. The two cases are indistinguishable on purpose.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccessDenied is returned by [Engine.Refresh] for any renewal failure:
	// bad signature, expiry, missing session, or reuse of a rotated token.
	ErrAccessDenied = errors.New("access denied")
	// ErrUserNotFound is returned by [Engine.Profile] when the account no
	// longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned by [Engine.Register] for a duplicate email.
	// [UserProvider.Create] implementations should return it as well.
	ErrAccountExists = errors.New("account already exists")
	// ErrEmailRequired is returned by [Engine.Register] when the email is
	// blank after trimming.
	ErrEmailRequired = errors.New("email must not be empty")
	// ErrEngineNotReady is returned when the engine is used before Build
	// completed or with missing collaborators.
	ErrEngineNotReady = errors.New("engine not initialized")
)
