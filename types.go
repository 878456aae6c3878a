package authloop

import "context"

// UserRecord is the account record returned by [UserProvider]. The engine
// never persists it; PasswordHash is compared and discarded.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
}

// UserProvider is the interface callers implement to integrate authloop with
// their user database. Lookup failures for absent accounts should be reported
// with [ErrUserNotFound]; duplicate creation with [ErrAccountExists].
type UserProvider interface {
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	FindByID(ctx context.Context, id string) (UserRecord, error)
	Create(ctx context.Context, email, passwordHash string) (UserRecord, error)
}

// TokenPair carries one issued access/renewal token pair.
type TokenPair struct {
	AccessToken  string
	RenewalToken string
}

// Profile is the account view returned by [Engine.Profile] and embedded in
// login responses. Password and renewal-hash material is excluded.
type Profile struct {
	ID    string
	Email string
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	TokenPair
	User Profile
}
