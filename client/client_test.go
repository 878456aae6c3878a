package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	authloop "github.com/mkellner/authloop"
	"github.com/mkellner/authloop/httpapi"
	"github.com/mkellner/authloop/session"
)

type serverProvider struct {
	mu      sync.Mutex
	byEmail map[string]authloop.UserRecord
	byID    map[string]authloop.UserRecord
	nextID  int
}

func newServerProvider() *serverProvider {
	return &serverProvider{
		byEmail: map[string]authloop.UserRecord{},
		byID:    map[string]authloop.UserRecord{},
	}
}

func (p *serverProvider) FindByEmail(_ context.Context, email string) (authloop.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byEmail[strings.ToLower(email)]
	if !ok {
		return authloop.UserRecord{}, authloop.ErrUserNotFound
	}
	return user, nil
}

func (p *serverProvider) FindByID(_ context.Context, id string) (authloop.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byID[id]
	if !ok {
		return authloop.UserRecord{}, authloop.ErrUserNotFound
	}
	return user, nil
}

func (p *serverProvider) Create(_ context.Context, email, passwordHash string) (authloop.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := p.byEmail[key]; ok {
		return authloop.UserRecord{}, authloop.ErrAccountExists
	}
	p.nextID++
	user := authloop.UserRecord{
		ID:           fmt.Sprintf("user-%d", p.nextID),
		Email:        email,
		PasswordHash: passwordHash,
	}
	p.byEmail[key] = user
	p.byID[user.ID] = user
	return user, nil
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := authloop.DefaultConfig()
	cfg.Token.AccessSecret = []byte("access-test-secret")
	cfg.Token.RenewalSecret = []byte("renewal-test-secret")
	cfg.Token.Issuer = "authloop-test"
	cfg.Password = authloop.PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}

	engine, err := authloop.New().
		WithConfig(cfg).
		WithSessionStore(session.NewMemory()).
		WithUserProvider(newServerProvider()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	srv := httptest.NewServer(httpapi.Handler(engine))
	t.Cleanup(srv.Close)
	return srv
}

func newClientAgainst(t *testing.T, srv *httptest.Server, vault Vault, onLoggedOut func()) *Client {
	t.Helper()
	if vault == nil {
		vault = NewVault()
	}
	c, err := New(Config{
		BaseURL:     srv.URL,
		Vault:       vault,
		OnLoggedOut: onLoggedOut,
	})
	if err != nil {
		t.Fatalf("New client: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func registerClientUser(t *testing.T, c *Client) {
	t.Helper()
	if err := c.Register(context.Background(), "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestClientLoginProfileLogout(t *testing.T) {
	srv := newBackend(t)

	var loggedOut atomic.Bool
	c := newClientAgainst(t, srv, nil, func() { loggedOut.Store(true) })
	registerClientUser(t, c)
	ctx := context.Background()

	user, err := c.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Email != "alice@example.com" || user.ID == "" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if _, ok := c.AccessToken(); !ok {
		t.Fatal("no access token after login")
	}
	if !c.scheduler.Armed() {
		t.Fatal("proactive renewal not armed after login")
	}

	profile, err := c.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.ID != user.ID {
		t.Fatalf("profile id = %q, want %q", profile.ID, user.ID)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !loggedOut.Load() {
		t.Fatal("OnLoggedOut did not run")
	}
	if _, ok := c.AccessToken(); ok {
		t.Fatal("access token survived logout")
	}
	if _, ok := c.vault.LoadRenewal(); ok {
		t.Fatal("renewal token survived logout")
	}
	if c.scheduler.Armed() {
		t.Fatal("scheduler still armed after logout")
	}
}

func TestClientLoginBadCredentials(t *testing.T) {
	srv := newBackend(t)
	c := newClientAgainst(t, srv, nil, nil)
	registerClientUser(t, c)

	_, err := c.Login(context.Background(), "alice@example.com", "wrong-horse-xx")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindUnauthorized {
		t.Fatalf("err = %v, want unauthorized APIError", err)
	}
	if apiErr.Message != "Unauthorized" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestClientRegisterDuplicate(t *testing.T) {
	srv := newBackend(t)
	c := newClientAgainst(t, srv, nil, nil)
	registerClientUser(t, c)

	err := c.Register(context.Background(), "alice@example.com", "another-pass")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindValidation {
		t.Fatalf("err = %v, want validation APIError", err)
	}
	if apiErr.Message != "Email is already registered" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestClientRecoversFromExpiredAccess(t *testing.T) {
	srv := newBackend(t)
	c := newClientAgainst(t, srv, nil, nil)
	registerClientUser(t, c)
	ctx := context.Background()

	if _, err := c.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Simulate access-token expiry: the next guarded request 401s, the
	// pipeline renews through the vault, and the request is replayed.
	c.state.SetAccess("expired-access-token")

	profile, err := c.Profile(ctx)
	if err != nil {
		t.Fatalf("profile after expiry: %v", err)
	}
	if profile.Email != "alice@example.com" {
		t.Fatalf("profile email = %q", profile.Email)
	}

	if access, _ := c.AccessToken(); access == "expired-access-token" || access == "" {
		t.Fatal("access token was not renewed")
	}
}

func TestConcurrentRequestsShareOneRefresh(t *testing.T) {
	backend := newBackend(t)

	const n = 5

	// The proxy counts rotation calls and holds the first one until every
	// stale request has been answered with its 401, so all five requests are
	// in flight before the rotation resolves.
	var refreshHits atomic.Int32
	staleServed := make(chan struct{}, n)
	counting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/auth/refresh":
			refreshHits.Add(1)
			for i := 0; i < n; i++ {
				<-staleServed
			}
		case r.URL.Path == "/auth/profile" && r.Header.Get("Authorization") == "Bearer expired-access-token":
			defer func() { staleServed <- struct{}{} }()
		}
		backend.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(counting.Close)

	c := newClientAgainst(t, counting, nil, nil)
	registerClientUser(t, c)
	ctx := context.Background()

	if _, err := c.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
	c.state.SetAccess("expired-access-token")

	var wg sync.WaitGroup
	wg.Add(n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := c.Profile(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("profile: %v", err)
		}
	}
	if got := refreshHits.Load(); got != 1 {
		t.Fatalf("/auth/refresh hit %d times, want 1", got)
	}
}

func TestClientForcedLogoutOnDeadSession(t *testing.T) {
	srv := newBackend(t)

	var loggedOut atomic.Bool
	c := newClientAgainst(t, srv, nil, func() { loggedOut.Store(true) })
	registerClientUser(t, c)
	ctx := context.Background()

	if _, err := c.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Kill both credentials out from under the client: renewal is now
	// impossible and the next guarded request must force a logout.
	c.state.SetAccess("expired-access-token")
	c.vault.StoreRenewal("dead-renewal-token")

	_, err := c.Profile(ctx)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindUnauthorized {
		t.Fatalf("err = %v, want unauthorized APIError", err)
	}
	if !loggedOut.Load() {
		t.Fatal("OnLoggedOut did not run")
	}
	if _, ok := c.vault.LoadRenewal(); ok {
		t.Fatal("dead renewal token kept in vault")
	}
}

func TestClientCrossContextLogout(t *testing.T) {
	srv := newBackend(t)
	shared := NewSharedVault()

	var aOut, bOut atomic.Bool
	a := newClientAgainst(t, srv, shared.Attach(), func() { aOut.Store(true) })
	b := newClientAgainst(t, srv, shared.Attach(), func() { bOut.Store(true) })
	registerClientUser(t, a)
	ctx := context.Background()

	if _, err := a.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("login a: %v", err)
	}
	if _, err := b.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("login b: %v", err)
	}

	if err := a.Logout(ctx); err != nil {
		t.Fatalf("logout a: %v", err)
	}

	if !aOut.Load() {
		t.Fatal("client a OnLoggedOut did not run")
	}
	if !bOut.Load() {
		t.Fatal("client b did not observe the removal")
	}
	if _, ok := b.AccessToken(); ok {
		t.Fatal("client b access token survived cross-context logout")
	}
	if b.scheduler.Armed() {
		t.Fatal("client b scheduler still armed")
	}
}

func TestClientNetworkError(t *testing.T) {
	c, err := New(Config{
		BaseURL: "http://127.0.0.1:1",
		Vault:   NewVault(),
	})
	if err != nil {
		t.Fatalf("New client: %v", err)
	}
	defer c.Close()

	_, err = c.Login(context.Background(), "alice@example.com", "correct-horse")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindNetwork {
		t.Fatalf("err = %v, want network APIError", err)
	}
	if apiErr.Message != "Network error. Please check your connection." {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestProactiveRenewalFailureKeepsCredential(t *testing.T) {
	var loggedOut atomic.Bool
	c, err := New(Config{
		BaseURL:     "http://127.0.0.1:1",
		Vault:       NewVault(),
		OnLoggedOut: func() { loggedOut.Store(true) },
	})
	if err != nil {
		t.Fatalf("New client: %v", err)
	}
	defer c.Close()

	c.state.SetAccess("access-0")
	c.vault.StoreRenewal("renewal-0")

	// An unreachable server makes the scheduled renewal fail in transit. The
	// user stays logged in and the stored credential survives for the
	// reactive 401 path.
	c.proactiveRenewal()

	if loggedOut.Load() {
		t.Fatal("transient proactive failure forced a logout")
	}
	if renewal, ok := c.vault.LoadRenewal(); !ok || renewal != "renewal-0" {
		t.Fatalf("renewal credential = %q, %v; want it kept", renewal, ok)
	}
	if _, ok := c.AccessToken(); !ok {
		t.Fatal("access token cleared by transient proactive failure")
	}
}

func TestClientConfigValidation(t *testing.T) {
	if _, err := New(Config{BaseURL: "http://localhost"}); err == nil {
		t.Fatal("expected missing vault to be rejected")
	}
	if _, err := New(Config{BaseURL: "not a url", Vault: NewVault()}); err == nil {
		t.Fatal("expected invalid base URL to be rejected")
	}
}
