package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authloop "github.com/mkellner/authloop"
	"github.com/mkellner/authloop/session"
)

type mapProvider struct {
	byEmail map[string]authloop.UserRecord
	byID    map[string]authloop.UserRecord
}

func newMapProvider() *mapProvider {
	return &mapProvider{
		byEmail: map[string]authloop.UserRecord{},
		byID:    map[string]authloop.UserRecord{},
	}
}

func (p *mapProvider) FindByEmail(_ context.Context, email string) (authloop.UserRecord, error) {
	user, ok := p.byEmail[strings.ToLower(email)]
	if !ok {
		return authloop.UserRecord{}, authloop.ErrUserNotFound
	}
	return user, nil
}

func (p *mapProvider) FindByID(_ context.Context, id string) (authloop.UserRecord, error) {
	user, ok := p.byID[id]
	if !ok {
		return authloop.UserRecord{}, authloop.ErrUserNotFound
	}
	return user, nil
}

func (p *mapProvider) Create(_ context.Context, email, passwordHash string) (authloop.UserRecord, error) {
	key := strings.ToLower(email)
	if _, ok := p.byEmail[key]; ok {
		return authloop.UserRecord{}, authloop.ErrAccountExists
	}
	user := authloop.UserRecord{ID: "acct-1", Email: email, PasswordHash: passwordHash}
	p.byEmail[key] = user
	p.byID[user.ID] = user
	return user, nil
}

// newGuardedServer returns a guarded echo handler plus one valid access token
// and one renewal token for the seeded account.
func newGuardedServer(t *testing.T) (*httptest.Server, *authloop.LoginResult) {
	t.Helper()

	cfg := authloop.DefaultConfig()
	cfg.Token.AccessSecret = []byte("access-test-secret")
	cfg.Token.RenewalSecret = []byte("renewal-test-secret")
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
		WithUserProvider(newMapProvider()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx := context.Background()
	if err := engine.Register(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	res, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "missing claims", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(claims.Subject))
	}))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, res
}

func get(t *testing.T, url, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGuardRejectsMissingToken(t *testing.T) {
	srv, _ := newGuardedServer(t)

	if resp := get(t, srv.URL, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestGuardRejectsGarbageToken(t *testing.T) {
	srv, _ := newGuardedServer(t)

	if resp := get(t, srv.URL, "garbage"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestGuardRejectsRenewalToken(t *testing.T) {
	srv, res := newGuardedServer(t)

	if resp := get(t, srv.URL, res.RenewalToken); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestGuardStashesClaims(t *testing.T) {
	srv, res := newGuardedServer(t)

	resp := get(t, srv.URL, res.AccessToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := make([]byte, 64)
	n, _ := resp.Body.Read(body)
	if got := string(body[:n]); got != res.User.ID {
		t.Fatalf("subject = %q, want %q", got, res.User.ID)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		token, ok := BearerToken(tc.header)
		if token != tc.token || ok != tc.ok {
			t.Errorf("BearerToken(%q) = %q, %v", tc.header, token, ok)
		}
	}
}
