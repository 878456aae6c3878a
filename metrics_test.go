package authloop

import (
	"context"
	"testing"

	"github.com/mkellner/authloop/session"
)

func TestMetricsCountOperations(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, engine, "alice@example.com", "correct-horse")

	if _, err := engine.Login(ctx, "alice@example.com", "wrong-password"); err == nil {
		t.Fatal("expected failed login")
	}
	res, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, res.RenewalToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if err := engine.Logout(ctx, res.User.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricRegisterSuccess: 1,
		MetricLoginFailure:    1,
		MetricLoginSuccess:    1,
		MetricRefreshSuccess:  1,
		MetricLogout:          1,
	}
	for id, want := range expect {
		if got := snap.Counters[id]; got != want {
			t.Errorf("counter %d = %d, want %d", id, got, want)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false

	engine, err := New().
		WithConfig(cfg).
		WithSessionStore(session.NewMemory()).
		WithUserProvider(newMockUserProvider()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	seedAccount(t, engine, "alice@example.com", "correct-horse")
	if _, err := engine.Login(context.Background(), "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	for id, v := range snap.Counters {
		if v != 0 {
			t.Fatalf("counter %d = %d with metrics disabled", id, v)
		}
	}
}
