// Command authloop-demo runs a self-contained authloop server.
//
// By default it backs the session store with an embedded miniredis, so no
// external infrastructure is needed:
//
//	go run ./cmd/authloop-demo --access-secret demo-access --renewal-secret demo-renewal
//
// Then:
//
//	curl -i -X POST localhost:8080/user/register \
//	  -H 'Content-Type: application/json' \
//	  -d '{"email":"alice@example.com","password":"correct-horse"}'
//
//	curl -i -X POST localhost:8080/auth/login \
//	  -H 'Content-Type: application/json' \
//	  -d '{"email":"alice@example.com","password":"correct-horse"}'
//
//	curl -i localhost:8080/auth/profile -H "Authorization: Bearer <ACCESS_TOKEN>"
//	curl -i -X POST localhost:8080/auth/refresh -H "Authorization: Bearer <REFRESH_TOKEN>"
//	curl -i localhost:8080/metrics
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr/funcr"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	authloop "github.com/mkellner/authloop"
	"github.com/mkellner/authloop/httpapi"
	promexport "github.com/mkellner/authloop/metrics/export/prometheus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr          string
		redisAddr     string
		accessSecret  string
		renewalSecret string
	)

	cmd := &cobra.Command{
		Use:           "authloop-demo",
		Short:         "Run a demo authloop server with an in-memory user store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if accessSecret == "" {
				accessSecret = os.Getenv("AUTHLOOP_ACCESS_SECRET")
			}
			if renewalSecret == "" {
				renewalSecret = os.Getenv("AUTHLOOP_RENEWAL_SECRET")
			}
			if accessSecret == "" || renewalSecret == "" {
				return fmt.Errorf("both --access-secret and --renewal-secret are required")
			}
			return run(cmd, addr, redisAddr, accessSecret, renewalSecret)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "redis address; empty starts an embedded miniredis")
	cmd.Flags().StringVar(&accessSecret, "access-secret", "", "access token signing secret (or AUTHLOOP_ACCESS_SECRET)")
	cmd.Flags().StringVar(&renewalSecret, "renewal-secret", "", "renewal token signing secret (or AUTHLOOP_RENEWAL_SECRET)")

	return cmd
}

func run(cmd *cobra.Command, addr, redisAddr, accessSecret, renewalSecret string) error {
	log := funcr.New(func(prefix, args string) {
		fmt.Fprintln(cmd.OutOrStdout(), prefix, args)
	}, funcr.Options{})

	if redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded redis: %w", err)
		}
		defer mr.Close()
		redisAddr = mr.Addr()
		log.Info("using embedded miniredis", "addr", redisAddr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	cfg := authloop.DefaultConfig()
	cfg.Token.AccessSecret = []byte(accessSecret)
	cfg.Token.RenewalSecret = []byte(renewalSecret)
	cfg.Token.Issuer = "authloop-demo"
	cfg.Metrics.Enabled = true

	engine, err := authloop.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(newMemoryProvider()).
		WithLogger(log).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.Handler(engine))
	mux.Handle("GET /metrics", promexport.NewExporter(engine).Handler())

	log.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

// memoryProvider is a UserProvider backed by a mutex-guarded map, enough for
// a demo. Real deployments implement UserProvider over their own user store.
type memoryProvider struct {
	mu      sync.RWMutex
	byEmail map[string]authloop.UserRecord
	byID    map[string]authloop.UserRecord
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{
		byEmail: make(map[string]authloop.UserRecord),
		byID:    make(map[string]authloop.UserRecord),
	}
}

func (p *memoryProvider) FindByEmail(_ context.Context, email string) (authloop.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	user, ok := p.byEmail[strings.ToLower(email)]
	if !ok {
		return authloop.UserRecord{}, authloop.ErrUserNotFound
	}
	return user, nil
}

func (p *memoryProvider) FindByID(_ context.Context, id string) (authloop.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	user, ok := p.byID[id]
	if !ok {
		return authloop.UserRecord{}, authloop.ErrUserNotFound
	}
	return user, nil
}

func (p *memoryProvider) Create(_ context.Context, email, passwordHash string) (authloop.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := p.byEmail[key]; ok {
		return authloop.UserRecord{}, authloop.ErrAccountExists
	}
	user := authloop.UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
	}
	p.byEmail[key] = user
	p.byID[user.ID] = user
	return user, nil
}
