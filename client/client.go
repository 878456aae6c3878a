package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

const defaultTimeout = 10 * time.Second

// Config configures a [Client]. BaseURL and Vault are required.
type Config struct {
	BaseURL string
	Vault   Vault
	// HTTPClient supplies the base transport; zero value uses
	// http.DefaultTransport.
	HTTPClient *http.Client
	// RenewalLead defaults to [DefaultRenewalLead].
	RenewalLead time.Duration
	Timeout     time.Duration
	Logger      logr.Logger
	// OnLoggedOut runs after any logout, voluntary or forced. It is the
	// application's cue to return to its login entry point.
	OnLoggedOut func()
}

// User is the account view returned by the server.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client talks to an authloop server. All methods are safe for concurrent
// use.
type Client struct {
	baseURL     string
	api         *http.Client
	raw         *http.Client
	state       *State
	vault       Vault
	coordinator *Coordinator
	scheduler   *Scheduler
	cancelSync  func()
	onLoggedOut func()
	log         logr.Logger
}

// New validates cfg and wires the pipeline, coordinator, scheduler, and
// cross-context sync. Callers must Close the client when done.
func New(cfg Config) (*Client, error) {
	if cfg.Vault == nil {
		return nil, errors.New("vault is required")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.New("invalid base URL")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	var base http.RoundTripper
	if cfg.HTTPClient != nil {
		base = cfg.HTTPClient.Transport
	}

	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		raw:         &http.Client{Timeout: timeout},
		state:       NewState(),
		vault:       cfg.Vault,
		onLoggedOut: cfg.OnLoggedOut,
		log:         log,
	}

	c.scheduler = NewScheduler(cfg.RenewalLead, c.proactiveRenewal, log)
	c.coordinator = NewCoordinator(
		c.state,
		c.vault,
		c.rotate,
		c.scheduler.Arm,
		c.handleForcedLogout,
		log,
	)
	c.api = &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(base, c.state, c.coordinator),
	}
	c.cancelSync = c.vault.SubscribeRemoval(c.handleRemoteLogout)

	return c, nil
}

// Close stops the scheduler and detaches from the vault. It does not log the
// session out.
func (c *Client) Close() {
	c.scheduler.Stop()
	if c.cancelSync != nil {
		c.cancelSync()
	}
}

// Login authenticates and installs the issued pair: access token in memory,
// renewal token in the vault, proactive renewal armed.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		User         User   `json:"user"`
	}
	payload := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, c.raw, http.MethodPost, "/auth/login", payload, nil, &resp); err != nil {
		return nil, err
	}

	c.state.SetAccess(resp.AccessToken)
	c.vault.StoreRenewal(resp.RefreshToken)
	c.scheduler.Arm(resp.AccessToken)
	return &resp.User, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, email, password string) error {
	payload := map[string]string{"email": email, "password": password}
	return c.do(ctx, c.raw, http.MethodPost, "/user/register", payload, nil, nil)
}

// Profile fetches the current account view through the pipeline.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, c.api, http.MethodGet, "/auth/profile", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout tells the server to drop the session, then clears local state
// regardless of the server's answer. Other contexts sharing the vault observe
// the removal and log out too.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, c.api, http.MethodPost, "/auth/logout", nil, nil, nil)
	c.localLogout()
	return err
}

// AccessToken exposes the in-memory access token, mainly for diagnostics.
func (c *Client) AccessToken() (string, bool) {
	return c.state.AccessToken()
}

// rotate is the coordinator's network call: the one place the renewal token
// goes on the wire. It bypasses the pipeline so a 401 here cannot recurse.
func (c *Client) rotate(ctx context.Context) (string, string, error) {
	renewal, ok := c.vault.LoadRenewal()
	if !ok {
		return "", "", &APIError{Kind: KindUnauthorized, Message: "no renewal credential", Status: 401}
	}

	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	header := http.Header{"Authorization": {"Bearer " + renewal}}
	if err := c.do(ctx, c.raw, http.MethodPost, "/auth/refresh", nil, header, &resp); err != nil {
		return "", "", err
	}
	return resp.AccessToken, resp.RefreshToken, nil
}

func (c *Client) proactiveRenewal() {
	if _, err := c.coordinator.Refresh(context.Background()); err != nil {
		// Reactive renewal on the next 401 is the fallback; the user is not
		// interrupted.
		c.log.V(1).Info("proactive renewal failed", "reason", err.Error())
	}
}

func (c *Client) handleForcedLogout() {
	c.scheduler.Stop()
	if c.onLoggedOut != nil {
		c.onLoggedOut()
	}
}

func (c *Client) handleRemoteLogout() {
	c.log.V(1).Info("renewal credential removed by another context")
	c.localLogout()
}

func (c *Client) localLogout() {
	c.state.Clear()
	c.scheduler.Stop()
	c.vault.ClearRenewal()
	if c.onLoggedOut != nil {
		c.onLoggedOut()
	}
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path string, payload any, header http.Header, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return networkError()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var serverMsg struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&serverMsg)
	return statusError(resp.StatusCode, serverMsg.Message)
}
