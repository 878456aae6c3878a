package client

import (
	"context"
	"errors"
	"sync"

	"github.com/go-logr/logr"
)

// RotateFunc calls the server's rotate endpoint with the stored renewal token
// and returns the fresh pair.
type RotateFunc func(ctx context.Context) (access, renewal string, err error)

type refreshOutcome struct {
	access string
	err    error
}

// Coordinator serializes renewal. However many callers need a fresh access
// token at once, one rotation call is made; everyone else suspends until it
// completes and observes the same outcome. Replays are released only after
// both the in-memory access token and the durable renewal token have been
// swapped.
type Coordinator struct {
	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshOutcome

	state  *State
	vault  Vault
	rotate RotateFunc

	onAccess       func(token string)
	onForcedLogout func()
	log            logr.Logger
}

// NewCoordinator wires a Coordinator. onAccess runs after every successful
// swap (the scheduler re-arms there); onForcedLogout runs when renewal is
// impossible or fails.
func NewCoordinator(state *State, vault Vault, rotate RotateFunc, onAccess func(string), onForcedLogout func(), log logr.Logger) *Coordinator {
	return &Coordinator{
		state:          state,
		vault:          vault,
		rotate:         rotate,
		onAccess:       onAccess,
		onForcedLogout: onForcedLogout,
		log:            log,
	}
}

// Refresh returns a usable access token, either by joining the renewal
// already in flight or by starting one.
//
// With no renewal token in the vault it fails immediately without a network
// call and forces a logout. A rotation the server rejected as unauthorized
// also forces a logout: the session is gone. Transient failures (network,
// 5xx) leave the stored renewal token in place so a later attempt, scheduled
// or 401-triggered, can still succeed; every suspended caller is rejected
// with the same error either way.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan refreshOutcome, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		select {
		case out := <-ch:
			return out.access, out.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if _, ok := c.vault.LoadRenewal(); !ok {
		c.mu.Unlock()
		c.forceLogout()
		return "", &APIError{Kind: KindUnauthorized, Message: "no renewal credential", Status: 401}
	}

	c.refreshing = true
	c.mu.Unlock()

	access, renewal, err := c.rotate(ctx)

	c.mu.Lock()
	if err == nil {
		// Swap both credentials before any waiter wakes, so no replay races
		// ahead of the rotation.
		c.state.SetAccess(access)
		c.vault.StoreRenewal(renewal)
	}
	c.refreshing = false
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	if err != nil {
		if renewalRejected(err) {
			c.log.V(1).Info("renewal rejected, forcing logout", "reason", err.Error())
			c.forceLogout()
		} else {
			c.log.V(1).Info("renewal attempt failed, credential kept", "reason", err.Error())
		}
		for _, ch := range waiters {
			ch <- refreshOutcome{err: err}
		}
		return "", err
	}

	if c.onAccess != nil {
		c.onAccess(access)
	}
	for _, ch := range waiters {
		ch <- refreshOutcome{access: access}
	}
	return access, nil
}

// renewalRejected reports whether the server definitively refused the
// renewal credential, as opposed to the attempt not reaching a verdict.
func renewalRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}

func (c *Coordinator) forceLogout() {
	c.state.Clear()
	c.vault.ClearRenewal()
	if c.onForcedLogout != nil {
		c.onForcedLogout()
	}
}
