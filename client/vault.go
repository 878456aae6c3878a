package client

import "sync"

// Vault is the durable slot holding the renewal token. Only the renewal token
// goes in a Vault; access tokens stay in [State].
//
// SubscribeRemoval delivers exactly one event kind: the slot became absent
// through another context sharing the same storage. Local writes and local
// clears do not echo back to the subscriber, and stores (rotation in another
// context) are deliberately not propagated; a context holding a stale renewal
// token recovers through its own 401 path.
type Vault interface {
	LoadRenewal() (string, bool)
	StoreRenewal(token string)
	ClearRenewal()
	SubscribeRemoval(fn func()) (cancel func())
}

// SharedVault is in-process shared storage for renewal tokens. Each execution
// context attaches its own [Tab]; clearing the slot through one tab notifies
// removal subscribers on every other tab.
type SharedVault struct {
	mu      sync.Mutex
	renewal string
	present bool
	nextSub int
	subs    map[int]vaultSub
}

type vaultSub struct {
	tab *Tab
	fn  func()
}

// Tab is one context's handle on a SharedVault. It implements [Vault].
type Tab struct {
	vault *SharedVault
}

// NewSharedVault creates an empty SharedVault.
func NewSharedVault() *SharedVault {
	return &SharedVault{subs: make(map[int]vaultSub)}
}

// Attach returns a new tab over the shared slot.
func (v *SharedVault) Attach() *Tab {
	return &Tab{vault: v}
}

// NewVault returns a standalone single-context vault.
func NewVault() Vault {
	return NewSharedVault().Attach()
}

func (t *Tab) LoadRenewal() (string, bool) {
	v := t.vault
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renewal, v.present
}

func (t *Tab) StoreRenewal(token string) {
	v := t.vault
	v.mu.Lock()
	v.renewal = token
	v.present = true
	v.mu.Unlock()
}

func (t *Tab) ClearRenewal() {
	v := t.vault
	v.mu.Lock()
	if !v.present {
		v.mu.Unlock()
		return
	}
	v.renewal = ""
	v.present = false
	var notify []func()
	for _, sub := range v.subs {
		if sub.tab != t {
			notify = append(notify, sub.fn)
		}
	}
	v.mu.Unlock()

	// Outside the lock: a notified context clears its own state, which may
	// touch the vault again.
	for _, fn := range notify {
		fn()
	}
}

func (t *Tab) SubscribeRemoval(fn func()) (cancel func()) {
	v := t.vault
	v.mu.Lock()
	id := v.nextSub
	v.nextSub++
	v.subs[id] = vaultSub{tab: t, fn: fn}
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}
