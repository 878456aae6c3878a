// Package metrics holds the engine's atomic counters. The exported surface
// lives in the root package and metrics/export.
package metrics

import "sync/atomic"

// ID identifies one counter.
type ID int

const (
	LoginSuccess ID = iota
	LoginFailure
	RegisterSuccess
	RegisterFailure
	RefreshSuccess
	RefreshFailure
	RefreshReuseDetected
	Logout

	idCount
)

// Def describes one counter for exporters.
type Def struct {
	ID   ID
	Name string
	Help string
}

// Defs lists every counter in export order.
var Defs = []Def{
	{LoginSuccess, "authloop_login_success_total", "Successful logins."},
	{LoginFailure, "authloop_login_failure_total", "Failed logins."},
	{RegisterSuccess, "authloop_register_success_total", "Successful registrations."},
	{RegisterFailure, "authloop_register_failure_total", "Failed registrations."},
	{RefreshSuccess, "authloop_refresh_success_total", "Successful renewal rotations."},
	{RefreshFailure, "authloop_refresh_failure_total", "Failed renewal rotations."},
	{RefreshReuseDetected, "authloop_refresh_reuse_detected_total", "Renewal tokens presented after rotation."},
	{Logout, "authloop_logout_total", "Logouts."},
}

// Metrics is a fixed set of counters. When disabled all operations are no-ops.
type Metrics struct {
	enabled  bool
	counters [idCount]atomic.Uint64
}

// Snapshot is a deep copy of all counters.
type Snapshot struct {
	Counters map[ID]uint64
}

// New creates a Metrics instance.
func New(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id < 0 || id >= idCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{Counters: make(map[ID]uint64, idCount)}
	if m == nil || !m.enabled {
		return s
	}
	for i := ID(0); i < idCount; i++ {
		s.Counters[i] = m.counters[i].Load()
	}
	return s
}
