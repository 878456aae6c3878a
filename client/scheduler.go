package client

import (
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultRenewalLead is how long before access-token expiry the scheduler
// fires.
const DefaultRenewalLead = 2 * time.Minute

// Scheduler proactively renews before the access token expires, so a quiet
// client keeps a valid token without waiting for a 401. At most one timer is
// armed at a time: every Arm cancels the previous timer first.
type Scheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	lead  time.Duration
	fire  func()
	now   func() time.Time
	log   logr.Logger
}

// NewScheduler creates a stopped Scheduler. fire runs in its own goroutine
// when the timer elapses and is expected to funnel into the coordinator's
// single flight.
func NewScheduler(lead time.Duration, fire func(), log logr.Logger) *Scheduler {
	if lead <= 0 {
		lead = DefaultRenewalLead
	}
	return &Scheduler{lead: lead, fire: fire, now: time.Now, log: log}
}

// Arm schedules renewal for the given access token's expiry minus the lead
// time, replacing any previously armed timer. A token already inside the lead
// window triggers renewal immediately.
func (s *Scheduler) Arm(accessToken string) {
	expiry, err := tokenExpiry(accessToken)
	if err != nil {
		s.log.V(1).Info("cannot schedule renewal", "reason", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	delay := expiry.Sub(s.now()) - s.lead
	if delay <= 0 {
		go s.fire()
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		// An elapsed timer no longer counts as armed. Arm may have replaced
		// it already, in which case the newer timer stays.
		s.mu.Lock()
		if s.timer == timer {
			s.timer = nil
		}
		s.mu.Unlock()
		s.fire()
	})
	s.timer = timer
}

// Stop cancels the armed timer, if any.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Armed reports whether a timer is currently pending.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// tokenExpiry reads the exp claim without verifying the signature; the client
// holds no keys and only needs the timestamp it was handed.
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, jwt.ErrTokenRequiredClaimMissing
	}
	return exp.Time, nil
}
