package service

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SessionLimits bound the sessions a server keeps open. Zero values disable
// the limit.
type SessionLimits struct {
	// IdleTimeout closes sessions not accessed for this long, unless an
	// event stream is watching them.
	IdleTimeout time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
	// MaxSessions caps open sessions. Creating one more evicts the least
	// recently used session without an event stream.
	MaxSessions int `json:"maxSessions" yaml:"maxSessions"`
}

// SetLimits configures idle expiry and the session cap.
func (s *SessionService) SetLimits(l SessionLimits) {
	s.mu.Lock()
	s.limits = l
	s.mu.Unlock()
}

// Attach marks a session as watched by an event stream, which keeps it from
// expiring. release must be called when the stream ends.
func (s *SessionService) Attach(id string) (release func(), err error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.streams.Add(1)
	return func() {
		sess.lastAccessed.Store(s.now().UnixNano())
		sess.streams.Add(-1)
	}, nil
}

// Sweep closes every unwatched session idle since before now minus the idle
// timeout, and returns their IDs.
func (s *SessionService) Sweep(now time.Time) []string {
	s.mu.RLock()
	idle := s.limits.IdleTimeout
	var expired []string
	if idle > 0 {
		cutoff := now.Add(-idle).UnixNano()
		for id, sess := range s.sessions {
			if sess.streams.Load() == 0 && sess.lastAccessed.Load() < cutoff {
				expired = append(expired, id)
			}
		}
	}
	s.mu.RUnlock()

	for _, id := range expired {
		if err := s.Delete(id); err == nil {
			s.log.Info().Str("session", id).Dur("idle", idle).Msg("session expired")
		}
	}
	return expired
}

// Run sweeps idle sessions every interval until ctx is done.
func (s *SessionService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

// makeRoom evicts the least recently used unwatched session when the cap is
// reached.
func (s *SessionService) makeRoom() error {
	s.mu.RLock()
	limit := s.limits.MaxSessions
	if limit <= 0 || len(s.sessions) < limit {
		s.mu.RUnlock()
		return nil
	}
	var victim *Session
	for _, sess := range s.sessions {
		if sess.streams.Load() > 0 {
			continue
		}
		if victim == nil || sess.lastAccessed.Load() < victim.lastAccessed.Load() {
			victim = sess
		}
	}
	s.mu.RUnlock()

	if victim == nil {
		return fmt.Errorf("%w: limit is %d", ErrSessionLimit, limit)
	}
	if err := s.Delete(victim.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	s.log.Info().Str("session", victim.ID).Int("limit", limit).Msg("session evicted")
	return nil
}
