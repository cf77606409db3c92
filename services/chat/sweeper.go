package chat

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically deletes sessions that have been idle longer than the
// TTL, cascading through the manager so the chain cache and vector namespace
// go with them.
type Sweeper struct {
	manager  *Manager
	ttl      time.Duration
	interval time.Duration
}

// NewSweeper creates a sweeper. A zero ttl disables expiry; the sweeper
// then never deletes anything.
func NewSweeper(manager *Manager, ttl, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{manager: manager, ttl: ttl, interval: interval}
}

// Run sweeps on the configured interval until the context is cancelled.
// Intended to run in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	if s.ttl <= 0 {
		slog.Info("Session sweeper disabled, no TTL configured")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Session sweeper started", "ttl", s.ttl, "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Session sweeper stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce deletes every session idle past the TTL and reports how many
// were removed. Failures on individual sessions are logged and skipped so
// one bad namespace delete cannot wedge the sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := time.Now().UTC().Add(-s.ttl)
	removed := 0

	for _, session := range s.manager.ListSessions() {
		if session.LastActive.After(cutoff) {
			continue
		}
		if err := s.manager.DeleteSession(ctx, session.ID); err != nil {
			slog.Warn("Failed to sweep expired session", "session_id", session.ID, "error", err)
			continue
		}
		removed++
		slog.Info("Swept expired session", "session_id", session.ID, "last_active", session.LastActive)
	}
	return removed
}
