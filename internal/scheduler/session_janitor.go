package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/glimpse/internal/kv"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
)

const (
	// DefaultSessionIdle is how long a session may stay untouched before its keys are removed
	DefaultSessionIdle = 24 * time.Hour

	// DefaultSweepInterval is used when the configured interval is not positive
	DefaultSweepInterval = time.Hour
)

// SessionJanitor removes the handoff space of sessions that have ended.
// A session with no activity stamp is treated as ended.
type SessionJanitor struct {
	store    kv.Store
	logger   logger.Logger
	interval time.Duration
	idle     time.Duration
	now      func() time.Time
	stopCh   chan struct{}
}

// NewSessionJanitor creates a new session janitor
func NewSessionJanitor(
	store kv.Store,
	log logger.Logger,
	interval time.Duration,
	idle time.Duration,
) *SessionJanitor {
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &SessionJanitor{
		store:    store,
		logger:   log,
		interval: interval,
		idle:     idle,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a sweep right away, then one every interval
func (j *SessionJanitor) Start(ctx context.Context) error {
	if _, err := j.Sweep(ctx); err != nil {
		j.logger.Warn("initial session sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := j.Sweep(ctx); err != nil {
					j.logger.Error("session sweep failed",
						logger.Error(err))
				}
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the janitor
func (j *SessionJanitor) Stop() {
	close(j.stopCh)
}

// Sweep deletes every key of the sessions idle for longer than the threshold
// and returns how many sessions were removed.
func (j *SessionJanitor) Sweep(ctx context.Context) (int, error) {
	keys, err := j.store.Keys(ctx, kv.KeyPrefixSession)
	if err != nil {
		return 0, fmt.Errorf("failed to list session keys: %w", err)
	}

	sessions := make(map[string][]string)
	for _, key := range keys {
		if id, ok := kv.ExtractSessionID(key); ok {
			sessions[id] = append(sessions[id], key)
		}
	}

	now := j.now()
	removed := 0

	for id, sessionKeys := range sessions {
		seen, ok, err := kv.SessionLastSeen(ctx, j.store, id)
		if err != nil {
			j.logger.Warn("unreadable session stamp, treating session as ended",
				logger.String("session_id", id),
				logger.Error(err))
		}

		if ok && now.Sub(seen) < j.idle {
			continue
		}

		// Best effort: a failed delete is retried on the next sweep.
		if err := j.store.Delete(ctx, sessionKeys...); err != nil {
			j.logger.Warn("failed to delete session keys",
				logger.String("session_id", id),
				logger.Error(err))
			continue
		}

		j.logger.Debug("removed ended session",
			logger.String("session_id", id),
			logger.Int("keys", len(sessionKeys)))
		removed++
	}

	if removed > 0 {
		j.logger.Info("session sweep completed",
			logger.Int("sessions_removed", removed),
			logger.Int("sessions_kept", len(sessions)-removed))
	} else {
		j.logger.Debug("no ended sessions to remove")
	}

	return removed, nil
}
