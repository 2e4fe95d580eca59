package kv

import (
	"context"
	"fmt"
	"time"
)

// TouchSession stamps the last activity time of a session.
func TouchSession(ctx context.Context, s Store, sessionID string, now time.Time) error {
	return s.Set(ctx, SessionPrefix(sessionID)+KeySessionSeen, now.UTC().Format(time.RFC3339Nano))
}

// SessionLastSeen reads the activity stamp of a session. ok is false when the
// session has no stamp.
func SessionLastSeen(ctx context.Context, s Store, sessionID string) (time.Time, bool, error) {
	raw, ok, err := s.Get(ctx, SessionPrefix(sessionID)+KeySessionSeen)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	seen, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid session stamp %q: %w", raw, err)
	}
	return seen, true, nil
}
