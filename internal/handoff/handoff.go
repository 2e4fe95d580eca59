// Package handoff carries an identification result from the request that
// produced it to the artwork page that shows it, within one browsing session.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/glimpse/internal/domain"
	"github.com/MrSnakeDoc/glimpse/internal/kv"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
)

// KeyPrefix prefixes every handoff entry: "artwork-<id>".
const KeyPrefix = "artwork-"

// ErrMissingHandoff means nothing was published under the requested id.
// Callers redirect to the upload page.
var ErrMissingHandoff = errors.New("no handoff entry for artwork")

// Key returns the logical key of an artwork id.
func Key(id string) string {
	return KeyPrefix + id
}

// Store is the handoff space of one browsing session.
type Store struct {
	kv     kv.Store
	logger logger.Logger
}

// New builds a Store over a backend already scoped to one session.
func New(backend kv.Store, log logger.Logger) *Store {
	return &Store{
		kv:     backend,
		logger: log,
	}
}

// Publish stores the webhook response body under id, replacing any earlier
// one. Results built in code, without a body, are stored in their JSON form.
func (s *Store) Publish(ctx context.Context, id string, result domain.IdentificationResult) error {
	data := []byte(result.Raw)
	if len(data) == 0 {
		var err error
		if data, err = json.Marshal(result); err != nil {
			return fmt.Errorf("failed to marshal handoff: %w", err)
		}
	}
	if err := s.kv.Set(ctx, Key(id), string(data)); err != nil {
		return fmt.Errorf("failed to publish handoff %s: %w", id, err)
	}
	return nil
}

// Consume returns the result published under id without removing it, so going
// back to the same artwork still resolves. ok=false means "no data".
func (s *Store) Consume(ctx context.Context, id string) (*domain.IdentificationResult, bool) {
	raw, ok, err := s.kv.Get(ctx, Key(id))
	if err != nil {
		s.logger.Warn("failed to read handoff",
			logger.String("artwork_id", id),
			logger.Error(err))
		return nil, false
	}
	if !ok {
		s.logger.Debug("handoff miss",
			logger.String("artwork_id", id),
			logger.Error(ErrMissingHandoff))
		return nil, false
	}

	var result domain.IdentificationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		s.logger.Warn("discarding unreadable handoff",
			logger.String("artwork_id", id),
			logger.Error(err))
		return nil, false
	}
	if result.ID == "" {
		result.ID = id
	}
	result.Raw = json.RawMessage(raw)
	return &result, true
}
