// Package favourites keeps the user's bookmarked artworks for one browser
// profile.
//
// The whole list lives in a single JSON blob under the "favourites" key and is
// rewritten on every mutation. Lists are personal and small, so there is no
// incremental update. The read-modify-write cycle is not guarded: two tabs
// mutating the same profile at the same moment can overwrite each other.
package favourites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/glimpse/internal/domain"
	"github.com/MrSnakeDoc/glimpse/internal/kv"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
)

// Key is the logical key of the favourites blob.
const Key = "favourites"

// ErrEmptyID is returned by Add for a record without an id.
var ErrEmptyID = errors.New("artwork record has no id")

// StorageCorruptionError describes an unparseable favourites blob.
// It is only ever logged: the blob is discarded and the list reads as empty.
type StorageCorruptionError struct {
	Err error
}

func (e *StorageCorruptionError) Error() string {
	return fmt.Sprintf("favourites blob is corrupt: %v", e.Err)
}

func (e *StorageCorruptionError) Unwrap() error { return e.Err }

// Store is the favourites list of one profile.
type Store struct {
	kv     kv.Store
	logger logger.Logger
}

// New builds a Store over a backend already scoped to one profile.
func New(backend kv.Store, log logger.Logger) *Store {
	return &Store{
		kv:     backend,
		logger: log,
	}
}

// LoadAll returns every saved artwork in insertion order. Backend failures
// and corrupt data both read as an empty list.
func (s *Store) LoadAll(ctx context.Context) []domain.ArtworkRecord {
	list, err := s.load(ctx)
	if err != nil {
		return []domain.ArtworkRecord{}
	}
	return list
}

// Add appends rec unless a record with the same id is already saved, in which
// case the existing entry is kept untouched. added reports whether a write
// happened.
func (s *Store) Add(ctx context.Context, rec domain.ArtworkRecord) (added bool, err error) {
	if rec.ID == "" {
		return false, ErrEmptyID
	}

	list, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	if indexOf(list, rec.ID) >= 0 {
		return false, nil
	}

	list = append(list, rec)
	if err := s.persist(ctx, list); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the record with the given id. Removing the last record drops
// the blob entirely instead of persisting an empty list.
func (s *Store) Remove(ctx context.Context, id string) (removed bool, err error) {
	list, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	i := indexOf(list, id)
	if i < 0 {
		return false, nil
	}

	list = append(list[:i], list[i+1:]...)
	if err := s.persist(ctx, list); err != nil {
		return false, err
	}
	return true, nil
}

// Contains reports whether id is saved.
func (s *Store) Contains(ctx context.Context, id string) bool {
	return indexOf(s.LoadAll(ctx), id) >= 0
}

// Get returns the saved record with the given id.
func (s *Store) Get(ctx context.Context, id string) (domain.ArtworkRecord, bool) {
	list := s.LoadAll(ctx)
	if i := indexOf(list, id); i >= 0 {
		return list[i], true
	}
	return domain.ArtworkRecord{}, false
}

// Clear drops the whole list.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, Key); err != nil {
		s.logger.Warn("failed to clear favourites", logger.Error(err))
		return fmt.Errorf("failed to clear favourites: %w", err)
	}
	return nil
}

// load reads and decodes the blob. A corrupt blob is deleted and reported as
// an empty list; only backend read errors are returned.
func (s *Store) load(ctx context.Context) ([]domain.ArtworkRecord, error) {
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		s.logger.Warn("failed to read favourites", logger.Error(err))
		return nil, fmt.Errorf("failed to read favourites: %w", err)
	}
	if !ok {
		return []domain.ArtworkRecord{}, nil
	}

	var list []domain.ArtworkRecord
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.logger.Warn("discarding corrupt favourites",
			logger.Error(&StorageCorruptionError{Err: err}))
		if err := s.kv.Delete(ctx, Key); err != nil {
			s.logger.Warn("failed to delete corrupt favourites", logger.Error(err))
		}
		return []domain.ArtworkRecord{}, nil
	}
	if list == nil {
		list = []domain.ArtworkRecord{}
	}
	return list, nil
}

// persist rewrites the whole blob, or removes it when list is empty.
func (s *Store) persist(ctx context.Context, list []domain.ArtworkRecord) error {
	if len(list) == 0 {
		if err := s.kv.Delete(ctx, Key); err != nil {
			s.logger.Warn("failed to remove favourites", logger.Error(err))
			return fmt.Errorf("failed to remove favourites: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal favourites: %w", err)
	}
	if err := s.kv.Set(ctx, Key, string(data)); err != nil {
		s.logger.Warn("failed to write favourites",
			logger.Int("count", len(list)),
			logger.Error(err))
		return fmt.Errorf("failed to write favourites: %w", err)
	}
	return nil
}

func indexOf(list []domain.ArtworkRecord, id string) int {
	for i, rec := range list {
		if rec.ID == id {
			return i
		}
	}
	return -1
}
