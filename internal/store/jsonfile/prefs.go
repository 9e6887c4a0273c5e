package jsonfile

import (
	"context"
	"sync"
	"time"

	"github.com/hay-kot/daygap/internal/core/prefs"
)

// prefFile is the root JSON structure stored on disk. A nil Prefs means the
// user has never saved preferences.
type prefFile struct {
	Prefs *prefs.WorkPreferences `json:"prefs,omitempty"`
}

// PrefStore persists the preference snapshot in a JSON file.
type PrefStore struct {
	path string
	mu   sync.RWMutex
}

// NewPrefStore creates a JSON file preference store at the given path.
func NewPrefStore(path string) *PrefStore {
	return &PrefStore{path: path}
}

// Preferences returns the stored snapshot, normalized, or the documented
// defaults when nothing has been saved yet.
func (s *PrefStore) Preferences(ctx context.Context) (prefs.WorkPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var file prefFile
	if err := load(s.path, &file); err != nil {
		return prefs.WorkPreferences{}, err
	}

	if file.Prefs == nil {
		return prefs.Default(), nil
	}
	return file.Prefs.Normalized(), nil
}

// Stored returns the raw stored snapshot and whether one exists.
func (s *PrefStore) Stored(ctx context.Context) (prefs.WorkPreferences, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var file prefFile
	if err := load(s.path, &file); err != nil {
		return prefs.WorkPreferences{}, false, err
	}
	if file.Prefs == nil {
		return prefs.WorkPreferences{}, false, nil
	}
	return *file.Prefs, true, nil
}

// Save validates and persists a preference snapshot, stamping UpdatedAt.
func (s *PrefStore) Save(ctx context.Context, p prefs.WorkPreferences) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	return save(s.path, prefFile{Prefs: &p})
}
