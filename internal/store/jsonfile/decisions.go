package jsonfile

import (
	"context"
	"sync"

	"github.com/hay-kot/daygap/internal/core/calendar"
)

// decisionFile is the root JSON structure stored on disk, newest first.
type decisionFile struct {
	Decisions []calendar.DedupeDecision `json:"decisions"`
}

// DecisionStore persists dedupe decision records for auditability, capped at
// maxEntries (0 = unlimited).
type DecisionStore struct {
	path       string
	maxEntries int
	mu         sync.RWMutex
}

// NewDecisionStore creates a JSON file decision log at the given path.
func NewDecisionStore(path string, maxEntries int) *DecisionStore {
	return &DecisionStore{path: path, maxEntries: maxEntries}
}

// RecordDecisions prepends decision records, pruning to maxEntries. The
// audit log must never fail a gap computation, so writes are best-effort and
// errors are dropped.
func (s *DecisionStore) RecordDecisions(ctx context.Context, decisions []calendar.DedupeDecision) {
	if len(decisions) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var file decisionFile
	if err := load(s.path, &file); err != nil {
		return
	}

	file.Decisions = append(append([]calendar.DedupeDecision(nil), decisions...), file.Decisions...)
	if s.maxEntries > 0 && len(file.Decisions) > s.maxEntries {
		file.Decisions = file.Decisions[:s.maxEntries]
	}

	_ = save(s.path, file)
}

// List returns all recorded decisions, newest first.
func (s *DecisionStore) List(ctx context.Context) ([]calendar.DedupeDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var file decisionFile
	if err := load(s.path, &file); err != nil {
		return nil, err
	}
	return file.Decisions, nil
}

// Count returns the number of recorded decisions.
func (s *DecisionStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var file decisionFile
	if err := load(s.path, &file); err != nil {
		return 0, err
	}
	return len(file.Decisions), nil
}

// Clear removes all recorded decisions.
func (s *DecisionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(s.path, decisionFile{Decisions: []calendar.DedupeDecision{}})
}
