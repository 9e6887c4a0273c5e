package jsonfile

import (
	"context"
	"sort"
	"sync"

	"github.com/hay-kot/daygap/internal/core/gap"
	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// gapFile is the root JSON structure stored on disk, keyed by date.
type gapFile struct {
	Gaps map[timeutil.Date][]gap.Gap `json:"gaps"`
}

// GapStore implements gap.Store using a JSON file for persistence.
type GapStore struct {
	path string
	mu   sync.RWMutex
}

var _ gap.Store = (*GapStore)(nil)

// NewGapStore creates a JSON file gap store at the given path.
func NewGapStore(path string) *GapStore {
	return &GapStore{path: path}
}

// ListByDate returns the gaps for a date ordered by start time.
func (s *GapStore) ListByDate(ctx context.Context, date timeutil.Date) ([]gap.Gap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}

	gaps := append([]gap.Gap(nil), file.Gaps[date]...)
	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].Start < gaps[j].Start })
	return gaps, nil
}

// ListAll returns every stored gap grouped by date.
func (s *GapStore) ListAll(ctx context.Context) (map[timeutil.Date][]gap.Gap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make(map[timeutil.Date][]gap.Gap, len(file.Gaps))
	for date, gaps := range file.Gaps {
		out[date] = append([]gap.Gap(nil), gaps...)
	}
	return out, nil
}

// ReplaceDate atomically replaces all gaps for a date. An empty slice removes
// the date key entirely.
func (s *GapStore) ReplaceDate(ctx context.Context, date timeutil.Date, gaps []gap.Gap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	if file.Gaps == nil {
		file.Gaps = make(map[timeutil.Date][]gap.Gap)
	}
	if len(gaps) == 0 {
		delete(file.Gaps, date)
	} else {
		file.Gaps[date] = gaps
	}

	return save(s.path, file)
}

// DeleteDate removes all gaps for a date.
func (s *GapStore) DeleteDate(ctx context.Context, date timeutil.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := file.Gaps[date]; !ok {
		return nil
	}
	delete(file.Gaps, date)

	return save(s.path, file)
}

// Dates returns every date that currently has stored gaps, ascending.
func (s *GapStore) Dates(ctx context.Context) ([]timeutil.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}

	dates := make([]timeutil.Date, 0, len(file.Gaps))
	for date := range file.Gaps {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (s *GapStore) load() (gapFile, error) {
	var file gapFile
	if err := load(s.path, &file); err != nil {
		return gapFile{}, err
	}
	return file, nil
}
