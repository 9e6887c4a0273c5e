package engine

import (
	"sync"

	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// dateLocks serializes recomputation per date. Recomputation reads the full
// current gap list for a date and replaces it wholesale, so two concurrent
// recomputations for the same date must never interleave; distinct dates run
// independently.
type dateLocks struct {
	mu    sync.Mutex
	locks map[timeutil.Date]*sync.Mutex
}

func newDateLocks() *dateLocks {
	return &dateLocks{locks: make(map[timeutil.Date]*sync.Mutex)}
}

func (l *dateLocks) lock(d timeutil.Date) {
	l.mu.Lock()
	m, ok := l.locks[d]
	if !ok {
		m = &sync.Mutex{}
		l.locks[d] = m
	}
	l.mu.Unlock()
	m.Lock()
}

func (l *dateLocks) unlock(d timeutil.Date) {
	l.mu.Lock()
	m := l.locks[d]
	l.mu.Unlock()
	if m != nil {
		m.Unlock()
	}
}
