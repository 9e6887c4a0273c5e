package jsonfile

import (
	"context"
	"sync"

	"github.com/hay-kot/daygap/internal/core/task"
	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// taskFile is the root JSON structure stored on disk.
type taskFile struct {
	Tasks []task.Task `json:"tasks"`
}

// TaskStore persists tasks in a JSON file. The gap engine reads tasks through
// TasksForDate; reconciliation replaces the whole set.
type TaskStore struct {
	path string
	mu   sync.RWMutex
}

// NewTaskStore creates a JSON file task store at the given path.
func NewTaskStore(path string) *TaskStore {
	return &TaskStore{path: path}
}

// List returns all stored tasks.
func (s *TaskStore) List(ctx context.Context) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	return append([]task.Task(nil), file.Tasks...), nil
}

// TasksForDate returns the tasks due on the given date.
func (s *TaskStore) TasksForDate(ctx context.Context, date timeutil.Date) ([]task.Task, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]task.Task, 0, len(all))
	for _, t := range all {
		if t.DueDate == date {
			out = append(out, t)
		}
	}
	return out, nil
}

// Replace overwrites the full task set.
func (s *TaskStore) Replace(ctx context.Context, tasks []task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(s.path, taskFile{Tasks: tasks})
}

// Upsert inserts or updates tasks by ID, leaving unmentioned tasks in place.
func (s *TaskStore) Upsert(ctx context.Context, tasks []task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	byID := make(map[string]int, len(file.Tasks))
	for i, t := range file.Tasks {
		byID[t.ID] = i
	}

	for _, t := range tasks {
		if i, ok := byID[t.ID]; ok {
			file.Tasks[i] = t
		} else {
			byID[t.ID] = len(file.Tasks)
			file.Tasks = append(file.Tasks, t)
		}
	}

	return save(s.path, file)
}

// Count returns the number of stored tasks.
func (s *TaskStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(file.Tasks), nil
}

func (s *TaskStore) load() (taskFile, error) {
	var file taskFile
	if err := load(s.path, &file); err != nil {
		return taskFile{}, err
	}
	return file, nil
}
