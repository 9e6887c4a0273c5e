package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hay-kot/daygap/internal/core/eventbus"
	"github.com/hay-kot/daygap/internal/core/gap"
	"github.com/hay-kot/daygap/internal/core/logging"
	"github.com/hay-kot/daygap/internal/core/task"
	"github.com/hay-kot/daygap/internal/store/jsonfile"
)

// SyncReport summarizes one reconciliation pass.
type SyncReport struct {
	RunID        string
	TasksMerged  int
	GapDates     int
	PrefsUpdated bool
	RemoteErr    error
	PushErr      error
	FinishedAt   time.Time
}

// LocalOnly reports whether the pass fell back to local data.
func (r SyncReport) LocalOnly() bool {
	return r.RemoteErr != nil
}

// ReconciliationStore merges the local copy of tasks, gaps, and preferences
// with the remote copy when connectivity resumes. Conflicts resolve by
// timestamp comparison, never by consensus: the remote task wins only when
// strictly newer; remote gaps replace a date only when the remote actually
// has gaps for it; remote preferences are authoritative whenever present.
// The merge is idempotent.
type ReconciliationStore struct {
	tasks  *jsonfile.TaskStore
	gaps   *jsonfile.GapStore
	prefs  *jsonfile.PrefStore
	remote Remote
	bus    *eventbus.EventBus
	log    zerolog.Logger
}

// NewReconciliationStore wires the merge layer. bus may be nil.
func NewReconciliationStore(tasks *jsonfile.TaskStore, gaps *jsonfile.GapStore, prefStore *jsonfile.PrefStore, remote Remote, bus *eventbus.EventBus) *ReconciliationStore {
	return &ReconciliationStore{
		tasks:  tasks,
		gaps:   gaps,
		prefs:  prefStore,
		remote: remote,
		bus:    bus,
		log:    logging.Component("reconcile"),
	}
}

// Sync runs one reconciliation pass: pull remote state, merge into local,
// then push the merged state back. A remote read failure degrades to local
// data only and is reported on the SyncReport, never returned as an error;
// only local store failures are errors.
func (s *ReconciliationStore) Sync(ctx context.Context) (SyncReport, error) {
	report := SyncReport{RunID: uuid.NewString()}
	ctx = logging.WithSyncRunID(ctx, report.RunID)

	if err := s.pull(ctx, &report); err != nil {
		return report, err
	}

	if report.RemoteErr == nil {
		s.push(ctx, &report)
	}

	report.FinishedAt = time.Now()

	if s.bus != nil {
		payload := eventbus.SyncCompletedPayload{
			RunID:        report.RunID,
			TasksMerged:  report.TasksMerged,
			GapsMerged:   report.GapDates,
			PrefsUpdated: report.PrefsUpdated,
		}
		if report.RemoteErr != nil {
			payload.RemoteErr = report.RemoteErr.Error()
		}
		s.bus.PublishSyncCompleted(payload)
	}

	return report, nil
}

func (s *ReconciliationStore) pull(ctx context.Context, report *SyncReport) error {
	remoteTasks, err := s.remote.GetTasks(ctx)
	if err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("remote unavailable, using local data only")
		report.RemoteErr = err
		return nil
	}

	localTasks, err := s.tasks.List(ctx)
	if err != nil {
		return fmt.Errorf("load local tasks: %w", err)
	}

	merged, changed := MergeTasks(localTasks, remoteTasks)
	report.TasksMerged = changed
	if err := s.tasks.Replace(ctx, merged); err != nil {
		return fmt.Errorf("save merged tasks: %w", err)
	}

	remoteGaps, err := s.remote.GetAllGaps(ctx)
	if err != nil {
		report.RemoteErr = err
		return nil
	}

	for date, gaps := range remoteGaps {
		// Remote silence for a date never erases local state; only dates the
		// remote actually has gaps for are replaced.
		if len(gaps) == 0 {
			continue
		}
		if err := s.gaps.ReplaceDate(ctx, date, gaps); err != nil {
			return fmt.Errorf("save merged gaps for %s: %w", date, err)
		}
		report.GapDates++
	}

	remotePrefs, err := s.remote.GetPreferences(ctx)
	if err != nil {
		report.RemoteErr = err
		return nil
	}
	if remotePrefs != nil {
		if err := s.prefs.Save(ctx, *remotePrefs); err != nil {
			return fmt.Errorf("save merged preferences: %w", err)
		}
		report.PrefsUpdated = true
	}

	return nil
}

// push writes merged local state back to the remote. Push failures degrade to
// local-only operation; they never fail the sync.
func (s *ReconciliationStore) push(ctx context.Context, report *SyncReport) {
	tasks, err := s.tasks.List(ctx)
	if err == nil {
		err = s.remote.SaveTasks(ctx, tasks, true)
	}
	if err != nil {
		report.PushErr = err
		s.log.Warn().Ctx(ctx).Err(err).Msg("failed to push tasks to remote")
		return
	}

	allGaps, err := s.gaps.ListAll(ctx)
	if err == nil {
		for date, gaps := range allGaps {
			if err = s.remote.SaveGaps(ctx, date, gaps); err != nil {
				break
			}
		}
	}
	if err != nil {
		report.PushErr = err
		s.log.Warn().Ctx(ctx).Err(err).Msg("failed to push gaps to remote")
		return
	}

	if stored, ok, err := s.prefs.Stored(ctx); err == nil && ok {
		if err := s.remote.SavePreferences(ctx, stored); err != nil {
			report.PushErr = err
			s.log.Warn().Ctx(ctx).Err(err).Msg("failed to push preferences to remote")
		}
	}
}

// MergeTasks merges the remote task set into the local one by id. The remote
// copy wins only when its UpdatedAt is strictly newer; remote-only tasks are
// added. Returns the merged set and the number of tasks taken from the
// remote.
func MergeTasks(local, remote []task.Task) ([]task.Task, int) {
	byID := make(map[string]int, len(local))
	merged := append([]task.Task(nil), local...)
	for i, t := range merged {
		byID[t.ID] = i
	}

	changed := 0
	for _, rt := range remote {
		i, ok := byID[rt.ID]
		if !ok {
			byID[rt.ID] = len(merged)
			merged = append(merged, rt)
			changed++
			continue
		}
		if rt.UpdatedAt.After(merged[i].UpdatedAt) {
			merged[i] = rt
			changed++
		}
	}

	return merged, changed
}

// MergeGaps merges remote gaps for one date into local ones: the remote set
// replaces local only when non-empty. Exposed for tests and callers that
// merge a single date.
func MergeGaps(local, remote []gap.Gap) []gap.Gap {
	if len(remote) == 0 {
		return local
	}
	return remote
}
