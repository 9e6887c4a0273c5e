package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/daygap/internal/core/gap"
	"github.com/hay-kot/daygap/internal/core/prefs"
	"github.com/hay-kot/daygap/internal/core/task"
	"github.com/hay-kot/daygap/internal/core/timeutil"
	"github.com/hay-kot/daygap/internal/store/jsonfile"
)

var (
	testDate = timeutil.Date{Year: 2026, Month: time.March, Day: 9}
	testNow  = time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)
)

type fakeRemote struct {
	mu    sync.Mutex
	tasks []task.Task
	gaps  map[timeutil.Date][]gap.Gap
	prefs *prefs.WorkPreferences

	getErr  error
	saveErr error

	savedTasks []task.Task
	savedGaps  map[timeutil.Date][]gap.Gap
}

var _ Remote = (*fakeRemote)(nil)

func (f *fakeRemote) GetTasks(context.Context) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.tasks, nil
}

func (f *fakeRemote) SaveTasks(_ context.Context, tasks []task.Task, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedTasks = tasks
	return nil
}

func (f *fakeRemote) GetGaps(_ context.Context, date timeutil.Date) ([]gap.Gap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.gaps[date], nil
}

func (f *fakeRemote) GetAllGaps(context.Context) (map[timeutil.Date][]gap.Gap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.gaps, nil
}

func (f *fakeRemote) SaveGaps(_ context.Context, date timeutil.Date, gaps []gap.Gap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.savedGaps == nil {
		f.savedGaps = make(map[timeutil.Date][]gap.Gap)
	}
	f.savedGaps[date] = gaps
	return nil
}

func (f *fakeRemote) GetPreferences(context.Context) (*prefs.WorkPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.prefs, nil
}

func (f *fakeRemote) SavePreferences(context.Context, prefs.WorkPreferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveErr
}

type reconFixture struct {
	recon  *ReconciliationStore
	tasks  *jsonfile.TaskStore
	gaps   *jsonfile.GapStore
	prefs  *jsonfile.PrefStore
	remote *fakeRemote
}

func newReconFixture(t *testing.T) *reconFixture {
	t.Helper()
	dir := t.TempDir()
	tasks := jsonfile.NewTaskStore(filepath.Join(dir, "tasks.json"))
	gaps := jsonfile.NewGapStore(filepath.Join(dir, "gaps.json"))
	prefStore := jsonfile.NewPrefStore(filepath.Join(dir, "prefs.json"))
	remote := &fakeRemote{}

	return &reconFixture{
		recon:  NewReconciliationStore(tasks, gaps, prefStore, remote, nil),
		tasks:  tasks,
		gaps:   gaps,
		prefs:  prefStore,
		remote: remote,
	}
}

func TestMergeTasks(t *testing.T) {
	local := []task.Task{
		{ID: "t-1", Title: "local", UpdatedAt: testNow},
		{ID: "t-2", Title: "local", UpdatedAt: testNow},
	}
	remote := []task.Task{
		{ID: "t-1", Title: "remote newer", UpdatedAt: testNow.Add(time.Minute)},
		{ID: "t-2", Title: "remote same", UpdatedAt: testNow},
		{ID: "t-3", Title: "remote only", UpdatedAt: testNow},
	}

	merged, changed := MergeTasks(local, remote)

	require.Len(t, merged, 3)
	assert.Equal(t, 2, changed)
	assert.Equal(t, "remote newer", merged[0].Title)
	assert.Equal(t, "local", merged[1].Title, "ties keep the local copy")
	assert.Equal(t, "remote only", merged[2].Title)
}

func TestMergeGaps(t *testing.T) {
	local := []gap.Gap{gap.New(testDate, 540, 600, gap.BySystem, testNow)}
	remote := []gap.Gap{gap.New(testDate, 600, 660, gap.BySystem, testNow)}

	assert.Equal(t, local, MergeGaps(local, nil), "empty remote keeps local")
	assert.Equal(t, remote, MergeGaps(local, remote))
}

func TestSync_RemoteFailureDegradesToLocal(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tasks.Replace(ctx, []task.Task{{ID: "t-1", DueDate: testDate}}))
	f.remote.getErr = errors.New("connection refused")

	report, err := f.recon.Sync(ctx)
	require.NoError(t, err, "remote failure is not a sync error")
	assert.True(t, report.LocalOnly())

	local, err := f.tasks.List(ctx)
	require.NoError(t, err)
	assert.Len(t, local, 1, "local data untouched")
	assert.Nil(t, f.remote.savedTasks, "no push after a failed pull")
}

func TestSync_MergesRemoteState(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tasks.Replace(ctx, []task.Task{
		{ID: "t-1", Title: "stale", DueDate: testDate, UpdatedAt: testNow},
	}))

	f.remote.tasks = []task.Task{
		{ID: "t-1", Title: "fresh", DueDate: testDate, UpdatedAt: testNow.Add(time.Hour)},
	}

	report, err := f.recon.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksMerged)
	assert.False(t, report.LocalOnly())

	local, err := f.tasks.List(ctx)
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, "fresh", local[0].Title)

	assert.Len(t, f.remote.savedTasks, 1, "merged set pushed back")
}

func TestSync_RemoteSilenceKeepsLocalGaps(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	localDates := []timeutil.Date{
		testDate,
		{Year: 2026, Month: time.March, Day: 10},
		{Year: 2026, Month: time.March, Day: 11},
	}
	for _, d := range localDates {
		require.NoError(t, f.gaps.ReplaceDate(ctx, d, []gap.Gap{gap.New(d, 540, 600, gap.BySystem, testNow)}))
	}

	// Remote only knows about one date; the other two must survive.
	remoteDate := localDates[0]
	f.remote.gaps = map[timeutil.Date][]gap.Gap{
		remoteDate: {gap.New(remoteDate, 600, 660, gap.BySystem, testNow)},
	}

	report, err := f.recon.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.GapDates)

	dates, err := f.gaps.Dates(ctx)
	require.NoError(t, err)
	assert.Len(t, dates, 3)

	replaced, err := f.gaps.ListByDate(ctx, remoteDate)
	require.NoError(t, err)
	require.Len(t, replaced, 1)
	assert.Equal(t, timeutil.Minutes(600), replaced[0].Start)
}

func TestSync_RemotePreferencesAuthoritative(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	local := prefs.Default()
	local.WorkStart = 9 * 60
	require.NoError(t, f.prefs.Save(ctx, local))

	remote := prefs.Default()
	remote.WorkStart = 7 * 60
	f.remote.prefs = &remote

	report, err := f.recon.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, report.PrefsUpdated)

	got, err := f.prefs.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, timeutil.Minutes(420), got.WorkStart)
}

func TestSync_PushFailureIsReportedNotFatal(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tasks.Replace(ctx, []task.Task{{ID: "t-1", DueDate: testDate}}))
	f.remote.saveErr = errors.New("write quota exceeded")

	report, err := f.recon.Sync(ctx)
	require.NoError(t, err)
	assert.Error(t, report.PushErr)
	assert.False(t, report.LocalOnly())
}

func TestSync_Idempotent(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	f.remote.tasks = []task.Task{{ID: "t-1", DueDate: testDate, UpdatedAt: testNow}}

	first, err := f.recon.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TasksMerged)

	second, err := f.recon.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.TasksMerged, "re-running the same merge changes nothing")
}
