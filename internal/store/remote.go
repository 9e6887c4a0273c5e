// Package store ties local persistence to the remote backend: JSON-file
// stores for offline use, an async key-value remote keyed by user, and the
// reconciliation merge that resolves the two by timestamp.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hay-kot/daygap/internal/core/gap"
	"github.com/hay-kot/daygap/internal/core/prefs"
	"github.com/hay-kot/daygap/internal/core/task"
	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// Remote is the async key-value persistence service keyed by user. Every call
// may fail with a network or auth error; callers degrade to local data only,
// never crash.
type Remote interface {
	GetTasks(ctx context.Context) ([]task.Task, error)
	SaveTasks(ctx context.Context, tasks []task.Task, replaceAll bool) error

	GetGaps(ctx context.Context, date timeutil.Date) ([]gap.Gap, error)
	GetAllGaps(ctx context.Context) (map[timeutil.Date][]gap.Gap, error)
	SaveGaps(ctx context.Context, date timeutil.Date, gaps []gap.Gap) error

	// GetPreferences returns nil when the remote has no stored preferences.
	GetPreferences(ctx context.Context) (*prefs.WorkPreferences, error)
	SavePreferences(ctx context.Context, p prefs.WorkPreferences) error
}

// HTTPRemote implements Remote against the backend's JSON API.
type HTTPRemote struct {
	baseURL string
	userID  string
	token   string
	client  *http.Client
}

var _ Remote = (*HTTPRemote)(nil)

// NewHTTPRemote creates a remote client for the given user. token may be
// empty for unauthenticated deployments.
func NewHTTPRemote(baseURL, userID, token string) *HTTPRemote {
	return &HTTPRemote{
		baseURL: baseURL,
		userID:  userID,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// GetTasks fetches the remote task set.
func (r *HTTPRemote) GetTasks(ctx context.Context) ([]task.Task, error) {
	var out struct {
		Tasks []task.Task `json:"tasks"`
	}
	if err := r.do(ctx, http.MethodGet, r.path("tasks"), nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// SaveTasks writes tasks to the remote. replaceAll overwrites the remote set;
// otherwise tasks are upserted by id.
func (r *HTTPRemote) SaveTasks(ctx context.Context, tasks []task.Task, replaceAll bool) error {
	body := struct {
		Tasks      []task.Task `json:"tasks"`
		ReplaceAll bool        `json:"replace_all"`
	}{Tasks: tasks, ReplaceAll: replaceAll}
	return r.do(ctx, http.MethodPut, r.path("tasks"), body, nil)
}

// GetGaps fetches the remote gaps for one date.
func (r *HTTPRemote) GetGaps(ctx context.Context, date timeutil.Date) ([]gap.Gap, error) {
	var out struct {
		Gaps []gap.Gap `json:"gaps"`
	}
	if err := r.do(ctx, http.MethodGet, r.path("gaps", date.String()), nil, &out); err != nil {
		return nil, err
	}
	return out.Gaps, nil
}

// GetAllGaps fetches every remote gap grouped by date.
func (r *HTTPRemote) GetAllGaps(ctx context.Context) (map[timeutil.Date][]gap.Gap, error) {
	var out struct {
		Gaps map[timeutil.Date][]gap.Gap `json:"gaps"`
	}
	if err := r.do(ctx, http.MethodGet, r.path("gaps"), nil, &out); err != nil {
		return nil, err
	}
	return out.Gaps, nil
}

// SaveGaps replaces the remote gaps for one date.
func (r *HTTPRemote) SaveGaps(ctx context.Context, date timeutil.Date, gaps []gap.Gap) error {
	body := struct {
		Gaps []gap.Gap `json:"gaps"`
	}{Gaps: gaps}
	return r.do(ctx, http.MethodPut, r.path("gaps", date.String()), body, nil)
}

// GetPreferences fetches the remote preference snapshot, nil when unset.
func (r *HTTPRemote) GetPreferences(ctx context.Context) (*prefs.WorkPreferences, error) {
	var out struct {
		Prefs *prefs.WorkPreferences `json:"prefs"`
	}
	if err := r.do(ctx, http.MethodGet, r.path("preferences"), nil, &out); err != nil {
		return nil, err
	}
	return out.Prefs, nil
}

// SavePreferences writes the preference snapshot to the remote.
func (r *HTTPRemote) SavePreferences(ctx context.Context, p prefs.WorkPreferences) error {
	body := struct {
		Prefs prefs.WorkPreferences `json:"prefs"`
	}{Prefs: p}
	return r.do(ctx, http.MethodPut, r.path("preferences"), body, nil)
}

func (r *HTTPRemote) path(parts ...string) string {
	p := "/v1/users/" + url.PathEscape(r.userID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (r *HTTPRemote) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
