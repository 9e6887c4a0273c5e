package eventbus

import (
	"github.com/hay-kot/daygap/internal/cache"
	"github.com/hay-kot/daygap/internal/core/gap"
	"github.com/hay-kot/daygap/internal/core/prefs"
	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// GapsUpdatedPayload is emitted after a date's gaps are recomputed.
type GapsUpdatedPayload struct {
	Date timeutil.Date
	Gaps []gap.Gap
}

// PreferenceChangedPayload carries the classifier's verdict on a preference
// edit.
type PreferenceChangedPayload struct {
	Result prefs.ChangeResult
}

// CachePressurePayload is emitted when the limit guard detects a collection
// over its cleanup threshold.
type CachePressurePayload struct {
	Violations []cache.Violation
}

// SyncCompletedPayload is emitted after a local/remote reconciliation pass.
type SyncCompletedPayload struct {
	RunID        string
	TasksMerged  int
	GapsMerged   int
	PrefsUpdated bool
	RemoteErr    string
}

// PublishGapsUpdated enqueues a gaps.updated event.
func (bus *EventBus) PublishGapsUpdated(p GapsUpdatedPayload) {
	bus.send(EventGapsUpdated, p)
}

// SubscribeGapsUpdated registers a handler for gaps.updated events.
func (bus *EventBus) SubscribeGapsUpdated(fn func(GapsUpdatedPayload)) {
	bus.subscribe(EventGapsUpdated, func(v any) {
		if p, ok := v.(GapsUpdatedPayload); ok {
			fn(p)
		}
	})
}

// PublishPreferenceChanged enqueues a prefs.changed event.
func (bus *EventBus) PublishPreferenceChanged(p PreferenceChangedPayload) {
	bus.send(EventPreferenceChanged, p)
}

// SubscribePreferenceChanged registers a handler for prefs.changed events.
func (bus *EventBus) SubscribePreferenceChanged(fn func(PreferenceChangedPayload)) {
	bus.subscribe(EventPreferenceChanged, func(v any) {
		if p, ok := v.(PreferenceChangedPayload); ok {
			fn(p)
		}
	})
}

// PublishCachePressure enqueues a cache.pressure event.
func (bus *EventBus) PublishCachePressure(p CachePressurePayload) {
	bus.send(EventCachePressure, p)
}

// SubscribeCachePressure registers a handler for cache.pressure events.
func (bus *EventBus) SubscribeCachePressure(fn func(CachePressurePayload)) {
	bus.subscribe(EventCachePressure, func(v any) {
		if p, ok := v.(CachePressurePayload); ok {
			fn(p)
		}
	})
}

// PublishSyncCompleted enqueues a sync.completed event.
func (bus *EventBus) PublishSyncCompleted(p SyncCompletedPayload) {
	bus.send(EventSyncCompleted, p)
}

// SubscribeSyncCompleted registers a handler for sync.completed events.
func (bus *EventBus) SubscribeSyncCompleted(fn func(SyncCompletedPayload)) {
	bus.subscribe(EventSyncCompleted, func(v any) {
		if p, ok := v.(SyncCompletedPayload); ok {
			fn(p)
		}
	})
}
