// Package cache implements the prayer-schedule cache: a namespaced layer
// over a generic key-value store with a 24-hour entry lifetime enforced
// lazily on read.
//
// Store failures and unparsable entries never propagate to callers; both
// degrade to a cache miss so a broken persistence layer can only cost a
// redundant upstream fetch, never a user-visible error.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"minaret/internal/types"
)

// KeyPrefix namespaces schedule entries inside the shared key-value
// store. Clear only touches keys under this prefix.
const KeyPrefix = "prayer_times_"

// TTL is the entry lifetime. Schedules are per-day, so anything older
// than a day is useless regardless of the date embedded in its key.
const TTL = 24 * time.Hour

// Entry is the stored envelope: the schedule plus its write timestamp in
// milliseconds since epoch.
type Entry struct {
	Data      types.PrayerSchedule `json:"data"`
	Timestamp int64                `json:"timestamp"`
}

// ScheduleCache caches prayer schedules keyed by request fingerprint.
type ScheduleCache struct {
	store  types.KVStore
	clock  types.Clock
	logger *slog.Logger
}

// NewScheduleCache creates a cache over the given store. clock and
// logger may be nil.
func NewScheduleCache(store types.KVStore, clock types.Clock, logger *slog.Logger) *ScheduleCache {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleCache{store: store, clock: clock, logger: logger}
}

func cacheKey(req types.ScheduleRequest) string {
	return KeyPrefix + req.Fingerprint()
}

// Get returns the cached schedule for the request, or false on a miss.
// Expired entries are deleted on read and reported as a miss. Store and
// parse failures are logged and reported as a miss.
func (c *ScheduleCache) Get(ctx context.Context, req types.ScheduleRequest) (*types.PrayerSchedule, bool) {
	key := cacheKey(req)

	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache read failed, treating as miss",
			"code", string(types.ErrCodeCacheRead),
			"key", key,
			"error", types.NewAppError(types.ErrCodeCacheRead, "failed to read cache entry", err),
		)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.WarnContext(ctx, "cache entry unparsable, treating as miss",
			"code", string(types.ErrCodeCacheRead),
			"key", key,
			"error", types.NewAppError(types.ErrCodeCacheRead, "failed to decode cache entry", err),
		)
		return nil, false
	}

	age := c.clock.Now().UnixMilli() - entry.Timestamp
	if age > TTL.Milliseconds() {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.WarnContext(ctx, "failed to delete expired cache entry",
				"key", key,
				"error", err,
			)
		}
		return nil, false
	}

	return &entry.Data, true
}

// Put stores the schedule under the request fingerprint with the current
// timestamp, overwriting any previous entry. A write failure is returned
// but callers typically only log it: a failed cache write must not fail
// the fetch that produced the schedule.
func (c *ScheduleCache) Put(ctx context.Context, req types.ScheduleRequest, sched *types.PrayerSchedule) error {
	entry := Entry{
		Data:      *sched,
		Timestamp: c.clock.Now().UnixMilli(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to encode cache entry", err)
	}
	if err := c.store.Set(ctx, cacheKey(req), string(raw)); err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to write cache entry", err)
	}
	return nil
}

// Clear removes every entry under this cache's prefix, leaving other
// tenants of the shared store untouched.
func (c *ScheduleCache) Clear(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to list cache keys", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to delete cache keys", err)
	}
	return nil
}
