package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time in the process
// local zone. Schedule arithmetic is wall-clock local by design: prayer
// times are "HH:MM" strings in the location's day.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time { return time.Now() }

// KVStore is the generic durable key-value store consumed by the schedule
// cache and the settings layer. Implementations must be safe for
// concurrent use; writes are last-writer-wins.
type KVStore interface {
	// Get returns the value for key. The boolean is false on a miss.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Keys returns every stored key beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// TimezoneResolver maps a coordinate to an IANA timezone identifier.
// Implementations never fail; the weakest answer is "UTC".
type TimezoneResolver interface {
	Resolve(coord Coordinate) string
}

// ScheduleSource produces a day's prayer schedule for a coordinate and
// calculation method. Implemented by the schedule client; consumed by the
// API layer and the rollover job.
type ScheduleSource interface {
	GetSchedule(ctx context.Context, coord Coordinate, methodID int, date string) (*PrayerSchedule, error)
	TodaysSchedule(ctx context.Context, coord Coordinate, methodID int) (*PrayerSchedule, error)
}
