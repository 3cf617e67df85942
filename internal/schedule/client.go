// Package schedule is the core orchestration layer for daily prayer
// schedules: cache lookup, timezone resolution, upstream fetch, and
// normalization of raw provider timings into the domain model.
package schedule

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"minaret/internal/cache"
	"minaret/internal/external"
	"minaret/internal/types"
)

// Client implements types.ScheduleSource. Concurrent requests for the
// same day/location/method are coalesced into a single upstream call.
type Client struct {
	provider external.TimingsProvider
	cache    *cache.ScheduleCache
	resolver types.TimezoneResolver
	clock    types.Clock
	logger   *slog.Logger
	group    singleflight.Group
}

// NewClient creates a schedule client. clock and logger may be nil.
func NewClient(
	provider external.TimingsProvider,
	scheduleCache *cache.ScheduleCache,
	resolver types.TimezoneResolver,
	clock types.Clock,
	logger *slog.Logger,
) *Client {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		provider: provider,
		cache:    scheduleCache,
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

// TodaysSchedule returns the schedule for the current local calendar day.
func (c *Client) TodaysSchedule(ctx context.Context, coord types.Coordinate, methodID int) (*types.PrayerSchedule, error) {
	return c.GetSchedule(ctx, coord, methodID, c.clock.Now().Format(types.ScheduleDateLayout))
}

// GetSchedule returns the schedule for the given DD-MM-YYYY date,
// serving from cache when a fresh entry exists. On a miss the upstream
// is consulted exactly once per distinct request, regardless of how many
// callers arrive concurrently. A fetch failure leaves the cache
// untouched.
func (c *Client) GetSchedule(ctx context.Context, coord types.Coordinate, methodID int, date string) (*types.PrayerSchedule, error) {
	if err := validateRequest(coord, methodID, date); err != nil {
		return nil, err
	}

	req := types.ScheduleRequest{Date: date, Coordinate: coord, MethodID: methodID}

	if sched, ok := c.cache.Get(ctx, req); ok {
		return sched, nil
	}

	sched, err, _ := c.group.Do(req.Fingerprint(), func() (any, error) {
		// A coalesced caller may arrive after the winner populated the
		// cache; check again before going upstream.
		if cached, ok := c.cache.Get(ctx, req); ok {
			return cached, nil
		}
		return c.fetch(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return sched.(*types.PrayerSchedule), nil
}

func (c *Client) fetch(ctx context.Context, req types.ScheduleRequest) (*types.PrayerSchedule, error) {
	tz := c.resolver.Resolve(req.Coordinate)

	start := time.Now()
	data, err := c.provider.GetTimings(ctx, req, tz)
	if err != nil {
		c.logger.ErrorContext(ctx, "schedule fetch failed",
			"date", req.Date,
			"location", req.Coordinate.String(),
			"method", req.MethodID,
			"timezone", tz,
			"error", err,
		)
		return nil, err
	}

	sched := buildSchedule(req, data)

	if err := c.cache.Put(ctx, req, sched); err != nil {
		// Cache persistence is best effort; the fetched schedule is
		// still good.
		c.logger.WarnContext(ctx, "failed to cache schedule", "error", err)
	}

	c.logger.InfoContext(ctx, "schedule fetched",
		"date", req.Date,
		"location", req.Coordinate.String(),
		"method", req.MethodID,
		"timezone", tz,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return sched, nil
}

// buildSchedule normalizes raw provider timings into the domain model.
// Provider time strings may carry a timezone suffix ("05:32 (+03)");
// everything after the first space is dropped.
func buildSchedule(req types.ScheduleRequest, data *external.TimingsData) *types.PrayerSchedule {
	return &types.PrayerSchedule{
		Fajr:      cleanTime(data.Timings.Fajr),
		Sunrise:   cleanTime(data.Timings.Sunrise),
		Dhuhr:     cleanTime(data.Timings.Dhuhr),
		Asr:       cleanTime(data.Timings.Asr),
		Maghrib:   cleanTime(data.Timings.Maghrib),
		Isha:      cleanTime(data.Timings.Isha),
		Date:      data.Date.Readable,
		HijriDate: data.Date.Hijri.Date,
		Location:  req.Coordinate,
		Method: types.MethodRef{
			ID:   data.Meta.Method.ID,
			Name: data.Meta.Method.Name,
		},
	}
}

func cleanTime(raw string) string {
	if i := strings.IndexByte(raw, ' '); i >= 0 {
		return raw[:i]
	}
	return raw
}

func validateRequest(coord types.Coordinate, methodID int, date string) error {
	if coord.Latitude < -90 || coord.Latitude > 90 {
		return types.NewAppError(types.ErrCodeValidationInvalidLat, "latitude must be within [-90, 90]", nil)
	}
	if coord.Longitude < -180 || coord.Longitude > 180 {
		return types.NewAppError(types.ErrCodeValidationInvalidLon, "longitude must be within [-180, 180]", nil)
	}
	if _, ok := types.MethodByID(methodID); !ok {
		return types.NewAppError(types.ErrCodeValidationInvalidMethod, "unknown calculation method", nil)
	}
	if _, err := time.Parse(types.ScheduleDateLayout, date); err != nil {
		return types.NewAppError(types.ErrCodeValidationInvalidDate, "date must be DD-MM-YYYY", err)
	}
	return nil
}
