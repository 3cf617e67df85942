package schedule

import (
	"fmt"
	"time"

	"minaret/internal/types"
)

const clockLayout = "15:04"

// NextPrayer determines the upcoming prayer relative to now, comparing
// wall-clock minutes within the schedule's day. When every entry has
// passed, the answer wraps to the next day's fajr with IsNextDay set.
// Malformed time strings are skipped rather than treated as upcoming.
func NextPrayer(sched *types.PrayerSchedule, now time.Time) types.NextPrayerInfo {
	nowMinutes := now.Hour()*60 + now.Minute()

	for _, key := range types.PrayerOrder {
		minutes, ok := parseClock(sched.TimeFor(key))
		if !ok {
			continue
		}
		if minutes > nowMinutes {
			return types.NextPrayerInfo{
				Key:       key,
				Name:      types.PrayerNames[key],
				Time:      sched.TimeFor(key),
				IsNextDay: false,
			}
		}
	}

	return types.NextPrayerInfo{
		Key:       types.PrayerFajr,
		Name:      types.PrayerNames[types.PrayerFajr],
		Time:      sched.Fajr,
		IsNextDay: true,
	}
}

// TimeUntil renders the countdown to the given prayer as "{H}s {M}d"
// (saat/dakika), dropping the hour part when it is zero. The remaining
// duration is floored to whole minutes, so seconds already elapsed
// within the current minute count against it. An unparsable target
// yields an empty string.
func TimeUntil(info types.NextPrayerInfo, now time.Time) string {
	clock, ok := parseClock(info.Time)
	if !ok {
		return ""
	}

	target := time.Date(now.Year(), now.Month(), now.Day(), clock/60, clock%60, 0, 0, now.Location())
	if info.IsNextDay || !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}

	remaining := int(target.Sub(now).Minutes())
	hours := remaining / 60
	minutes := remaining % 60
	if hours == 0 {
		return fmt.Sprintf("%dd", minutes)
	}
	return fmt.Sprintf("%ds %dd", hours, minutes)
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
