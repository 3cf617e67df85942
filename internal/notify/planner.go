// Package notify plans prayer reminders from a day's schedule. The
// planner only decides what should fire and when; delivery belongs to
// whatever push channel the caller wires up.
package notify

import (
	"time"

	"github.com/google/uuid"

	"minaret/internal/types"
)

// Reminder is one planned notification.
type Reminder struct {
	ID      string          `json:"id"`
	Prayer  types.PrayerKey `json:"prayer"`
	Name    string          `json:"name"`
	Time    string          `json:"time"` // HH:MM
	FiresAt time.Time       `json:"fires_at"`
}

// Planner derives reminders from schedules. Lead is how long before the
// prayer time the reminder fires; zero means at the prayer time itself.
type Planner struct {
	lead time.Duration
}

// NewPlanner creates a planner with the given lead time. Negative leads
// are treated as zero.
func NewPlanner(lead time.Duration) *Planner {
	if lead < 0 {
		lead = 0
	}
	return &Planner{lead: lead}
}

// Plan returns a reminder for every schedule entry still ahead of now,
// in chronological order. Entries whose fire instant has already passed
// and entries with malformed times are skipped. Each reminder gets a
// fresh unique ID so re-planning after a schedule change never collides
// with already-delivered reminders.
func (p *Planner) Plan(sched *types.PrayerSchedule, now time.Time) []Reminder {
	var reminders []Reminder
	for _, key := range types.PrayerOrder {
		raw := sched.TimeFor(key)
		clock, err := time.Parse("15:04", raw)
		if err != nil {
			continue
		}

		firesAt := time.Date(
			now.Year(), now.Month(), now.Day(),
			clock.Hour(), clock.Minute(), 0, 0,
			now.Location(),
		).Add(-p.lead)
		if !firesAt.After(now) {
			continue
		}

		reminders = append(reminders, Reminder{
			ID:      uuid.New().String(),
			Prayer:  key,
			Name:    types.PrayerNames[key],
			Time:    raw,
			FiresAt: firesAt,
		})
	}
	return reminders
}
