// Package types defines the shared domain model for the Minaret prayer-times
// platform: coordinates, calculation methods, prayer schedules, heading
// samples, and the typed error vocabulary used across all components.
package types

import (
	"fmt"
	"strconv"
	"time"
)

// Coordinate is an immutable WGS84 geographic position.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Valid reports whether the coordinate lies within the WGS84 value ranges.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// String renders the coordinate as "lat,lon" using the shortest exact
// float representation. Used for logging and cache key construction.
func (c Coordinate) String() string {
	return FormatFloat(c.Latitude) + "," + FormatFloat(c.Longitude)
}

// FormatFloat renders a float with the shortest representation that
// round-trips, matching the representation used in upstream query
// parameters and cache keys.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// MeccaCoordinate is the position of the Kaaba, the qibla target and the
// fallback location used when no device location has been resolved.
var MeccaCoordinate = Coordinate{Latitude: 21.422487, Longitude: 39.826206}

// CalculationMethod is one of the published conventions for deriving prayer
// times from solar position. ID is the wire identifier understood by the
// upstream timings provider.
type CalculationMethod struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultMethodID is the calculation method used when no preference has
// been stored (Turkey / Diyanet).
const DefaultMethodID = 13

// CalculationMethods is the fixed catalog of supported calculation methods.
// The set is deliberately small; the upstream provider supports more, but
// these are the ones surfaced to users.
var CalculationMethods = []CalculationMethod{
	{ID: 3, Name: "Muslim World League", Description: "Standard method adopted by the Muslim World League"},
	{ID: 2, Name: "Islamic Society of North America", Description: "Method widely used across North America"},
	{ID: 13, Name: "Turkey", Description: "Official method used in Turkey (Diyanet)"},
	{ID: 5, Name: "Egyptian General Authority", Description: "Method adopted by the Egyptian General Authority of Survey"},
	{ID: 4, Name: "Umm Al-Qura University", Description: "Official method used in Saudi Arabia"},
}

// MethodByID looks up a calculation method in the catalog.
func MethodByID(id int) (CalculationMethod, bool) {
	for _, m := range CalculationMethods {
		if m.ID == id {
			return m, true
		}
	}
	return CalculationMethod{}, false
}

// ScheduleDateLayout is the calendar date format used by the upstream
// timings endpoint and by cache keys (DD-MM-YYYY).
const ScheduleDateLayout = "02-01-2006"

// ScheduleRequest identifies one day's schedule for one location and
// method. It doubles as the upstream query and the cache fingerprint.
type ScheduleRequest struct {
	Date       string     `json:"date"` // DD-MM-YYYY
	Coordinate Coordinate `json:"coordinate"`
	MethodID   int        `json:"method_id"`
}

// Fingerprint serializes the request as date_lat_lon_method. The cache
// layer prepends its own namespace prefix.
func (r ScheduleRequest) Fingerprint() string {
	return fmt.Sprintf("%s_%s_%s_%d",
		r.Date,
		FormatFloat(r.Coordinate.Latitude),
		FormatFloat(r.Coordinate.Longitude),
		r.MethodID,
	)
}

// NewScheduleRequest builds a request for the given day. The date is
// formatted in the caller's local calendar.
func NewScheduleRequest(day time.Time, coord Coordinate, methodID int) ScheduleRequest {
	return ScheduleRequest{
		Date:       day.Format(ScheduleDateLayout),
		Coordinate: coord,
		MethodID:   methodID,
	}
}

// MethodRef is the subset of method metadata carried on a schedule.
type MethodRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// PrayerSchedule is one day's prayer times for one location, with every
// time rendered as a local "HH:MM" string (any upstream timezone suffix
// already stripped). Immutable once constructed.
//
// The six prayer fields are chronologically ordered (fajr through isha)
// as guaranteed by the upstream source. Consumers must not assume the
// ordering holds for hand-built values, and must not crash if it does not.
type PrayerSchedule struct {
	Fajr      string     `json:"fajr"`
	Sunrise   string     `json:"sunrise"`
	Dhuhr     string     `json:"dhuhr"`
	Asr       string     `json:"asr"`
	Maghrib   string     `json:"maghrib"`
	Isha      string     `json:"isha"`
	Date      string     `json:"date"`
	HijriDate string     `json:"hijri_date"`
	Location  Coordinate `json:"location"`
	Method    MethodRef  `json:"method"`
}

// PrayerKey identifies one of the six daily schedule entries.
type PrayerKey string

const (
	PrayerFajr    PrayerKey = "fajr"
	PrayerSunrise PrayerKey = "sunrise"
	PrayerDhuhr   PrayerKey = "dhuhr"
	PrayerAsr     PrayerKey = "asr"
	PrayerMaghrib PrayerKey = "maghrib"
	PrayerIsha    PrayerKey = "isha"
)

// PrayerOrder is the canonical chronological ordering of schedule entries.
var PrayerOrder = []PrayerKey{
	PrayerFajr, PrayerSunrise, PrayerDhuhr, PrayerAsr, PrayerMaghrib, PrayerIsha,
}

// PrayerNames maps keys to their display names. Localized string tables
// live outside the core; these are the canonical English names.
var PrayerNames = map[PrayerKey]string{
	PrayerFajr:    "Fajr",
	PrayerSunrise: "Sunrise",
	PrayerDhuhr:   "Dhuhr",
	PrayerAsr:     "Asr",
	PrayerMaghrib: "Maghrib",
	PrayerIsha:    "Isha",
}

// TimeFor returns the "HH:MM" string for the given prayer key.
func (s *PrayerSchedule) TimeFor(key PrayerKey) string {
	switch key {
	case PrayerFajr:
		return s.Fajr
	case PrayerSunrise:
		return s.Sunrise
	case PrayerDhuhr:
		return s.Dhuhr
	case PrayerAsr:
		return s.Asr
	case PrayerMaghrib:
		return s.Maghrib
	case PrayerIsha:
		return s.Isha
	}
	return ""
}

// NextPrayerInfo describes the upcoming prayer relative to some instant.
// Derived on demand from a PrayerSchedule; never persisted.
type NextPrayerInfo struct {
	Key       PrayerKey `json:"key"`
	Name      string    `json:"name"`
	Time      string    `json:"time"` // HH:MM
	IsNextDay bool      `json:"is_next_day"`
}

// AccuracyClass is the four-level sensor confidence classification for
// compass headings.
type AccuracyClass string

const (
	AccuracyHigh       AccuracyClass = "high"
	AccuracyMedium     AccuracyClass = "medium"
	AccuracyLow        AccuracyClass = "low"
	AccuracyUnreliable AccuracyClass = "unreliable"
)

// HeadingSample is one raw compass reading pushed from a device sensor.
// Heading is degrees clockwise from north in [0, 360).
type HeadingSample struct {
	Heading  float64       `json:"heading"`
	Accuracy AccuracyClass `json:"accuracy"`
}
