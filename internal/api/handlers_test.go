package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"minaret/internal/cache"
	"minaret/internal/compass"
	"minaret/internal/config"
	"minaret/internal/kv"
	"minaret/internal/notify"
	"minaret/internal/schedule"
	"minaret/internal/state"
	"minaret/internal/types"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

// fakeSource serves one fixed schedule for any request.
type fakeSource struct {
	sched *types.PrayerSchedule
	err   error
}

func (f *fakeSource) GetSchedule(ctx context.Context, coord types.Coordinate, methodID int, date string) (*types.PrayerSchedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := *f.sched
	out.Location = coord
	out.Method = types.MethodRef{ID: methodID}
	return &out, nil
}

func (f *fakeSource) TodaysSchedule(ctx context.Context, coord types.Coordinate, methodID int) (*types.PrayerSchedule, error) {
	return f.GetSchedule(ctx, coord, methodID, "")
}

func fixedSchedule() *types.PrayerSchedule {
	return &types.PrayerSchedule{
		Fajr:    "05:32",
		Sunrise: "07:02",
		Dhuhr:   "12:59",
		Asr:     "15:27",
		Maghrib: "17:47",
		Isha:    "19:11",
		Date:    "01 Jan 2025",
	}
}

func testServer(t *testing.T, source types.ScheduleSource) *Server {
	t.Helper()
	if source == nil {
		source = &fakeSource{sched: fixedSchedule()}
	}
	store := kv.NewMemory()
	clock := &fixedClock{now: time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC)}

	s, err := NewServer(
		&config.Config{Environment: "local", Service: "minaret"},
		nil,
		source,
		cache.NewScheduleCache(store, clock, nil),
		schedule.NewSettingsStore(store, nil),
		compass.NewService(),
		state.NewStore(),
		notify.NewPlanner(0),
		clock,
	)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	s.MountRoutes()
	return s
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (body %s)", err, rec.Body.String())
	}
	return envelope.Error.Code
}

func TestHandleHealth(t *testing.T) {
	rec := doRequest(t, testServer(t, nil), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	decodeData(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestHandleSchedule_WithExplicitCoordinate(t *testing.T) {
	rec := doRequest(t, testServer(t, nil), http.MethodGet,
		"/v1/schedule?latitude=41.0082&longitude=28.9784&method=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var sched types.PrayerSchedule
	decodeData(t, rec, &sched)
	if sched.Fajr != "05:32" {
		t.Errorf("fajr = %q", sched.Fajr)
	}
	if sched.Location.Latitude != 41.0082 {
		t.Errorf("latitude = %f, want query value", sched.Location.Latitude)
	}
	if sched.Method.ID != 3 {
		t.Errorf("method = %d, want query value 3", sched.Method.ID)
	}
}

func TestHandleSchedule_DefaultsToActiveLocationAndStoredMethod(t *testing.T) {
	rec := doRequest(t, testServer(t, nil), http.MethodGet, "/v1/schedule", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var sched types.PrayerSchedule
	decodeData(t, rec, &sched)
	if sched.Location != types.MeccaCoordinate {
		t.Errorf("location = %v, want fallback", sched.Location)
	}
	if sched.Method.ID != types.DefaultMethodID {
		t.Errorf("method = %d, want default", sched.Method.ID)
	}
}

func TestHandleSchedule_Validation(t *testing.T) {
	s := testServer(t, nil)
	tests := []struct {
		name     string
		path     string
		wantCode string
	}{
		{"lone latitude", "/v1/schedule?latitude=41", string(types.ErrCodeValidationMissingField)},
		{"non-numeric latitude", "/v1/schedule?latitude=north&longitude=28", string(types.ErrCodeValidationInvalidLat)},
		{"latitude out of range", "/v1/schedule?latitude=95&longitude=28", string(types.ErrCodeValidationInvalidLat)},
		{"non-numeric method", "/v1/schedule?method=diyanet", string(types.ErrCodeValidationInvalidMethod)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodGet, tt.path, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := errorCode(t, rec); got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestHandleSchedule_UpstreamFailureIsBadGateway(t *testing.T) {
	source := &fakeSource{err: types.NewAppError(types.ErrCodeScheduleFetch, "provider down", nil)}
	rec := doRequest(t, testServer(t, source), http.MethodGet, "/v1/schedule", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if got := errorCode(t, rec); got != string(types.ErrCodeScheduleFetch) {
		t.Errorf("code = %s", got)
	}
}

func TestHandleNextPrayer(t *testing.T) {
	// Fixed clock is 13:00; the next entry is asr at 15:27.
	rec := doRequest(t, testServer(t, nil), http.MethodGet, "/v1/schedule/next", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		types.NextPrayerInfo
		Countdown string `json:"countdown"`
	}
	decodeData(t, rec, &payload)
	if payload.Key != types.PrayerAsr {
		t.Errorf("key = %s, want asr", payload.Key)
	}
	if payload.Countdown != "2s 27d" {
		t.Errorf("countdown = %q, want 2s 27d", payload.Countdown)
	}
	if payload.IsNextDay {
		t.Error("asr today must not be flagged next-day")
	}
}

func TestHandleMethods(t *testing.T) {
	rec := doRequest(t, testServer(t, nil), http.MethodGet, "/v1/methods", "")
	var payload struct {
		Methods []types.CalculationMethod `json:"methods"`
		Default int                       `json:"default"`
	}
	decodeData(t, rec, &payload)
	if len(payload.Methods) != len(types.CalculationMethods) {
		t.Errorf("catalog size = %d, want %d", len(payload.Methods), len(types.CalculationMethods))
	}
	if payload.Default != types.DefaultMethodID {
		t.Errorf("default = %d, want %d", payload.Default, types.DefaultMethodID)
	}
}

func TestHandleQibla(t *testing.T) {
	rec := doRequest(t, testServer(t, nil), http.MethodGet,
		"/v1/qibla?latitude=41.0082&longitude=28.9784", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var b compass.Bearing
	decodeData(t, rec, &b)
	if b.QiblaBearing < 145 || b.QiblaBearing > 165 {
		t.Errorf("bearing = %.2f, want within [145, 165]", b.QiblaBearing)
	}
	if b.AtTarget {
		t.Error("Istanbul must not be at-target")
	}
}

func TestSettings_RoundTrip(t *testing.T) {
	s := testServer(t, nil)

	rec := doRequest(t, s, http.MethodPut, "/v1/settings", `{"method_id": 5, "use_24h_format": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/v1/settings", "")
	var prefs schedule.Preferences
	decodeData(t, rec, &prefs)
	if prefs.MethodID != 5 || prefs.Use24Hour {
		t.Errorf("prefs = %+v, want method 5 and 12h clock", prefs)
	}
}

func TestSettings_RejectsUnknownMethod(t *testing.T) {
	rec := doRequest(t, testServer(t, nil), http.MethodPut, "/v1/settings", `{"method_id": 42}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := errorCode(t, rec); got != string(types.ErrCodeValidationInvalidMethod) {
		t.Errorf("code = %s", got)
	}
}

func TestSettings_RejectsUnknownFields(t *testing.T) {
	rec := doRequest(t, testServer(t, nil), http.MethodPut, "/v1/settings", `{"method_id": 13, "theme": "dark"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown field", rec.Code)
	}
}

func TestLocation_RoundTrip(t *testing.T) {
	s := testServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/v1/location", "")
	var loc state.Location
	decodeData(t, rec, &loc)
	if !loc.UsingFallback {
		t.Error("initial location must be the fallback")
	}

	rec = doRequest(t, s, http.MethodPut, "/v1/location", `{"latitude": 41.0082, "longitude": 28.9784}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeData(t, rec, &loc)
	if loc.UsingFallback {
		t.Error("resolved location must clear the fallback flag")
	}
	if loc.Coordinate.Latitude != 41.0082 {
		t.Errorf("latitude = %f", loc.Coordinate.Latitude)
	}
}

func TestSchedule_FallbackOptOut(t *testing.T) {
	s := testServer(t, nil)

	// No device location yet: fallback=false refuses the default coordinate.
	rec := doRequest(t, s, http.MethodGet, "/v1/schedule?fallback=false", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := errorCode(t, rec); got != string(types.ErrCodeLocationUnavailable) {
		t.Errorf("code = %s, want %s", got, types.ErrCodeLocationUnavailable)
	}

	// Once a location is resolved the same request succeeds.
	doRequest(t, s, http.MethodPut, "/v1/location", `{"latitude": 41.0082, "longitude": 28.9784}`)
	rec = doRequest(t, s, http.MethodGet, "/v1/schedule?fallback=false", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status after resolving location = %d, body %s", rec.Code, rec.Body.String())
	}

	// Explicit coordinates bypass the opt-out entirely.
	rec = doRequest(t, testServer(t, nil), http.MethodGet,
		"/v1/schedule?latitude=41&longitude=29&fallback=false", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status with explicit coordinate = %d", rec.Code)
	}
}

func TestLocation_RejectsOutOfRange(t *testing.T) {
	rec := doRequest(t, testServer(t, nil), http.MethodPut, "/v1/location", `{"latitude": 95, "longitude": 0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleReminders(t *testing.T) {
	// Clock at 13:00: asr, maghrib, isha remain.
	rec := doRequest(t, testServer(t, nil), http.MethodGet, "/v1/reminders", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Reminders []notify.Reminder `json:"reminders"`
	}
	decodeData(t, rec, &payload)
	if len(payload.Reminders) != 3 {
		t.Fatalf("planned %d reminders, want 3", len(payload.Reminders))
	}
	if payload.Reminders[0].Prayer != types.PrayerAsr {
		t.Errorf("first reminder = %s, want asr", payload.Reminders[0].Prayer)
	}
}

func TestHandleClearCache(t *testing.T) {
	rec := doRequest(t, testServer(t, nil), http.MethodDelete, "/v1/cache", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload map[string]bool
	decodeData(t, rec, &payload)
	if !payload["cleared"] {
		t.Error("expected cleared=true")
	}
}

func TestRequestIDEchoedOnResponse(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-123" {
		t.Errorf("echoed request id = %q, want req-123", got)
	}

	// Absent on the request, one is generated.
	rec = doRequest(t, s, http.MethodGet, "/health", "")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected a generated request id")
	}
}
