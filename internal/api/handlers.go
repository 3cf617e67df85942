package api

import (
	"net/http"
	"strconv"

	"minaret/internal/schedule"
	"minaret/internal/types"
)

// HandleHealth reports process liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, map[string]string{
		"status":      "ok",
		"service":     s.Config.Service,
		"environment": s.Config.Environment,
	})
}

// coordinateParams is the validated lat/lon pair shared by the read
// endpoints.
type coordinateParams struct {
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`
}

// coordinateFromQuery resolves the request coordinate: explicit
// latitude/longitude query parameters, or the active device location
// when both are absent. A client that cannot display fallback results
// may pass fallback=false; with no resolved device location that fails
// instead of silently serving the default coordinate.
func (s *Server) coordinateFromQuery(r *http.Request) (types.Coordinate, error) {
	latRaw := r.URL.Query().Get("latitude")
	lonRaw := r.URL.Query().Get("longitude")

	if latRaw == "" && lonRaw == "" {
		loc := s.State.Location()
		if loc.UsingFallback && r.URL.Query().Get("fallback") == "false" {
			return types.Coordinate{}, types.NewAppError(
				types.ErrCodeLocationUnavailable,
				"no device location resolved",
				nil,
			)
		}
		return loc.Coordinate, nil
	}
	if latRaw == "" || lonRaw == "" {
		return types.Coordinate{}, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"latitude and longitude must be provided together",
			nil,
		)
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return types.Coordinate{}, types.NewAppError(types.ErrCodeValidationInvalidLat, "latitude must be a number", err)
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return types.Coordinate{}, types.NewAppError(types.ErrCodeValidationInvalidLon, "longitude must be a number", err)
	}

	params := coordinateParams{Latitude: lat, Longitude: lon}
	if err := s.validate.Struct(params); err != nil {
		return types.Coordinate{}, types.NewAppError(
			types.ErrCodeValidationInvalidLat,
			"coordinate out of range",
			err,
		)
	}
	return types.Coordinate{Latitude: lat, Longitude: lon}, nil
}

// methodFromQuery resolves the calculation method: an explicit "method"
// parameter, or the stored preference.
func (s *Server) methodFromQuery(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("method")
	if raw == "" {
		return s.Settings.Get(r.Context()).MethodID, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeValidationInvalidMethod, "method must be an integer", err)
	}
	return id, nil
}

// HandleSchedule serves one day's prayer schedule. Optional "date"
// (DD-MM-YYYY) defaults to today in the service's local calendar.
func (s *Server) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	coord, err := s.coordinateFromQuery(r)
	if err != nil {
		Error(w, r, err)
		return
	}
	methodID, err := s.methodFromQuery(r)
	if err != nil {
		Error(w, r, err)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.Clock.Now().Format(types.ScheduleDateLayout)
	}

	sched, err := s.Schedules.GetSchedule(r.Context(), coord, methodID, date)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, sched)
}

// nextPrayerPayload is the response body of the next-prayer endpoint.
type nextPrayerPayload struct {
	types.NextPrayerInfo
	Countdown string `json:"countdown"`
}

// HandleNextPrayer serves the upcoming prayer and its countdown for
// today's schedule at the resolved location.
func (s *Server) HandleNextPrayer(w http.ResponseWriter, r *http.Request) {
	coord, err := s.coordinateFromQuery(r)
	if err != nil {
		Error(w, r, err)
		return
	}
	methodID, err := s.methodFromQuery(r)
	if err != nil {
		Error(w, r, err)
		return
	}

	sched, err := s.Schedules.TodaysSchedule(r.Context(), coord, methodID)
	if err != nil {
		Error(w, r, err)
		return
	}

	now := s.Clock.Now()
	next := schedule.NextPrayer(sched, now)
	JSON(w, r, http.StatusOK, nextPrayerPayload{
		NextPrayerInfo: next,
		Countdown:      schedule.TimeUntil(next, now),
	})
}

// methodsPayload lists the supported calculation methods and the default.
type methodsPayload struct {
	Methods []types.CalculationMethod `json:"methods"`
	Default int                       `json:"default"`
}

// HandleMethods serves the calculation method catalog.
func (s *Server) HandleMethods(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, methodsPayload{
		Methods: types.CalculationMethods,
		Default: types.DefaultMethodID,
	})
}

// HandleQibla serves the static qibla geometry for the resolved location.
func (s *Server) HandleQibla(w http.ResponseWriter, r *http.Request) {
	coord, err := s.coordinateFromQuery(r)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, s.Compass.Bearing(coord))
}

// HandleGetSettings serves the stored preferences.
func (s *Server) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, s.Settings.Get(r.Context()))
}

// HandlePutSettings validates and stores new preferences.
func (s *Server) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	var prefs schedule.Preferences
	if err := DecodeJSON(w, r, &prefs); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.Settings.Set(r.Context(), prefs); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, prefs)
}

// HandleGetLocation serves the active location and whether it is the
// fallback.
func (s *Server) HandleGetLocation(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, s.State.Location())
}

// HandlePutLocation installs a resolved device location.
func (s *Server) HandlePutLocation(w http.ResponseWriter, r *http.Request) {
	var coord types.Coordinate
	if err := DecodeJSON(w, r, &coord); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.validate.Struct(coord); err != nil {
		Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidLat, "coordinate out of range", err))
		return
	}

	s.State.SetLocation(coord)
	JSON(w, r, http.StatusOK, s.State.Location())
}

// HandleReminders plans reminders for the rest of today at the active
// location, resolving the schedule on demand when the rollover job has
// not installed one yet.
func (s *Server) HandleReminders(w http.ResponseWriter, r *http.Request) {
	sched := s.State.Schedule()
	if sched == nil {
		var err error
		sched, err = s.Schedules.TodaysSchedule(
			r.Context(),
			s.State.Location().Coordinate,
			s.Settings.Get(r.Context()).MethodID,
		)
		if err != nil {
			Error(w, r, err)
			return
		}
		s.State.SetSchedule(sched)
	}

	reminders := s.Planner.Plan(sched, s.Clock.Now())
	JSON(w, r, http.StatusOK, map[string]any{"reminders": reminders})
}

// HandleClearCache drops every cached schedule. Settings survive.
func (s *Server) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.Cache.Clear(r.Context()); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, map[string]bool{"cleared": true})
}
