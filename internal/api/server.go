// Package api is the HTTP chassis for the Minaret service. It wires a
// chi router with the cross-cutting middleware chain and exposes the
// schedule, qibla, settings, and maintenance endpoints.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"minaret/internal/cache"
	"minaret/internal/compass"
	"minaret/internal/config"
	"minaret/internal/notify"
	"minaret/internal/schedule"
	"minaret/internal/state"
	"minaret/internal/types"
)

// Server encapsulates all dependencies of the API, allowing injection
// during testing and distinct wiring per environment.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Schedules types.ScheduleSource
	Cache     *cache.ScheduleCache
	Settings  *schedule.SettingsStore
	Compass   *compass.Service
	State     *state.Store
	Planner   *notify.Planner
	Clock     types.Clock

	validate *validator.Validate
	router   *chi.Mux
}

// NewServer builds a server and fails fast on missing dependencies.
// Clock and Logger may be nil; routes are mounted by the caller.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	schedules types.ScheduleSource,
	scheduleCache *cache.ScheduleCache,
	settings *schedule.SettingsStore,
	compassSvc *compass.Service,
	stateStore *state.Store,
	planner *notify.Planner,
	clock types.Clock,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if schedules == nil {
		return nil, fmt.Errorf("schedule source must not be nil")
	}
	if scheduleCache == nil || settings == nil || compassSvc == nil || stateStore == nil || planner == nil {
		return nil, fmt.Errorf("all domain dependencies must be provided")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Schedules: schedules,
		Cache:     scheduleCache,
		Settings:  settings,
		Compass:   compassSvc,
		State:     stateStore,
		Planner:   planner,
		Clock:     clock,
		validate:  validator.New(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler for ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
