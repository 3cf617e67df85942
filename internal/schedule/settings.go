package schedule

import (
	"context"
	"log/slog"
	"strconv"

	"minaret/internal/types"
)

// Settings keys inside the shared key-value store. They live outside the
// cache prefix so a cache clear never wipes user preferences.
const (
	settingsMethodKey = "settings_calculation_method"
	settings24hKey    = "settings_use_24h_format"
)

// Preferences is the user-tunable configuration surfaced by the API.
type Preferences struct {
	MethodID  int  `json:"method_id" validate:"required"`
	Use24Hour bool `json:"use_24h_format"`
}

// DefaultPreferences returns the out-of-the-box configuration: the
// Turkey calculation method and 24-hour clock display.
func DefaultPreferences() Preferences {
	return Preferences{MethodID: types.DefaultMethodID, Use24Hour: true}
}

// SettingsStore persists user preferences in the key-value store.
// Unknown or corrupt stored values fall back to defaults on read.
type SettingsStore struct {
	store  types.KVStore
	logger *slog.Logger
}

// NewSettingsStore creates a settings store. logger may be nil.
func NewSettingsStore(store types.KVStore, logger *slog.Logger) *SettingsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{store: store, logger: logger}
}

// Get reads the stored preferences, substituting defaults for missing or
// invalid values. Read failures degrade to defaults.
func (s *SettingsStore) Get(ctx context.Context) Preferences {
	prefs := DefaultPreferences()

	if raw, ok, err := s.store.Get(ctx, settingsMethodKey); err != nil {
		s.logger.WarnContext(ctx, "failed to read stored method, using default", "error", err)
	} else if ok {
		if id, convErr := strconv.Atoi(raw); convErr == nil {
			if _, known := types.MethodByID(id); known {
				prefs.MethodID = id
			}
		}
	}

	if raw, ok, err := s.store.Get(ctx, settings24hKey); err != nil {
		s.logger.WarnContext(ctx, "failed to read stored clock format, using default", "error", err)
	} else if ok {
		if use24h, convErr := strconv.ParseBool(raw); convErr == nil {
			prefs.Use24Hour = use24h
		}
	}

	return prefs
}

// Set validates and persists the preferences.
func (s *SettingsStore) Set(ctx context.Context, prefs Preferences) error {
	if _, ok := types.MethodByID(prefs.MethodID); !ok {
		return types.NewAppError(
			types.ErrCodeValidationInvalidMethod,
			"unknown calculation method",
			nil,
		)
	}

	if err := s.store.Set(ctx, settingsMethodKey, strconv.Itoa(prefs.MethodID)); err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to persist calculation method", err)
	}
	if err := s.store.Set(ctx, settings24hKey, strconv.FormatBool(prefs.Use24Hour)); err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to persist clock format", err)
	}
	return nil
}
