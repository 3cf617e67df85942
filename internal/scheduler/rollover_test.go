package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"minaret/internal/kv"
	"minaret/internal/schedule"
	"minaret/internal/state"
	"minaret/internal/types"
)

func TestUntilNextMidnight(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{
			"one second past midnight",
			time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC),
			24*time.Hour - time.Second,
		},
		{
			"noon",
			time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
			12 * time.Hour,
		},
		{
			"one minute to midnight",
			time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC),
			time.Minute,
		},
		{
			"month boundary",
			time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC),
			time.Hour,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UntilNextMidnight(tt.now); got != tt.want {
				t.Errorf("UntilNextMidnight = %v, want %v", got, tt.want)
			}
		})
	}
}

type fakeSource struct {
	calls atomic.Int32
	fail  bool
}

func (f *fakeSource) TodaysSchedule(ctx context.Context, coord types.Coordinate, methodID int) (*types.PrayerSchedule, error) {
	f.calls.Add(1)
	if f.fail {
		return nil, types.NewAppError(types.ErrCodeScheduleFetch, "provider down", nil)
	}
	return &types.PrayerSchedule{Fajr: "05:32", Location: coord, Method: types.MethodRef{ID: methodID}}, nil
}

func (f *fakeSource) GetSchedule(ctx context.Context, coord types.Coordinate, methodID int, date string) (*types.PrayerSchedule, error) {
	return f.TodaysSchedule(ctx, coord, methodID)
}

func TestRefresh_InstallsScheduleForActiveLocation(t *testing.T) {
	source := &fakeSource{}
	stateStore := state.NewStore()
	istanbul := types.Coordinate{Latitude: 41.0082, Longitude: 28.9784}
	stateStore.SetLocation(istanbul)

	j := NewJob(source, schedule.NewSettingsStore(kv.NewMemory(), nil), stateStore, nil, nil)
	if err := j.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	sched := stateStore.Schedule()
	if sched == nil {
		t.Fatal("refresh must install a schedule")
	}
	if sched.Location != istanbul {
		t.Errorf("schedule location = %v, want active location", sched.Location)
	}
	if sched.Method.ID != types.DefaultMethodID {
		t.Errorf("method = %d, want stored default %d", sched.Method.ID, types.DefaultMethodID)
	}
}

func TestRefresh_ActiveFailurePropagates(t *testing.T) {
	source := &fakeSource{fail: true}
	stateStore := state.NewStore()

	j := NewJob(source, schedule.NewSettingsStore(kv.NewMemory(), nil), stateStore, nil, nil)
	err := j.Refresh(context.Background())

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeScheduleFetch {
		t.Fatalf("error = %v, want %s", err, types.ErrCodeScheduleFetch)
	}
	if stateStore.Schedule() != nil {
		t.Error("failed refresh must not install a schedule")
	}
}

func TestRefresh_WarmLocationsFetchedInParallel(t *testing.T) {
	source := &fakeSource{}
	stateStore := state.NewStore()

	warm := []types.Coordinate{
		{Latitude: 41.0082, Longitude: 28.9784},
		{Latitude: 39.9334, Longitude: 32.8597},
	}
	j := NewJob(source, schedule.NewSettingsStore(kv.NewMemory(), nil), stateStore, nil, nil, warm...)
	if err := j.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Active location plus two warm ones.
	if got := source.calls.Load(); got != 3 {
		t.Errorf("source called %d times, want 3", got)
	}
}

func TestJob_StopTerminatesLoop(t *testing.T) {
	source := &fakeSource{}
	j := NewJob(source, schedule.NewSettingsStore(kv.NewMemory(), nil), state.NewStore(), nil, nil)

	j.Start(context.Background())

	done := make(chan struct{})
	go func() {
		j.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not terminate the rollover loop")
	}
}
