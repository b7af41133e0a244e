package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Forge/internal/domain"
	"github.com/shaiso/Forge/internal/runner"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeRunner считает вызовы Rerun.
type fakeRunner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRunner) Rerun(_ context.Context, targets []runner.Target, trigger domain.Trigger) (*domain.Run, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.String()
	}
	run := domain.NewRun(names, trigger)
	run.MarkRunning()
	if f.err != nil {
		run.MarkFailed(f.err.Error(), 1)
		return run, f.err
	}
	run.MarkSucceeded()
	return run, nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// clock — управляемое время.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCalculateNextDue(t *testing.T) {
	from := time.Date(2024, 3, 1, 10, 7, 30, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"*/5 * * * *", time.Date(2024, 3, 1, 10, 10, 0, 0, time.UTC)},
		{"0 9 * * *", time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)},
		{"@hourly", time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)},
		{"@every 30s", time.Date(2024, 3, 1, 10, 8, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := CalculateNextDue(tt.expr, from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := CalculateNextDue("every day", from)
	assert.Error(t, err)
}

func TestValidateCronExpr(t *testing.T) {
	assert.NoError(t, ValidateCronExpr("*/5 * * * *"))
	assert.NoError(t, ValidateCronExpr("@daily"))
	assert.Error(t, ValidateCronExpr("* * *"))
	assert.Error(t, ValidateCronExpr("61 * * * *"))
}

func TestScheduler_Tick(t *testing.T) {
	clk := &clock{now: time.Date(2024, 3, 1, 10, 7, 30, 0, time.UTC)}
	fr := &fakeRunner{}

	var onRun []*domain.Run
	s, err := New(Config{
		CronExpr: "*/5 * * * *",
		Targets:  []runner.Target{{Name: "test", Args: []string{"fast"}}},
		Runner:   fr,
		Logger:   discard,
		Now:      clk.Now,
		OnRun:    func(r *domain.Run, _ error) { onRun = append(onRun, r) },
	})
	require.NoError(t, err)

	// срок ещё не наступил
	run, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.Equal(t, 0, fr.count())

	clk.Advance(3 * time.Minute)
	run, err = s.Tick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, []string{"test[fast]"}, run.Targets)
	assert.Equal(t, domain.TriggerSchedule, run.Trigger)

	sched := s.Schedule()
	assert.Equal(t, 1, sched.Runs)
	assert.Equal(t, domain.RunStatusSucceeded, sched.LastStatus)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC), *sched.NextDueAt)
	assert.Len(t, onRun, 1)

	// повторный тик в ту же минуту не запускает
	run, err = s.Tick(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.Equal(t, 1, fr.count())
}

func TestScheduler_TickRunFailure(t *testing.T) {
	clk := &clock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	fr := &fakeRunner{err: errors.New("boom")}

	s, err := New(Config{CronExpr: "@every 1m", Runner: fr, Logger: discard, Now: clk.Now})
	require.NoError(t, err)

	clk.Advance(time.Minute)
	run, err := s.Tick(context.Background())
	require.NoError(t, err, "run failures do not stop the schedule")
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusFailed, s.Schedule().LastStatus)
}

func TestScheduler_InvalidExpr(t *testing.T) {
	_, err := New(Config{CronExpr: "nope", Runner: &fakeRunner{}, Logger: discard})
	assert.Error(t, err)
}

func TestScheduler_Start(t *testing.T) {
	clk := &clock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	fr := &fakeRunner{}

	s, err := New(Config{
		CronExpr:     "@every 1m",
		Runner:       fr,
		Logger:       discard,
		Now:          clk.Now,
		TickInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	clk.Advance(time.Minute)
	require.Eventually(t, func() bool { return fr.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
