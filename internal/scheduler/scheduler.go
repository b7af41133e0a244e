package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Forge/internal/domain"
	"github.com/shaiso/Forge/internal/runner"
)

// Rerunner выполняет цели заново со сброшенным состоянием задач.
type Rerunner interface {
	Rerun(ctx context.Context, targets []runner.Target, trigger domain.Trigger) (*domain.Run, error)
}

// Scheduler повторяет запуск целей по cron-расписанию.
type Scheduler struct {
	runner   Rerunner
	targets  []runner.Target
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	onRun    func(*domain.Run, error)
	cron     cron.Schedule

	mu    sync.Mutex
	sched domain.Schedule
}

// Config — конфигурация Scheduler.
type Config struct {
	CronExpr string
	Targets  []runner.Target
	Runner   Rerunner
	Logger   *slog.Logger

	// TickInterval — период проверки расписания (default: 1s).
	TickInterval time.Duration

	// Now — источник времени (default: time.Now).
	Now func() time.Time

	// OnRun вызывается после каждого запуска.
	OnRun func(*domain.Run, error)
}

// New создаёт Scheduler и вычисляет первое время запуска.
func New(cfg Config) (*Scheduler, error) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	names := make([]string, len(cfg.Targets))
	for i, t := range cfg.Targets {
		names[i] = t.String()
	}

	s := &Scheduler{
		runner:   cfg.Runner,
		targets:  cfg.Targets,
		logger:   cfg.Logger.With("component", "scheduler"),
		interval: cfg.TickInterval,
		now:      cfg.Now,
		onRun:    cfg.OnRun,
		sched: domain.Schedule{
			CronExpr: cfg.CronExpr,
			Targets:  names,
		},
	}

	cronSched, err := ParseCron(cfg.CronExpr)
	if err != nil {
		return nil, err
	}
	s.cron = cronSched

	next := cronSched.Next(s.now())
	s.sched.NextDueAt = &next
	return s, nil
}

// Schedule возвращает копию состояния расписания.
func (s *Scheduler) Schedule() domain.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched
}

// Start проверяет расписание каждые TickInterval до отмены ctx.
// Запуск, не успевший к следующему сроку, не накапливается: срок
// пересчитывается от момента завершения.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"cron", s.sched.CronExpr,
		"next_due_at", s.Schedule().NextDueAt,
	)

	tk := time.NewTicker(s.interval)
	defer tk.Stop()

	for {
		select {
		case <-tk.C:
			if _, err := s.Tick(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", "runs", s.Schedule().Runs)
			return nil
		}
	}
}

// Tick выполняет цели, если срок наступил. Возвращает run или nil.
//
// Ошибка run не прерывает расписание: она логируется и передаётся в OnRun.
// Tick возвращает ошибку, только если runner не создал run.
func (s *Scheduler) Tick(ctx context.Context) (*domain.Run, error) {
	if !s.isDue(s.now()) {
		return nil, nil
	}

	run, err := s.runner.Rerun(ctx, s.targets, domain.TriggerSchedule)
	if run == nil {
		return nil, err
	}

	next := s.cron.Next(s.now())

	s.mu.Lock()
	s.sched.RecordRun(run, next)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("scheduled run failed", "run_id", run.ID, "error", err, "next_due_at", next)
	} else {
		s.logger.Info("scheduled run completed", "run_id", run.ID, "duration", run.Duration(), "next_due_at", next)
	}

	if s.onRun != nil {
		s.onRun(run, err)
	}
	return run, nil
}

func (s *Scheduler) isDue(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.IsDue(now)
}
