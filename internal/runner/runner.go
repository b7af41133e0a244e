package runner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/shaiso/Forge/internal/domain"
	"github.com/shaiso/Forge/internal/engine"
	"github.com/shaiso/Forge/internal/telemetry"
)

// Runner выполняет цели на Engine и ведёт запись run.
type Runner struct {
	engine   *engine.Engine
	fallback string
	setenv   func(key, value string) error
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	rec      *recorder

	// mu сериализует запуски: Engine хранит состояние одного run.
	mu sync.Mutex
}

// Config — конфигурация Runner.
type Config struct {
	Engine *engine.Engine

	// Default — задача без явных целей (default: "default").
	Default string

	// Setenv применяет пары KEY=value (default: os.Setenv).
	Setenv func(key, value string) error

	// Metrics — если задан, получает итоги run.
	Metrics *telemetry.Metrics

	Logger *slog.Logger
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	if cfg.Default == "" {
		cfg.Default = "default"
	}
	if cfg.Setenv == nil {
		cfg.Setenv = os.Setenv
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Runner{
		engine:   cfg.Engine,
		fallback: cfg.Default,
		setenv:   cfg.Setenv,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With("component", "runner"),
		rec:      &recorder{},
	}
	cfg.Engine.AddListener(r.rec)
	return r
}

// Run разбирает аргументы командной строки и выполняет цели.
func (r *Runner) Run(ctx context.Context, args []string) (*domain.Run, error) {
	targets, env := ParseArgs(args)
	for k, v := range env {
		if err := r.setenv(k, v); err != nil {
			return nil, err
		}
	}
	return r.RunTargets(ctx, targets, domain.TriggerManual)
}

// Targets возвращает цели запуска: явные или задачу по умолчанию.
func (r *Runner) Targets(targets []Target) []Target {
	if len(targets) > 0 {
		return targets
	}
	return []Target{ParseTarget(r.fallback)}
}

// RunTargets выполняет цели по порядку; первая ошибка прерывает run.
//
// Состояние задач не сбрасывается: повторные запуски (watch, scheduler)
// вызывают Rerun.
func (r *Runner) RunTargets(ctx context.Context, targets []Target, trigger domain.Trigger) (*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets = r.Targets(targets)
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.String()
	}

	run := domain.NewRun(names, trigger)
	logger := telemetry.WithRunID(r.logger, run.ID.String())
	ctx = telemetry.WithLogger(ctx, logger)

	r.rec.begin(run)
	run.MarkRunning()
	logger.Info("run started", "targets", names, "trigger", trigger)

	var err error
	for _, t := range targets {
		if err = r.engine.Invoke(ctx, t.Name, t.Args...); err != nil {
			break
		}
	}
	r.rec.end()

	switch {
	case err == nil:
		run.MarkSucceeded()
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		run.MarkCancelled(ExitCode(err))
		run.Error = err.Error()
	default:
		run.MarkFailed(err.Error(), ExitCode(err))
	}

	if r.metrics != nil {
		r.metrics.ObserveRun(run)
	}

	attrs := []any{
		"status", run.Status,
		"duration", run.Duration(),
		"tasks", len(run.Tasks),
		"skipped", run.Count(domain.TaskStatusSkipped),
	}
	if err != nil {
		logger.Info("run finished", append(attrs, "error", err)...)
	} else {
		logger.Info("run finished", attrs...)
	}
	return run, err
}

// Rerun сбрасывает состояние всех задач и выполняет цели заново.
func (r *Runner) Rerun(ctx context.Context, targets []Target, trigger domain.Trigger) (*domain.Run, error) {
	r.engine.ReenableAll()
	return r.RunTargets(ctx, targets, trigger)
}
