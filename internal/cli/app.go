package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Forge/internal/config"
	"github.com/shaiso/Forge/internal/domain"
	"github.com/shaiso/Forge/internal/engine"
	"github.com/shaiso/Forge/internal/runner"
	"github.com/shaiso/Forge/internal/scheduler"
	"github.com/shaiso/Forge/internal/taskfile"
	"github.com/shaiso/Forge/internal/telemetry"
	"github.com/shaiso/Forge/internal/watch"
)

// app — состояние одного вызова forge.
type app struct {
	opts Options
	v    *viper.Viper

	listTasks   bool
	listPrereqs bool

	cfg    *config.Config
	logger *slog.Logger
	out    *Output
}

func newApp(opts Options, v *viper.Viper) *app {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &app{
		opts: opts,
		v:    v,
		out:  NewOutput(false, opts.Stdout, opts.Stderr),
	}
}

func (a *app) trace() bool {
	return a.cfg != nil && a.cfg.Trace
}

func (a *app) run(ctx context.Context, args []string) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	cfg := a.cfg

	a.logger = telemetry.SetupLogger(telemetry.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Quiet:  cfg.Quiet,
		Output: a.opts.Stderr,
	})
	a.out = NewOutput(cfg.JSON, a.opts.Stdout, a.opts.Stderr)

	f, err := a.loadForgefile()
	if err != nil {
		return err
	}

	var metrics *telemetry.Metrics
	if cfg.LongRunning() && cfg.MetricsAddr != "" {
		metrics = telemetry.NewMetrics()
	}

	e := engine.New(engine.Config{
		AlwaysMake:  cfg.AlwaysMake,
		TaskTimeout: cfg.Timeout,
		Logger:      a.logger,
	})
	if metrics != nil {
		e.AddListener(metrics)
	}

	// в --json stdout занят итогом run
	stepOut := a.opts.Stdout
	if cfg.JSON {
		stepOut = a.opts.Stderr
	}

	targets, env := runner.ParseArgs(args)
	err = taskfile.Register(e, f, taskfile.Options{
		Env:    env,
		Stdout: stepOut,
		Stderr: a.opts.Stderr,
		Echo:   !cfg.Quiet && !cfg.JSON,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}

	switch {
	case a.listTasks:
		filter := ""
		if len(targets) > 0 {
			filter = targets[0].Name
		}
		PrintTasks(a.out, e.Tasks(), filter)
		return nil
	case a.listPrereqs:
		filter := ""
		if len(targets) > 0 {
			filter = targets[0].Name
		}
		return PrintPrereqs(a.out, e, filter)
	}

	r := runner.New(runner.Config{
		Engine:  e,
		Default: f.DefaultTask(),
		Metrics: metrics,
		Logger:  a.logger,
	})

	if !cfg.LongRunning() {
		run, err := r.Run(ctx, args)
		a.report(run)
		if err != nil {
			return &runError{err: err}
		}
		return nil
	}

	return a.serve(ctx, r, e, args, metrics)
}

// loadConfig переходит в рабочий каталог и читает конфигурацию.
func (a *app) loadConfig() error {
	if dir := a.v.GetString("directory"); dir != "" {
		if err := os.Chdir(dir); err != nil {
			return fmt.Errorf("change directory: %w", err)
		}
	}
	if err := config.ReadFile(a.v, "."); err != nil {
		return err
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// loadForgefile находит и читает Forgefile. Если он найден выше по
// дереву, рабочим каталогом становится его каталог.
func (a *app) loadForgefile() (*taskfile.Forgefile, error) {
	path := a.cfg.Forgefile
	if path == "" {
		found, err := taskfile.Find(".")
		if err != nil {
			return nil, err
		}
		path = found

		if dir := filepath.Dir(path); dir != "." {
			if err := os.Chdir(dir); err != nil {
				return nil, fmt.Errorf("change directory: %w", err)
			}
			a.logger.Debug("using forgefile", "path", path, "dir", dir)
		}
	}
	return taskfile.Load(path)
}

// serve — режимы --watch и --schedule: работают до отмены ctx.
func (a *app) serve(ctx context.Context, r *runner.Runner, e *engine.Engine, args []string, metrics *telemetry.Metrics) error {
	targets, _ := runner.ParseArgs(args)
	targets = r.Targets(targets)

	g, ctx := errgroup.WithContext(ctx)

	if metrics != nil {
		g.Go(func() error {
			return metrics.Serve(ctx, a.cfg.MetricsAddr, a.logger)
		})
	}

	if a.cfg.Watch {
		run, err := r.RunTargets(ctx, targets, domain.TriggerManual)
		a.report(run)
		if err != nil {
			a.out.Raw(runner.FormatError(err, a.cfg.Trace))
		}

		w, err := watch.New(watch.Config{
			Dir:      ".",
			Targets:  targets,
			Runner:   r,
			Debounce: a.cfg.WatchDebounce,
			Ignore:   outputFilter(e),
			Logger:   a.logger,
			OnRun: func(run *domain.Run, _ []string, err error) {
				a.report(run)
				if err != nil {
					a.out.Raw(runner.FormatError(err, a.cfg.Trace))
				}
			},
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
	} else {
		s, err := scheduler.New(scheduler.Config{
			CronExpr: a.cfg.Schedule,
			Targets:  targets,
			Runner:   r,
			Logger:   a.logger,
			OnRun: func(run *domain.Run, err error) {
				a.report(run)
				if err != nil {
					a.out.Raw(runner.FormatError(err, a.cfg.Trace))
				}
			},
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return s.Start(ctx) })
	}

	return g.Wait()
}

// report выводит итог run: всегда в --json, в watch и schedule
// еще и строкой после каждого запуска.
func (a *app) report(run *domain.Run) {
	if a.cfg.JSON || a.cfg.LongRunning() {
		a.out.Run(run)
	}
}

// outputFilter сообщает, является ли путь выходом файловой задачи
// или лежит внутри задачи-каталога.
func outputFilter(e *engine.Engine) func(string) bool {
	return func(path string) bool {
		path = filepath.Clean(path)
		for _, t := range e.Tasks() {
			if !t.Kind().IsFile() || !t.HasAction() {
				continue
			}
			name := filepath.Clean(t.Name())
			if path == name {
				return true
			}
			if t.Kind() == engine.KindDirectory && strings.HasPrefix(path, name+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}
}
