package taskfile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/shaiso/Forge/internal/engine"
	"github.com/shaiso/Forge/internal/steps"
)

// Options — параметры регистрации Forgefile в Engine.
type Options struct {
	// Registry — типы шагов (default: steps.DefaultRegistry).
	Registry *steps.Registry

	// Dir — рабочий каталог шагов ("" — текущий).
	Dir string

	// Env — переменные из командной строки; перекрывают env Forgefile.
	Env map[string]string

	// Stdout, Stderr — вывод команд.
	Stdout io.Writer
	Stderr io.Writer

	// Echo — печатать каждый шаг в Stderr перед выполнением.
	Echo bool

	Logger *slog.Logger
}

// Register регистрирует задачи, файлы, каталоги, правила и namespace
// из Forgefile в текущем namespace Engine.
func Register(e *engine.Engine, f *Forgefile, opts Options) error {
	if opts.Registry == nil {
		opts.Registry = steps.DefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	env := make(map[string]string, len(f.Env)+len(opts.Env))
	for k, v := range f.Env {
		env[k] = v
	}
	for k, v := range opts.Env {
		env[k] = v
	}

	b := &builder{
		engine: e,
		opts:   opts,
		env:    env,
		logger: opts.Logger.With("component", "taskfile"),
	}
	return b.registerScope(&f.Scope)
}

type builder struct {
	engine *engine.Engine
	opts   Options
	env    map[string]string
	logger *slog.Logger
}

func (b *builder) registerScope(s *Scope) error {
	for _, def := range s.Tasks {
		b.engine.Desc(def.Desc)
		if _, err := b.engine.Task(def.Name, def.Deps, b.action(def.Steps), taskOptions(def)...); err != nil {
			return err
		}
	}
	for _, def := range s.Files {
		b.engine.Desc(def.Desc)
		if _, err := b.engine.File(def.Name, def.Deps, b.action(def.Steps), taskOptions(def)...); err != nil {
			return err
		}
	}
	for _, def := range s.Directories {
		b.engine.Desc(def.Desc)
		if _, err := b.engine.Directory(def.Name, def.Deps, b.action(def.Steps), taskOptions(def)...); err != nil {
			return err
		}
	}
	for _, def := range s.Rules {
		if err := b.registerRule(def); err != nil {
			return err
		}
	}

	for _, ns := range s.Namespaces {
		var err error
		if _, nsErr := b.engine.Namespace(ns.Name, func() {
			err = b.registerScope(&ns.Scope)
		}); nsErr != nil {
			return nsErr
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) registerRule(def RuleDef) error {
	rd := engine.RuleDef{
		Pattern: def.Pattern,
		Source:  def.Source,
		Prereqs: def.Deps,
		Action:  b.action(def.Steps),
		Desc:    def.Desc,
	}
	if def.Regexp != "" {
		re, err := regexp.Compile(def.Regexp)
		if err != nil {
			return NewValidationError(def.Key(), "regexp", err.Error(), ErrInvalidRule)
		}
		rd.Regexp = re
	}
	if def.Concurrency > 0 {
		rd.Options = append(rd.Options, engine.Concurrency(def.Concurrency))
	}

	_, err := b.engine.Rule(rd)
	return err
}

func taskOptions(def TaskDef) []engine.TaskOption {
	var opts []engine.TaskOption
	if def.Concurrency > 0 {
		opts = append(opts, engine.Concurrency(def.Concurrency))
	}
	if def.Async {
		opts = append(opts, engine.Async())
	}
	return opts
}

// action строит action, выполняющий шаги по порядку.
// Шаги выполняются в Call.Go, поэтому action всегда ожидающий.
func (b *builder) action(defs []StepDef) engine.Action {
	if len(defs) == 0 {
		return nil
	}
	return func(_ context.Context, c *engine.Call) error {
		c.Go(func(ctx context.Context) error {
			return b.runSteps(ctx, c, defs)
		})
		return nil
	}
}

func (b *builder) runSteps(ctx context.Context, c *engine.Call, defs []StepDef) error {
	tctx := NewContext(c.Task.FullName(), c.Name)
	tctx.Source = c.Source
	tctx.Args = c.Args
	for k, v := range b.env {
		tctx.SetEnv(k, v)
	}

	for i, def := range defs {
		stepType := def.Type()
		log := b.logger.With("task", tctx.Task, "step", i+1, "type", stepType)

		cfg, err := RenderConfig(def.Config(), tctx)
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}

		if b.opts.Echo && b.opts.Stderr != nil {
			fmt.Fprintf(b.opts.Stderr, "[%s] %s\n", tctx.Task, describe(stepType, cfg))
		}

		if stepType == StepInvoke {
			name, _ := cfg["task"].(string)
			err = b.engine.InvokeIn(ctx, c.Task.Namespace(), name)
		} else {
			err = b.execStep(ctx, tctx, stepType, cfg)
		}

		if err != nil {
			if def.IgnoreError {
				log.Warn("step failed, ignoring", "error", err)
				continue
			}
			return fmt.Errorf("step %d (%s): %w", i+1, stepType, err)
		}
		log.Debug("step completed")
	}
	return nil
}

func (b *builder) execStep(ctx context.Context, tctx *Context, stepType string, cfg map[string]any) error {
	req := steps.NewRequest(tctx.Task, cfg)
	req.Dir = b.opts.Dir
	req.Env = envList(b.env)
	req.Stdout = b.opts.Stdout
	req.Stderr = b.opts.Stderr

	_, err := b.opts.Registry.Run(ctx, stepType, req)
	return err
}

func describe(stepType string, cfg map[string]any) string {
	switch stepType {
	case StepShell:
		return fmt.Sprint(cfg["command"])
	case StepMkdir:
		return fmt.Sprintf("mkdir -p %v", cfg["path"])
	case StepInvoke:
		return fmt.Sprintf("invoke %v", cfg["task"])
	case StepHTTP:
		method := strings.ToUpper(steps.Config(cfg).String("method"))
		if method == "" {
			method = "GET"
		}
		return fmt.Sprintf("%s %v", method, cfg["url"])
	default:
		return fmt.Sprintf("%s %v", stepType, cfg)
	}
}

// envList возвращает окружение в формате KEY=value, отсортированное по ключу.
func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
