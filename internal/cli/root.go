package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shaiso/Forge/internal/config"
	"github.com/shaiso/Forge/internal/runner"
)

// Options — параметры запуска CLI.
type Options struct {
	Version string
	Stdout  io.Writer
	Stderr  io.Writer
}

// flagKeys — соответствие флагов ключам конфигурации.
var flagKeys = map[string]string{
	"forgefile":      "forgefile",
	"directory":      "directory",
	"always-make":    "always_make",
	"quiet":          "quiet",
	"trace":          "trace",
	"timeout":        "timeout",
	"watch":          "watch",
	"watch-debounce": "watch_debounce",
	"schedule":       "schedule",
	"metrics-addr":   "metrics_addr",
	"json":           "json",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

// newRootCmd создаёт корневую команду forge.
func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forge [flags] [task[args]...] [KEY=value...]",
		Short: "Forge — task runner with file-based dependencies",
		Long: `Forge runs tasks declared in a Forgefile.yaml.

Tasks run once per invocation, after their prerequisites. File tasks
run only when the file is missing or older than a prerequisite.
KEY=value arguments set environment variables for all steps.`,
		Version:       a.opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args)
		},
	}

	f := cmd.Flags()
	f.StringP("forgefile", "f", "", "Use FILE as the Forgefile")
	f.StringP("directory", "C", "", "Change to DIR before doing anything")
	f.BoolP("always-make", "B", false, "Unconditionally make all file targets")
	f.BoolVarP(&a.listTasks, "tasks", "T", false, "Display tasks with descriptions (optional filter argument)")
	f.BoolVarP(&a.listPrereqs, "prereqs", "P", false, "Display tasks and their prerequisites")
	f.BoolP("quiet", "q", false, "Do not echo steps; log errors only")
	f.BoolP("trace", "t", false, "Print full error trace")
	f.Duration("timeout", 0, "Per-task timeout (0 = none)")
	f.BoolP("watch", "w", false, "Re-run targets when files change")
	f.Duration("watch-debounce", 0, "Delay before re-running after a change")
	f.String("schedule", "", "Re-run targets on a cron schedule")
	f.String("metrics-addr", "", "Serve /metrics on ADDR in watch/schedule mode")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.String("log-format", "", "Log format: text, json")
	f.Bool("json", false, "Output listings and run results as JSON")

	config.SetDefaults(a.v)
	for flag, key := range flagKeys {
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}

	return cmd
}

// Execute выполняет forge с аргументами args и возвращает код выхода.
func Execute(ctx context.Context, args []string, opts Options) int {
	a := newApp(opts, viper.New())
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var re *runError
	if errors.As(err, &re) {
		a.out.Raw(runner.FormatError(re.err, a.trace()))
		return runner.ExitCode(re.err)
	}

	NewOutput(false, opts.Stdout, opts.Stderr).Error(err.Error())
	return 1
}

// runError — ошибка выполнения задач (в отличие от ошибок флагов и загрузки).
type runError struct {
	err error
}

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }
