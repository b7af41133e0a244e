package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const (
	// StepTypeShell — тип шага shell-команды.
	StepTypeShell = "shell"

	configCommand = "command"
	configDir     = "dir"
	configEnv     = "env"
	configShell   = "shell"

	defaultShell = "sh"

	// waitDelay — сколько ждать закрытия вывода после отмены команды.
	waitDelay = time.Second
)

// ShellStep выполняет команду через "sh -c".
//
// Конфигурация:
//
//	{
//	    "command": "go build ./...",
//	    "dir": "cmd/forge",          // относительно Request.Dir
//	    "env": {"CGO_ENABLED": "0"},
//	    "shell": "bash"               // по умолчанию sh
//	}
//
// Ненулевой код выхода возвращается как ошибка, из которой
// код извлекается через ExitCode().
type ShellStep struct{}

// NewShellStep создаёт новый ShellStep.
func NewShellStep() *ShellStep {
	return &ShellStep{}
}

// Type возвращает тип шага.
func (s *ShellStep) Type() string {
	return StepTypeShell
}

// Execute запускает команду и ждёт её завершения.
func (s *ShellStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	command := req.Config.String(configCommand)
	if command == "" {
		return nil, fmt.Errorf("%w: %s: command is required", ErrInvalidConfig, StepTypeShell)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	shell := req.Config.String(configShell)
	if shell == "" {
		shell = defaultShell
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = resolveDir(req.Dir, req.Config.String(configDir))
	cmd.Stdout = req.Stdout
	cmd.Stderr = req.Stderr
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), req.Env...)
	for k, v := range req.Config.StringMap(configEnv) {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	start := time.Now()
	err := cmd.Run()
	outputs := map[string]any{
		"command":     command,
		"duration_ms": time.Since(start).Milliseconds(),
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &CommandError{Command: command, Code: exitErr.ExitCode(), Err: err}
		}
		return nil, fmt.Errorf("run %q: %w", command, err)
	}

	outputs["exit_code"] = 0
	return respond(outputs), nil
}

// CommandError — команда завершилась с ненулевым кодом.
type CommandError struct {
	Command string
	Code    int
	Err     error
}

// Error реализует интерфейс error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.Code)
}

// Unwrap возвращает базовую ошибку.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode возвращает код выхода команды.
func (e *CommandError) ExitCode() int {
	return e.Code
}
