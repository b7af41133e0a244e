package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/Forge/internal/engine"
)

// exitCoder реализуется ошибками с кодом выхода (steps.CommandError, *exec.ExitError).
type exitCoder interface {
	ExitCode() int
}

// ExitCode возвращает код выхода процесса для результата запуска:
// 0 — успех, явный код задачи, иначе 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var te *engine.TaskError
	if errors.As(err, &te) && te.ExitCode != 0 {
		return te.ExitCode
	}
	var ec exitCoder
	if errors.As(err, &ec) && ec.ExitCode() > 0 {
		return ec.ExitCode()
	}
	return 1
}

// FormatError формирует диагностическое сообщение для пользователя.
//
// В trace-режиме добавляются цепочка вызовов задач и все уровни
// обёрнутых ошибок.
func FormatError(err error, trace bool) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("forge aborted!\n")
	b.WriteString(err.Error())
	b.WriteString("\n")

	if errors.Is(err, context.Canceled) {
		b.WriteString("(interrupted)\n")
		return b.String()
	}

	if !trace {
		b.WriteString("(See full trace by running with --trace)\n")
		return b.String()
	}

	var te *engine.TaskError
	if errors.As(err, &te) && len(te.Chain) > 0 {
		b.WriteString("\nInvocation chain:\n")
		for i, name := range te.Chain {
			if i == 0 {
				fmt.Fprintf(&b, "  %s\n", name)
				continue
			}
			fmt.Fprintf(&b, "  %s-> %s\n", strings.Repeat("  ", i-1), name)
		}
	}

	b.WriteString("\nError chain:\n")
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		fmt.Fprintf(&b, "  %T: %v\n", cur, cur)
	}
	return b.String()
}
