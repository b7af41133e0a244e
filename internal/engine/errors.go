package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки определения задач.
var (
	// ErrInvalidName — пустое или некорректное имя задачи/namespace.
	ErrInvalidName = errors.New("invalid name")

	// ErrTaskNotFound — запрошенная задача не определена.
	ErrTaskNotFound = errors.New("task not defined")

	// ErrUnknownTask — пререквизит не является ни задачей, ни правилом, ни файлом.
	ErrUnknownTask = errors.New("unknown task or file")

	// ErrNoFileNoAction — у файловой задачи нет ни файла, ни action.
	ErrNoFileNoAction = errors.New("file task has no existing file and no action to create one")

	// ErrInvalidPattern — некорректный шаблон правила.
	ErrInvalidPattern = errors.New("invalid rule pattern")
)

// Ошибки выполнения.
var (
	// ErrSelfDependency — задача зависит от самой себя через активную цепочку вызовов.
	ErrSelfDependency = errors.New("task depends on itself")

	// ErrCyclicDependency — цикл в статическом графе (только для вывода).
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrActionFailed — action сигнализировал неудачу без собственной ошибки.
	ErrActionFailed = errors.New("action failed")

	// ErrActionPanic — action запаниковал.
	ErrActionPanic = errors.New("action panicked")

	// ErrTaskTimeout — асинхронная задача не завершилась за отведённое время.
	ErrTaskTimeout = errors.New("task timed out")

	// ErrTaskInProgress — задача уже выполняется.
	ErrTaskInProgress = errors.New("task is already in progress")

	// ErrFileStat — ошибка файловой системы, отличная от "файл не существует".
	ErrFileStat = errors.New("stat failed")
)

// TaskError — ошибка выполнения задачи с контекстом.
//
// Chain — цепочка вызовов (от корня к задаче) на момент ошибки,
// выводится в trace-режиме. ExitCode — явный код выхода, 0 если не задан.
type TaskError struct {
	Task     string
	Chain    []string
	Err      error
	ExitCode int
}

// Error реализует интерфейс error.
func (e *TaskError) Error() string {
	if e.Task == "" {
		return e.Err.Error()
	}
	if errors.Is(e.Err, ErrSelfDependency) && len(e.Chain) > 0 {
		return fmt.Sprintf("task %q: %v (%s)", e.Task, e.Err, strings.Join(e.Chain, " -> "))
	}
	return fmt.Sprintf("task %q: %v", e.Task, e.Err)
}

// Unwrap возвращает базовую ошибку.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// exitCoder реализуется ошибками, несущими код выхода (например, *exec.ExitError).
type exitCoder interface {
	ExitCode() int
}

// exitCodeOf извлекает код выхода из цепочки ошибок.
func exitCodeOf(err error) int {
	var te *TaskError
	if errors.As(err, &te) && te.ExitCode != 0 {
		return te.ExitCode
	}
	var ec exitCoder
	if errors.As(err, &ec) && ec.ExitCode() > 0 {
		return ec.ExitCode()
	}
	return 0
}

// newTaskError оборачивает ошибку задачи, не оборачивая повторно уже готовую TaskError.
func newTaskError(t *Task, path *chain, err error, code int) error {
	var te *TaskError
	if errors.As(err, &te) {
		return err
	}
	if code == 0 {
		code = exitCodeOf(err)
	}
	return &TaskError{
		Task:     t.FullName(),
		Chain:    path.names(),
		Err:      err,
		ExitCode: code,
	}
}

// selfDependencyError — ошибка цикла для задачи t, найденной в цепочке path.
func selfDependencyError(t *Task, path *chain) error {
	names := append(path.names(), t.FullName())
	return &TaskError{
		Task:  t.FullName(),
		Chain: names,
		Err:   ErrSelfDependency,
	}
}
