package engine

import (
	"context"
	"fmt"
	"sync"
)

// Call — контекст одного выполнения action.
//
// Call завершается ровно один раз: первый вызов Complete / Fail
// побеждает, последующие игнорируются.
type Call struct {
	// Task — выполняемая задача.
	Task *Task

	// Name — имя цели: полное имя задачи или путь файла.
	Name string

	// Source — исходный файл для задач, созданных правилом.
	Source string

	// Args — позиционные аргументы вызова.
	Args []string

	ctx    context.Context
	cancel context.CancelFunc

	settled chan struct{}
	once    sync.Once
	err     error
	code    int

	mu       sync.Mutex
	goCalled bool
	running  int
	returned bool
}

func newCall(ctx context.Context, t *Task, args []string) *Call {
	ctx, cancel := context.WithCancel(ctx)
	name := t.FullName()
	if t.kind.IsFile() {
		name = t.name
	}
	return &Call{
		Task:    t,
		Name:    name,
		Source:  t.source,
		Args:    args,
		ctx:     ctx,
		cancel:  cancel,
		settled: make(chan struct{}),
	}
}

// Context возвращает контекст вызова. Он отменяется после завершения.
func (c *Call) Context() context.Context { return c.ctx }

// Complete сигнализирует успешное завершение.
func (c *Call) Complete() {
	c.settle(nil, 0)
}

// Fail сигнализирует неудачу. nil заменяется на ErrActionFailed.
func (c *Call) Fail(err error) {
	c.FailWithCode(err, 0)
}

// FailWithCode сигнализирует неудачу с явным кодом выхода процесса.
func (c *Call) FailWithCode(err error, code int) {
	if err == nil {
		err = ErrActionFailed
	}
	c.settle(err, code)
}

// Go выполняет fn в отдельной горутине и завершает вызов по её результату.
//
// Вызов становится ожидающим даже для синхронной задачи. При нескольких
// вызовах Go задача завершается, когда закончатся все; первая ошибка
// завершает её сразу.
func (c *Call) Go(fn func(ctx context.Context) error) {
	c.mu.Lock()
	c.goCalled = true
	c.running++
	c.mu.Unlock()

	go func() {
		if err := protect(func() error { return fn(c.ctx) }); err != nil {
			c.Fail(err)
		}

		c.mu.Lock()
		c.running--
		last := c.running == 0 && c.returned
		c.mu.Unlock()

		if last {
			c.Complete()
		}
	}()
}

// Done возвращает канал, закрываемый при завершении вызова.
func (c *Call) Done() <-chan struct{} { return c.settled }

// Err возвращает результат завершения.
func (c *Call) Err() error {
	select {
	case <-c.settled:
		return c.err
	default:
		return nil
	}
}

func (c *Call) settle(err error, code int) {
	c.once.Do(func() {
		c.err = err
		c.code = code
		close(c.settled)
	})
}

// returnedFrom фиксирует возврат из action и завершает вызов,
// если ничего больше не ожидается.
func (c *Call) returnedFrom(err error, async bool) {
	if err != nil {
		c.Fail(err)
		return
	}

	c.mu.Lock()
	c.returned = true
	goCalled, running := c.goCalled, c.running
	c.mu.Unlock()

	switch {
	case goCalled && running == 0:
		c.Complete()
	case goCalled:
		// завершит последняя горутина Go
	case !async:
		c.Complete()
	}
}

func (c *Call) isSettled() bool {
	select {
	case <-c.settled:
		return true
	default:
		return false
	}
}

// protect выполняет fn, превращая панику в ошибку.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanic, r)
		}
	}()
	return fn()
}
