package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// chain — активная цепочка вызовов: задачи между invoke и завершением
// на текущем пути обхода. Неизменяемая, передаётся через context.
type chain struct {
	task   *Task
	parent *chain
}

func (c *chain) contains(t *Task) bool {
	for ; c != nil; c = c.parent {
		if c.task == t {
			return true
		}
	}
	return false
}

// names возвращает полные имена задач от корня к вершине.
func (c *chain) names() []string {
	var out []string
	for ; c != nil; c = c.parent {
		out = append(out, c.task.FullName())
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (c *chain) top() *Task {
	if c == nil {
		return nil
	}
	return c.task
}

// gate открывается, когда горутина пререквизита дошла до первой точки
// ожидания. Родитель не запускает следующий пререквизит, пока gate
// предыдущего закрыт: порядок старта совпадает с порядком объявления.
type gate struct {
	ch   chan struct{}
	once sync.Once
}

func newGate() *gate {
	return &gate{ch: make(chan struct{})}
}

func (g *gate) open() {
	g.once.Do(func() { close(g.ch) })
}

type ctxKey int

const (
	chainKey ctxKey = iota
	gateKey
)

func withChain(ctx context.Context, c *chain) context.Context {
	return context.WithValue(ctx, chainKey, c)
}

func chainFrom(ctx context.Context) *chain {
	c, _ := ctx.Value(chainKey).(*chain)
	return c
}

func withGate(ctx context.Context, g *gate) context.Context {
	return context.WithValue(ctx, gateKey, g)
}

// openGate открывает gate текущей горутины перед блокировкой.
func openGate(ctx context.Context) {
	if g, ok := ctx.Value(gateKey).(*gate); ok {
		g.open()
	}
}

// invoke выполняет задачу: пререквизиты, затем action.
// Повторный вызов выполненной задачи возвращает сохранённый результат.
func (e *Engine) invoke(ctx context.Context, t *Task, args []string) error {
	parent := chainFrom(ctx)
	if parent.contains(t) {
		return selfDependencyError(t, parent)
	}
	waiter := parent.top()

	e.mu.Lock()
	switch t.state {
	case StateDone:
		err := t.err
		e.mu.Unlock()
		return err

	case StateInProgress:
		if waiter != nil && e.reachesLocked(t, waiter) {
			e.mu.Unlock()
			return selfDependencyError(t, parent)
		}
		done := t.done
		e.addWaitLocked(waiter, t)
		e.mu.Unlock()
		defer e.removeWait(waiter, t)
		return e.await(ctx, t, done)
	}

	t.state = StateInProgress
	t.args = args
	t.err = nil
	t.done = make(chan struct{})
	e.addWaitLocked(waiter, t)
	e.mu.Unlock()
	defer e.removeWait(waiter, t)

	path := &chain{task: t, parent: parent}
	ctx = withChain(ctx, path)

	err := e.runPrereqs(ctx, t)
	if err == nil {
		err = e.run(ctx, t, args)
	}
	return e.finish(t, path, err)
}

// await ждёт завершения задачи, запущенной другим путём обхода.
func (e *Engine) await(ctx context.Context, t *Task, done <-chan struct{}) error {
	openGate(ctx)
	select {
	case <-done:
		e.mu.Lock()
		defer e.mu.Unlock()
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish переводит задачу в DONE и будит ожидающих.
func (e *Engine) finish(t *Task, path *chain, err error) error {
	if err != nil {
		err = newTaskError(t, path, err, 0)
	}

	e.mu.Lock()
	t.state = StateDone
	t.err = err
	if t.done != nil {
		close(t.done)
	}
	e.mu.Unlock()

	return err
}

// runPrereqs выполняет пререквизиты задачи.
//
// При concurrency 1 пререквизиты выполняются по порядку в текущей
// горутине. Иначе — в errgroup с лимитом concurrency: старт в порядке
// объявления, после первой ошибки новые пререквизиты не запускаются.
func (e *Engine) runPrereqs(ctx context.Context, t *Task) error {
	e.mu.Lock()
	prereqs := append([]string(nil), t.prereqs...)
	limit := t.concurrency
	e.mu.Unlock()

	if len(prereqs) == 0 {
		return nil
	}

	if limit <= 1 {
		for _, p := range prereqs {
			if err := e.invokePrereq(ctx, t, p); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		g      errgroup.Group
		failed atomic.Bool
	)
	g.SetLimit(limit)

	for _, p := range prereqs {
		if failed.Load() {
			break
		}

		child := newGate()
		fn := func() error {
			defer child.open()
			if failed.Load() {
				return nil
			}
			if err := e.invokePrereq(withGate(ctx, child), t, p); err != nil {
				failed.Store(true)
				return err
			}
			return nil
		}

		if !g.TryGo(fn) {
			openGate(ctx)
			g.Go(fn)
		}
		<-child.ch
	}

	openGate(ctx)
	return g.Wait()
}

// invokePrereq разрешает имя пререквизита и выполняет его.
func (e *Engine) invokePrereq(ctx context.Context, parent *Task, prereq string) error {
	name, args := ParseTaskName(prereq)

	t, err := e.lookupPrereq(parent.ns, name)
	if err != nil {
		return newTaskError(parent, chainFrom(ctx), err, 0)
	}
	return e.invoke(ctx, t, args)
}

// run выполняет action задачи, если она в нём нуждается.
func (e *Engine) run(ctx context.Context, t *Task, args []string) error {
	needed, err := e.isNeeded(t)
	if err != nil {
		return err
	}
	if !needed {
		e.logger.Debug("task skipped", "task", t.FullName())
		e.emit(func(l Listener) { l.TaskSkipped(t) })
		return nil
	}
	if t.action == nil {
		return nil
	}

	return e.execAction(ctx, t, args)
}

// execute выполняет только action, без пререквизитов.
func (e *Engine) execute(ctx context.Context, t *Task, args []string) error {
	e.mu.Lock()
	if t.state == StateInProgress {
		e.mu.Unlock()
		return newTaskError(t, chainFrom(ctx), ErrTaskInProgress, 0)
	}
	e.mu.Unlock()

	if t.action == nil {
		return nil
	}
	if err := e.execAction(ctx, t, args); err != nil {
		return newTaskError(t, chainFrom(ctx), err, 0)
	}
	return nil
}

// execAction вызывает action и ждёт завершения вызова.
func (e *Engine) execAction(ctx context.Context, t *Task, args []string) error {
	c := newCall(ctx, t, args)
	defer c.cancel()

	e.logger.Debug("task started", "task", t.FullName(), "args", args)
	e.emit(func(l Listener) { l.TaskStarted(t) })
	start := time.Now()

	c.returnedFrom(protect(func() error { return t.action(c.ctx, c) }), t.async)

	err := e.waitCall(ctx, c, start)
	if err == nil && t.kind.IsFile() {
		err = e.refreshModTime(t)
	}

	duration := time.Since(start)
	if err != nil {
		e.logger.Debug("task failed", "task", t.FullName(), "duration", duration, "error", err)
		e.emit(func(l Listener) { l.TaskFailed(t, err) })
		return err
	}

	e.logger.Debug("task completed", "task", t.FullName(), "duration", duration)
	e.emit(func(l Listener) { l.TaskCompleted(t, duration) })
	return nil
}

// waitCall ждёт завершения вызова с учётом TaskTimeout.
func (e *Engine) waitCall(ctx context.Context, c *Call, start time.Time) error {
	if !c.isSettled() {
		openGate(ctx)

		var timeout <-chan time.Time
		if e.cfg.TaskTimeout > 0 {
			timer := time.NewTimer(time.Until(start.Add(e.cfg.TaskTimeout)))
			defer timer.Stop()
			timeout = timer.C
		}

		select {
		case <-c.settled:
		case <-timeout:
			c.Fail(ErrTaskTimeout)
		case <-ctx.Done():
			c.Fail(ctx.Err())
		}
	}

	if c.err != nil && c.code != 0 {
		return &TaskError{
			Task:     c.Task.FullName(),
			Chain:    chainFrom(ctx).names(),
			Err:      c.err,
			ExitCode: c.code,
		}
	}
	return c.err
}

// addWaitLocked добавляет ребро "waiter ждёт t" в граф ожидания.
func (e *Engine) addWaitLocked(waiter, t *Task) {
	if waiter == nil {
		return
	}
	edges := e.waits[waiter]
	if edges == nil {
		edges = make(map[*Task]int)
		e.waits[waiter] = edges
	}
	edges[t]++
}

func (e *Engine) removeWait(waiter, t *Task) {
	if waiter == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	edges := e.waits[waiter]
	if edges[t]--; edges[t] <= 0 {
		delete(edges, t)
	}
	if len(edges) == 0 {
		delete(e.waits, waiter)
	}
}

// reachesLocked сообщает, ждёт ли from (транзитивно) задачу to.
// Ожидание to на from в таком случае было бы взаимной блокировкой.
func (e *Engine) reachesLocked(from, to *Task) bool {
	seen := make(map[*Task]bool)
	stack := []*Task{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for next := range e.waits[cur] {
			stack = append(stack, next)
		}
	}
	return false
}
