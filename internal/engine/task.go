package engine

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Kind — вариант задачи.
type Kind int

const (
	// KindTask — обычная задача.
	KindTask Kind = iota

	// KindFile — файловая задача: выполняется, только если файл устарел.
	KindFile

	// KindDirectory — задача-каталог: по умолчанию создаёт каталог.
	KindDirectory
)

// String возвращает строковое представление Kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "task"
	}
}

// IsFile сообщает, несёт ли задача метку времени файла.
func (k Kind) IsFile() bool {
	return k == KindFile || k == KindDirectory
}

// TaskState — состояние выполнения задачи в рамках одного запуска.
//
// Жизненный цикл:
//
//	NOT_STARTED → IN_PROGRESS → DONE
//	(Reenable возвращает в NOT_STARTED)
type TaskState string

const (
	// StateNotStarted — задача ещё не вызывалась.
	StateNotStarted TaskState = "NOT_STARTED"

	// StateInProgress — задача между invoke и завершением.
	StateInProgress TaskState = "IN_PROGRESS"

	// StateDone — задача завершена (успешно или с ошибкой).
	StateDone TaskState = "DONE"
)

// DefaultConcurrency — число одновременно выполняемых пререквизитов по умолчанию.
const DefaultConcurrency = 1

// Action — тело задачи.
//
// Синхронный action завершает задачу возвратом. Асинхронный (опция Async
// или вызов Call.Go) завершает её через Call.Complete / Call.Fail.
type Action func(ctx context.Context, c *Call) error

// TaskOption настраивает задачу при регистрации.
type TaskOption func(*taskOptions)

type taskOptions struct {
	async       *bool
	concurrency *int
	description *string
}

// Async помечает задачу как асинхронную.
func Async() TaskOption {
	return func(o *taskOptions) {
		v := true
		o.async = &v
	}
}

// Concurrency задаёт число одновременно выполняемых пререквизитов.
// Значения меньше 1 приводятся к 1.
func Concurrency(n int) TaskOption {
	return func(o *taskOptions) {
		if n < 1 {
			n = 1
		}
		o.concurrency = &n
	}
}

// Description задаёт описание задачи.
func Description(text string) TaskOption {
	return func(o *taskOptions) {
		o.description = &text
	}
}

// Task — единица работы с пререквизитами и необязательным action.
//
// Поля состояния (state, args, err, done, modTime) изменяются только
// под мьютексом Engine и только в invoke/finish/Reenable.
type Task struct {
	engine *Engine
	ns     *Namespace
	kind   Kind
	name   string

	prereqs     []string
	action      Action
	async       bool
	concurrency int
	description string

	// source — имя исходного файла для задач, созданных правилом.
	source string

	// placeholder — задача-заглушка для существующего файла без определения.
	placeholder bool

	state   TaskState
	args    []string
	err     error
	done    chan struct{}
	modTime time.Time
}

func (t *Task) apply(o taskOptions) {
	if o.async != nil {
		t.async = *o.async
	}
	if o.concurrency != nil {
		t.concurrency = *o.concurrency
	}
	if o.description != nil {
		t.description = *o.description
	}
}

// Name возвращает неполное имя задачи.
func (t *Task) Name() string { return t.name }

// FullName возвращает полное имя: путь namespace + имя.
func (t *Task) FullName() string { return t.ns.qualify(t.name) }

// Namespace возвращает namespace, в котором зарегистрирована задача.
func (t *Task) Namespace() *Namespace { return t.ns }

// Kind возвращает вариант задачи.
func (t *Task) Kind() Kind { return t.kind }

// Async сообщает, асинхронна ли задача.
func (t *Task) Async() bool { return t.async }

// Concurrency возвращает лимит одновременно выполняемых пререквизитов.
func (t *Task) Concurrency() int { return t.concurrency }

// Description возвращает описание задачи.
func (t *Task) Description() string { return t.description }

// Source возвращает имя исходного файла для задач, созданных правилом.
func (t *Task) Source() string { return t.source }

// HasAction сообщает, определён ли action.
func (t *Task) HasAction() bool { return t.action != nil }

// Prereqs возвращает копию списка пререквизитов.
func (t *Task) Prereqs() []string {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	return append([]string(nil), t.prereqs...)
}

// State возвращает текущее состояние выполнения.
func (t *Task) State() TaskState {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	return t.state
}

// Err возвращает ошибку последнего выполнения.
func (t *Task) Err() error {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	return t.err
}

// Args возвращает аргументы последнего вызова.
func (t *Task) Args() []string {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	return append([]string(nil), t.args...)
}

// ModTime возвращает закэшированное время модификации файла.
func (t *Task) ModTime() time.Time {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	return t.modTime
}

// Invoke выполняет задачу вместе с пререквизитами.
func (t *Task) Invoke(ctx context.Context, args ...string) error {
	return t.engine.invoke(ctx, t, args)
}

// Execute выполняет только action задачи, без пререквизитов
// и независимо от того, выполнялась ли она в этом запуске.
func (t *Task) Execute(ctx context.Context, args ...string) error {
	return t.engine.execute(ctx, t, args)
}

// Reenable сбрасывает состояние в NOT_STARTED. При deep=true
// рекурсивно сбрасываются все известные пререквизиты.
// Выполняющиеся задачи не сбрасываются.
func (t *Task) Reenable(deep bool) {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	t.reenableLocked(deep, make(map[*Task]bool))
}

func (t *Task) reenableLocked(deep bool, seen map[*Task]bool) {
	if seen[t] {
		return
	}
	seen[t] = true

	if t.state != StateInProgress {
		t.state = StateNotStarted
		t.err = nil
		t.args = nil
		t.done = nil
	}

	if !deep {
		return
	}
	for _, p := range t.prereqs {
		name, _ := ParseTaskName(p)
		if prereq := t.engine.resolveLocked(t.ns, name); prereq != nil {
			prereq.reenableLocked(deep, seen)
		}
	}
}

// ParseTaskName разбирает "name[a,b]" на имя и позиционные аргументы.
func ParseTaskName(s string) (name string, args []string) {
	i := strings.Index(s, "[")
	if i < 0 {
		return s, nil
	}
	name = s[:i]
	rest := strings.TrimSuffix(s[i+1:], "]")
	if rest == "" {
		return name, nil
	}
	return name, strings.Split(rest, ",")
}

// sortTasks сортирует задачи по полному имени.
func sortTasks(tasks []*Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].FullName() < tasks[j].FullName()
	})
}
