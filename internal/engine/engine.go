package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Engine владеет деревом namespace, плоским индексом задач
// и состоянием выполнения.
//
// Регистрация (Task, File, Directory, Namespace, Rule, Desc) выполняется
// до запуска. Invoke безопасен для конкурентного вызова.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	root  *Namespace
	index map[string]*Task

	// stack — текущий namespace для регистрации; вершина — последний элемент.
	stack []*Namespace

	// desc — описание для следующей регистрируемой задачи.
	desc string

	// waits — граф ожидания: кто из выполняющихся задач ждёт кого.
	waits map[*Task]map[*Task]int
}

// Config — конфигурация Engine.
type Config struct {
	// AlwaysMake — выполнять файловые задачи независимо от mtime.
	AlwaysMake bool

	// TaskTimeout — максимальное время ожидания завершения action (0 — без ограничения).
	TaskTimeout time.Duration

	// Logger
	Logger *slog.Logger

	// Listeners получают события выполнения задач.
	Listeners []Listener

	// Stat — доступ к файловой системе (default: os.Stat).
	Stat StatFunc
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Stat == nil {
		cfg.Stat = os.Stat
	}

	root := newNamespace("", nil)
	return &Engine{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "engine"),
		root:   root,
		index:  make(map[string]*Task),
		stack:  []*Namespace{root},
		waits:  make(map[*Task]map[*Task]int),
	}
}

// Root возвращает корневой namespace.
func (e *Engine) Root() *Namespace { return e.root }

// Current возвращает namespace, в который попадают новые регистрации.
func (e *Engine) Current() *Namespace {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentLocked()
}

func (e *Engine) currentLocked() *Namespace {
	return e.stack[len(e.stack)-1]
}

// AddListener подключает получателя событий.
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Listeners = append(e.cfg.Listeners, l)
}

// Desc задаёт описание для следующей регистрируемой задачи.
func (e *Engine) Desc(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.desc = text
}

// Task регистрирует обычную задачу в текущем namespace.
//
// Повторная регистрация дополняет пререквизиты и заменяет action.
func (e *Engine) Task(name string, prereqs []string, action Action, opts ...TaskOption) (*Task, error) {
	return e.define(KindTask, name, prereqs, action, opts)
}

// File регистрирует файловую задачу; name — путь к файлу.
func (e *Engine) File(name string, prereqs []string, action Action, opts ...TaskOption) (*Task, error) {
	return e.define(KindFile, name, prereqs, action, opts)
}

// Directory регистрирует задачу-каталог. Без action каталог создаётся
// через os.MkdirAll.
func (e *Engine) Directory(name string, prereqs []string, action Action, opts ...TaskOption) (*Task, error) {
	if action == nil {
		action = mkdirAction
	}
	return e.define(KindDirectory, name, prereqs, action, opts)
}

func (e *Engine) define(kind Kind, name string, prereqs []string, action Action, opts []TaskOption) (*Task, error) {
	if err := validateTaskName(kind, name); err != nil {
		return nil, err
	}

	var o taskOptions
	for _, opt := range opts {
		opt(&o)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.defineLocked(e.currentLocked(), kind, name, prereqs, action, o)
	if e.desc != "" {
		t.description = e.desc
		e.desc = ""
	}
	return t, nil
}

func validateTaskName(kind Kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty task name", ErrInvalidName)
	}
	if kind == KindTask && strings.ContainsAny(name, Separator+"[]") {
		return fmt.Errorf("%w: %q: task names cannot contain %q or brackets", ErrInvalidName, name, Separator)
	}
	return nil
}

// defineLocked создаёт задачу или дополняет существующую.
func (e *Engine) defineLocked(ns *Namespace, kind Kind, name string, prereqs []string, action Action, o taskOptions) *Task {
	t := ns.tasks[name]
	if t == nil {
		t = &Task{
			engine:      e,
			ns:          ns,
			kind:        kind,
			name:        name,
			concurrency: DefaultConcurrency,
			state:       StateNotStarted,
		}
		ns.tasks[name] = t
		e.index[t.FullName()] = t
	} else if t.placeholder {
		t.kind = kind
		t.placeholder = false
	}

	t.prereqs = append(t.prereqs, prereqs...)
	if action != nil {
		t.action = action
	}
	t.apply(o)
	return t
}

// Namespace создаёт (или открывает существующий) дочерний namespace
// текущего и выполняет block, пока он текущий. Текущий namespace
// восстанавливается, даже если block паникует.
func (e *Engine) Namespace(name string, block func()) (*Namespace, error) {
	if strings.TrimSpace(name) == "" || strings.Contains(name, Separator) {
		return nil, fmt.Errorf("%w: namespace %q", ErrInvalidName, name)
	}

	e.mu.Lock()
	parent := e.currentLocked()
	ns := parent.children[name]
	if ns == nil {
		ns = newNamespace(name, parent)
		parent.children[name] = ns
	}
	e.stack = append(e.stack, ns)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.stack = e.stack[:len(e.stack)-1]
		e.mu.Unlock()
	}()

	if block != nil {
		block()
	}
	return ns, nil
}

// Rule регистрирует правило в текущем namespace.
func (e *Engine) Rule(def RuleDef) (*Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := newRule(e.currentLocked(), def)
	if err != nil {
		return nil, err
	}
	if r.desc == "" && e.desc != "" {
		r.desc = e.desc
		e.desc = ""
	}
	r.ns.addRule(r)
	return r, nil
}

// Lookup ищет задачу по имени относительно текущего namespace.
// Правила не применяются.
func (e *Engine) Lookup(name string) *Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolveLocked(e.currentLocked(), name)
}

// ResolveNamespace ищет namespace относительно текущего.
func (e *Engine) ResolveNamespace(name string) *Namespace {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentLocked().ResolveNamespace(name)
}

// MatchRule ищет правило для имени относительно текущего namespace.
func (e *Engine) MatchRule(name string) *Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentLocked().MatchRule(name)
}

// Resolve ищет задачу от корня: задача, затем правило.
// Возвращает ErrTaskNotFound, если ни то, ни другое не подошло.
func (e *Engine) Resolve(name string) (*Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t := e.resolveLocked(e.root, name); t != nil {
		return t, nil
	}
	t, err := e.attemptRuleLocked(e.root, name, 0)
	if err != nil {
		return nil, &TaskError{Task: name, Err: err}
	}
	if t == nil {
		return nil, &TaskError{Task: name, Err: ErrTaskNotFound}
	}
	return t, nil
}

// Invoke выполняет задачу по имени. Имя может содержать аргументы:
// "name[a,b]"; явные args имеют приоритет.
func (e *Engine) Invoke(ctx context.Context, name string, args ...string) error {
	name, inline := ParseTaskName(name)
	if len(args) == 0 {
		args = inline
	}

	t, err := e.Resolve(name)
	if err != nil {
		return err
	}
	return e.invoke(ctx, t, args)
}

// InvokeIn выполняет задачу, разрешая имя относительно ns так же,
// как пререквизит задачи из ns: задача, правило, существующий файл.
func (e *Engine) InvokeIn(ctx context.Context, ns *Namespace, name string, args ...string) error {
	name, inline := ParseTaskName(name)
	if len(args) == 0 {
		args = inline
	}
	if ns == nil {
		ns = e.root
	}

	t, err := e.lookupPrereq(ns, name)
	if err != nil {
		return &TaskError{Task: name, Chain: chainFrom(ctx).names(), Err: err}
	}
	return e.invoke(ctx, t, args)
}

// Tasks возвращает все зарегистрированные задачи, отсортированные по полному имени.
// Заглушки для существующих файлов не включаются.
func (e *Engine) Tasks() []*Task {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Task, 0, len(e.index))
	for _, t := range e.index {
		if !t.placeholder {
			out = append(out, t)
		}
	}
	sortTasks(out)
	return out
}

// ReenableAll сбрасывает состояние всех задач перед повторным запуском.
func (e *Engine) ReenableAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[*Task]bool)
	for _, t := range e.index {
		t.reenableLocked(false, seen)
		t.modTime = time.Time{}
	}
}

// resolveLocked ищет задачу по имени относительно ns.
//
// Имя с ":" ищется в плоском индексе по полному имени, затем
// относительно ns. Простое имя — в ns, затем в плоском индексе.
func (e *Engine) resolveLocked(ns *Namespace, name string) *Task {
	if strings.Contains(name, Separator) {
		if t := e.index[name]; t != nil {
			return t
		}
		nsPath, base := splitName(name)
		if target := ns.ResolveNamespace(nsPath); target != nil {
			return target.tasks[base]
		}
		return nil
	}

	if t := ns.tasks[name]; t != nil {
		return t
	}
	return e.index[name]
}

// lookupPrereq разрешает имя пререквизита: задача, правило,
// существующий файл. Иначе ErrUnknownTask.
func (e *Engine) lookupPrereq(ns *Namespace, name string) (*Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t := e.resolveLocked(ns, name); t != nil {
		return t, nil
	}
	t, err := e.attemptRuleLocked(ns, name, 0)
	if err != nil {
		return nil, err
	}
	if t != nil {
		return t, nil
	}
	if t := e.placeholderLocked(name); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
}

// emit рассылает событие всем listeners. Вызывается без удержания мьютекса.
func (e *Engine) emit(fn func(Listener)) {
	e.mu.Lock()
	listeners := e.cfg.Listeners
	e.mu.Unlock()

	for _, l := range listeners {
		fn(l)
	}
}
