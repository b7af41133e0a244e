package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// StatFunc получает сведения о файле. По умолчанию os.Stat.
type StatFunc func(name string) (fs.FileInfo, error)

// IsNeeded сообщает, нужно ли выполнять action задачи.
//
// Обычная задача нужна всегда, пока не выполнена. Файловая — если файла
// нет, либо какой-то пререквизит не файловый или новее файла.
func (t *Task) IsNeeded() (bool, error) {
	if t.State() == StateDone {
		return false, nil
	}
	return t.engine.isNeeded(t)
}

func (e *Engine) isNeeded(t *Task) (bool, error) {
	if !t.kind.IsFile() {
		return true, nil
	}
	if e.cfg.AlwaysMake {
		return t.action != nil, nil
	}

	modTime, exists, err := e.statModTime(t.name)
	if err != nil {
		return false, err
	}
	if !exists {
		if t.action == nil {
			return false, fmt.Errorf("%w: %s", ErrNoFileNoAction, t.name)
		}
		return true, nil
	}

	e.mu.Lock()
	t.modTime = modTime
	prereqs := append([]string(nil), t.prereqs...)
	e.mu.Unlock()

	for _, p := range prereqs {
		name, _ := ParseTaskName(p)
		pt, err := e.lookupPrereq(t.ns, name)
		if err != nil {
			return false, err
		}
		if !pt.kind.IsFile() {
			return true, nil
		}
		pm, err := e.prereqModTime(pt)
		if err != nil {
			return false, err
		}
		if pm.After(modTime) {
			return true, nil
		}
	}
	return false, nil
}

// prereqModTime возвращает время модификации файлового пререквизита,
// читая его с диска, если оно ещё не известно.
func (e *Engine) prereqModTime(t *Task) (time.Time, error) {
	e.mu.Lock()
	cached := t.modTime
	e.mu.Unlock()
	if !cached.IsZero() {
		return cached, nil
	}

	modTime, exists, err := e.statModTime(t.name)
	if err != nil || !exists {
		return time.Time{}, err
	}

	e.mu.Lock()
	t.modTime = modTime
	e.mu.Unlock()
	return modTime, nil
}

// refreshModTime перечитывает время модификации после action.
// Если action не создал файл, используется время завершения.
func (e *Engine) refreshModTime(t *Task) error {
	modTime, exists, err := e.statModTime(t.name)
	if err != nil {
		return err
	}
	if !exists {
		modTime = time.Now()
	}

	e.mu.Lock()
	t.modTime = modTime
	e.mu.Unlock()
	return nil
}

// statModTime различает "файла нет" и прочие ошибки файловой системы.
func (e *Engine) statModTime(name string) (time.Time, bool, error) {
	info, err := e.cfg.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("%w: %s: %v", ErrFileStat, name, err)
	}
	return info.ModTime(), true, nil
}

func (e *Engine) fileExists(name string) bool {
	_, exists, err := e.statModTime(name)
	return err == nil && exists
}

// placeholderLocked регистрирует файловую задачу-заглушку для
// существующего файла, не описанного ни задачей, ни правилом.
func (e *Engine) placeholderLocked(name string) *Task {
	if t := e.root.tasks[name]; t != nil {
		return t
	}
	if !e.fileExists(name) {
		return nil
	}

	t := &Task{
		engine:      e,
		ns:          e.root,
		kind:        KindFile,
		name:        name,
		concurrency: DefaultConcurrency,
		placeholder: true,
		state:       StateNotStarted,
	}
	e.root.tasks[name] = t
	e.index[name] = t
	return t
}

// mkdirAction — action по умолчанию для задачи-каталога.
func mkdirAction(_ context.Context, c *Call) error {
	return os.MkdirAll(c.Name, 0o755)
}
