// Package watch перезапускает цели при изменении файлов (--watch).
//
// Каталоги отслеживаются рекурсивно через fsnotify. События
// объединяются в окне Debounce, затем состояние задач сбрасывается
// и цели выполняются заново. События, накопившиеся за время запуска,
// отбрасываются.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shaiso/Forge/internal/domain"
	"github.com/shaiso/Forge/internal/runner"
)

// DefaultIgnore — каталоги, которые не отслеживаются.
var DefaultIgnore = []string{".git", ".hg", ".svn", "node_modules", ".idea", ".vscode"}

// Rerunner выполняет цели заново со сброшенным состоянием задач.
type Rerunner interface {
	Rerun(ctx context.Context, targets []runner.Target, trigger domain.Trigger) (*domain.Run, error)
}

// Config — конфигурация Watcher.
type Config struct {
	// Dir — корень отслеживания.
	Dir string

	Targets []runner.Target
	Runner  Rerunner

	// Debounce — окно объединения событий (default: 200ms).
	Debounce time.Duration

	// IgnoreDirs — имена каталогов, пропускаемых при обходе (default: DefaultIgnore).
	IgnoreDirs []string

	// Ignore отфильтровывает отдельные пути, например выходные файлы задач.
	Ignore func(path string) bool

	// OnRun вызывается после каждого перезапуска.
	OnRun func(run *domain.Run, changed []string, err error)

	Logger *slog.Logger
}

// Watcher — цикл отслеживания изменений.
type Watcher struct {
	fsw      *fsnotify.Watcher
	cfg      Config
	logger   *slog.Logger
	watching map[string]bool
}

// New создаёт Watcher и добавляет каталоги Dir рекурсивно.
func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 200 * time.Millisecond
	}
	if cfg.IgnoreDirs == nil {
		cfg.IgnoreDirs = DefaultIgnore
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "watch"),
		watching: make(map[string]bool),
	}
	if err := w.addTree(cfg.Dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Dirs возвращает отслеживаемые каталоги, отсортированные.
func (w *Watcher) Dirs() []string {
	dirs := make([]string, 0, len(w.watching))
	for d := range w.watching {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// addTree добавляет каталог и все вложенные, кроме игнорируемых.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && slices.Contains(w.cfg.IgnoreDirs, d.Name()) {
			return filepath.SkipDir
		}
		if w.watching[path] {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.watching[path] = true
		return nil
	})
}

// Run обрабатывает события до отмены ctx. Закрывает fsnotify watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.logger.Info("watching for changes", "dirs", len(w.watching), "targets", len(w.cfg.Targets))

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changed []string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.handle(ev) {
				continue
			}
			if !slices.Contains(changed, ev.Name) {
				changed = append(changed, ev.Name)
			}
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-fire:
			fire = nil
			run, err := w.rerun(ctx, changed)
			w.drain()
			if w.cfg.OnRun != nil {
				w.cfg.OnRun(run, changed, err)
			}
			changed = nil
		}
	}
}

// handle сообщает, должно ли событие вызвать перезапуск.
// Новые каталоги добавляются в отслеживание.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	if slices.Contains(w.cfg.IgnoreDirs, filepath.Base(ev.Name)) {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if err := w.addTree(ev.Name); err != nil {
			w.logger.Debug("watch new path", "path", ev.Name, "error", err)
		}
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		delete(w.watching, ev.Name)
	}

	if w.cfg.Ignore != nil && w.cfg.Ignore(ev.Name) {
		return false
	}
	w.logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
	return true
}

func (w *Watcher) rerun(ctx context.Context, changed []string) (*domain.Run, error) {
	w.logger.Info("files changed, rerunning", "changed", changed)

	run, err := w.cfg.Runner.Rerun(ctx, w.cfg.Targets, domain.TriggerWatch)
	if err != nil {
		w.logger.Warn("watch run failed", "error", err)
	}
	return run, err
}

// drain отбрасывает события, накопившиеся во время запуска.
func (w *Watcher) drain() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				_ = w.addTree(ev.Name)
			}
		default:
			return
		}
	}
}
