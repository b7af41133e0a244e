package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	writeFile(t, path)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func noop(context.Context, *Call) error { return nil }

func TestFileTask_IsNeeded(t *testing.T) {
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	tests := []struct {
		name  string
		setup func(t *testing.T, dir string, e *Engine) *Task
		want  bool
	}{
		{
			name: "missing file with action",
			setup: func(t *testing.T, dir string, e *Engine) *Task {
				task, _ := e.File(filepath.Join(dir, "out"), nil, noop)
				return task
			},
			want: true,
		},
		{
			name: "existing file without prereqs",
			setup: func(t *testing.T, dir string, e *Engine) *Task {
				touch(t, filepath.Join(dir, "out"), base)
				task, _ := e.File(filepath.Join(dir, "out"), nil, noop)
				return task
			},
			want: false,
		},
		{
			name: "newer file prereq",
			setup: func(t *testing.T, dir string, e *Engine) *Task {
				touch(t, filepath.Join(dir, "out"), base)
				touch(t, filepath.Join(dir, "in"), base.Add(time.Minute))
				task, _ := e.File(filepath.Join(dir, "out"), []string{filepath.Join(dir, "in")}, noop)
				return task
			},
			want: true,
		},
		{
			name: "older and equal file prereqs",
			setup: func(t *testing.T, dir string, e *Engine) *Task {
				touch(t, filepath.Join(dir, "out"), base)
				touch(t, filepath.Join(dir, "old"), base.Add(-time.Minute))
				touch(t, filepath.Join(dir, "same"), base)
				_, _ = e.File(filepath.Join(dir, "same"), nil, nil)
				task, _ := e.File(filepath.Join(dir, "out"),
					[]string{filepath.Join(dir, "old"), filepath.Join(dir, "same")}, noop)
				return task
			},
			want: false,
		},
		{
			name: "non-file prereq",
			setup: func(t *testing.T, dir string, e *Engine) *Task {
				touch(t, filepath.Join(dir, "out"), base)
				_, _ = e.Task("generate", nil, noop)
				task, _ := e.File(filepath.Join(dir, "out"), []string{"generate"}, noop)
				return task
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(Config{})
			task := tt.setup(t, t.TempDir(), e)

			got, err := task.IsNeeded()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileTask_NoFileNoAction(t *testing.T) {
	e := newTestEngine(Config{})
	path := filepath.Join(t.TempDir(), "ghost")

	task, err := e.File(path, nil, nil)
	require.NoError(t, err)

	_, err = task.IsNeeded()
	require.ErrorIs(t, err, ErrNoFileNoAction)

	err = e.Invoke(context.Background(), path)
	require.ErrorIs(t, err, ErrNoFileNoAction)
}

func TestFileTask_StatError(t *testing.T) {
	denied := errors.New("permission denied")
	e := newTestEngine(Config{
		Stat: func(string) (fs.FileInfo, error) { return nil, denied },
	})

	task, _ := e.File("out", nil, noop)
	_, err := task.IsNeeded()
	require.ErrorIs(t, err, ErrFileStat)
}

func TestFileTask_AlwaysMake(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	src := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	touch(t, src, base)
	touch(t, out, base.Add(time.Minute))

	define := func(e *Engine, rec *recorder) {
		_, _ = e.File(out, []string{src}, record(rec, "build"))
	}

	// Без флага: ничего не изменилось — action не выполняется
	rec := &recorder{}
	e := newTestEngine(Config{})
	define(e, rec)
	require.NoError(t, e.Invoke(context.Background(), out))
	assert.Empty(t, rec.list())

	// С флагом: action выполняется всегда
	rec = &recorder{}
	e = newTestEngine(Config{AlwaysMake: true})
	define(e, rec)
	require.NoError(t, e.Invoke(context.Background(), out))
	assert.Equal(t, []string{"build"}, rec.list())
}

func TestFileTask_RebuildAfterPrereqChange(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	src := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	touch(t, src, base)

	rec := &recorder{}
	e := newTestEngine(Config{})
	task, _ := e.File(out, []string{src}, func(_ context.Context, c *Call) error {
		rec.add("build")
		return os.WriteFile(c.Name, []byte("x"), 0o644)
	})

	ctx := context.Background()
	require.NoError(t, task.Invoke(ctx))
	assert.False(t, task.ModTime().IsZero())

	// Не изменилось — пропуск
	e.ReenableAll()
	require.NoError(t, task.Invoke(ctx))
	assert.Equal(t, 1, rec.count("build"))

	// Источник стал новее — пересборка
	touch(t, src, time.Now().Add(time.Minute))
	e.ReenableAll()
	require.NoError(t, task.Invoke(ctx))
	assert.Equal(t, 2, rec.count("build"))
}

func TestDirectoryTask_DefaultAction(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	e := newTestEngine(Config{})

	task, err := e.Directory(dir, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, KindDirectory, task.Kind())
	assert.True(t, task.HasAction())

	require.NoError(t, e.Invoke(context.Background(), dir))
	assert.DirExists(t, dir)

	// Существующий каталог без пререквизитов не нужен
	task.Reenable(false)
	needed, err := task.IsNeeded()
	require.NoError(t, err)
	assert.False(t, needed)
}

func TestFileTask_PlaceholderNotListed(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input")
	touch(t, src, time.Now())

	e := newTestEngine(Config{})
	_, _ = e.Task("use", []string{src}, noop)
	require.NoError(t, e.Invoke(context.Background(), "use"))

	require.Len(t, e.Tasks(), 1)
	assert.Equal(t, "use", e.Tasks()[0].Name())
}
