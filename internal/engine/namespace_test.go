package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespace_Resolve(t *testing.T) {
	e := newTestEngine(Config{})

	var foo, bar, baz *Namespace
	var fromBaz, fromFoo *Namespace

	foo, err := e.Namespace("foo", func() {
		bar, _ = e.Namespace("bar", func() {
			baz, _ = e.Namespace("baz", func() {
				fromBaz = e.ResolveNamespace("foo")
			})
		})
		fromFoo = e.ResolveNamespace("bar:baz")
	})
	require.NoError(t, err)

	assert.Same(t, foo, fromBaz)
	assert.Same(t, baz, fromFoo)
	assert.Same(t, bar, baz.Parent())

	assert.Equal(t, "foo:bar", baz.Path())
	assert.Equal(t, "foo:bar:baz", baz.FullName())
	assert.Equal(t, "", e.Root().FullName())
	assert.True(t, e.Root().IsRoot())

	assert.Same(t, baz, e.Root().ResolveNamespace("foo:bar:baz"))
	assert.Nil(t, e.Root().ResolveNamespace("nope"))
	assert.Same(t, e.Root(), e.Root().ResolveNamespace(""))
}

func TestNamespace_RestoresCurrent(t *testing.T) {
	e := newTestEngine(Config{})

	assert.Panics(t, func() {
		_, _ = e.Namespace("broken", func() {
			panic("declaration failed")
		})
	})
	assert.Same(t, e.Root(), e.Current())

	_, err := e.Namespace("ok", func() {
		_, _ = e.Task("inner", nil, nil)
	})
	require.NoError(t, err)
	assert.Same(t, e.Root(), e.Current())

	task := e.Lookup("ok:inner")
	require.NotNil(t, task)
	assert.Equal(t, "ok:inner", task.FullName())
	assert.Equal(t, "inner", task.Name())
}

func TestNamespace_Reopen(t *testing.T) {
	e := newTestEngine(Config{})

	first, _ := e.Namespace("db", func() {
		_, _ = e.Task("migrate", nil, nil)
	})
	second, _ := e.Namespace("db", func() {
		_, _ = e.Task("seed", nil, nil)
	})

	assert.Same(t, first, second)
	assert.Len(t, e.Root().Children(), 1)
	assert.NotNil(t, e.Lookup("db:migrate"))
	assert.NotNil(t, e.Lookup("db:seed"))
}

func TestNamespace_InvalidName(t *testing.T) {
	e := newTestEngine(Config{})

	for _, name := range []string{"", "  ", "a:b"} {
		_, err := e.Namespace(name, nil)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestTask_RegisterEnhances(t *testing.T) {
	e := newTestEngine(Config{})

	e.Desc("Build all")
	first, err := e.Task("build", []string{"a"}, nil)
	require.NoError(t, err)

	second, err := e.Task("build", []string{"b"}, nil, Concurrency(3))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, []string{"a", "b"}, first.Prereqs())
	assert.Equal(t, 3, first.Concurrency())
	assert.Equal(t, "Build all", first.Description())

	// Описание относится только к следующей задаче
	other, _ := e.Task("other", nil, nil)
	assert.Empty(t, other.Description())

	_, err = e.Task("", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = e.Task("a:b", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestParseTaskName(t *testing.T) {
	tests := []struct {
		in   string
		name string
		args []string
	}{
		{in: "build", name: "build"},
		{in: "build[]", name: "build"},
		{in: "db:migrate[up,3]", name: "db:migrate", args: []string{"up", "3"}},
		{in: "echo[a]", name: "echo", args: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, args := ParseTaskName(tt.in)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestTasks_Sorted(t *testing.T) {
	e := newTestEngine(Config{})

	_, _ = e.Task("zeta", nil, nil)
	_, _ = e.Task("alpha", nil, nil)
	_, _ = e.Namespace("mid", func() {
		_, _ = e.Task("task", nil, nil)
	})

	var names []string
	for _, task := range e.Tasks() {
		names = append(names, task.FullName())
	}
	assert.Equal(t, []string{"alpha", "mid:task", "zeta"}, names)
}

func TestEngine_InvokeInResolvesRelative(t *testing.T) {
	e := newTestEngine(Config{})

	var ran []string
	record := func(_ context.Context, c *Call) error {
		ran = append(ran, c.Task.FullName()+c.Args[0])
		return nil
	}

	_, err := e.Task("seed", nil, record)
	require.NoError(t, err)
	db, err := e.Namespace("db", func() {
		_, err := e.Task("seed", nil, record)
		require.NoError(t, err)
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.InvokeIn(ctx, db, "seed[db]"))
	require.NoError(t, e.InvokeIn(ctx, nil, "seed", "root"))
	assert.Equal(t, []string{"db:seeddb", "seedroot"}, ran)

	err = e.InvokeIn(ctx, db, "nope")
	assert.ErrorIs(t, err, ErrUnknownTask)
}
