package engine

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
}

// copyAction записывает в цель содержимое источника.
func copyAction(rec *recorder) Action {
	return func(_ context.Context, c *Call) error {
		rec.add(filepath.Base(c.Source) + " -> " + filepath.Base(c.Name))
		data, err := os.ReadFile(c.Source)
		if err != nil {
			return err
		}
		return os.WriteFile(c.Name, data, 0o644)
	}
}

func TestRule_WildcardMaterializes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.c"))

	e := newTestEngine(Config{})
	rec := &recorder{}

	_, err := e.Rule(RuleDef{Pattern: "%.o", Source: "%.c", Action: copyAction(rec)})
	require.NoError(t, err)

	target := filepath.Join(dir, "main.o")
	first, err := e.Resolve(target)
	require.NoError(t, err)

	assert.Equal(t, KindFile, first.Kind())
	assert.Equal(t, filepath.Join(dir, "main.c"), first.Source())
	assert.Equal(t, []string{filepath.Join(dir, "main.c")}, first.Prereqs())

	// Повторная материализация возвращает тот же экземпляр
	second, err := e.Resolve(target)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, e.Invoke(context.Background(), target))
	assert.Equal(t, []string{"main.c -> main.o"}, rec.list())
	assert.FileExists(t, target)
}

func TestRule_MissingSourceIsNotMatched(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(Config{})

	_, err := e.Rule(RuleDef{Pattern: "%.o", Source: "%.c"})
	require.NoError(t, err)

	_, err = e.Resolve(filepath.Join(dir, "main.o"))
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRule_Chained(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "parser.y"))

	e := newTestEngine(Config{})
	rec := &recorder{}

	_, _ = e.Rule(RuleDef{Pattern: "%.o", Source: "%.c", Action: copyAction(rec)})
	_, _ = e.Rule(RuleDef{Pattern: "%.c", Source: "%.y", Action: copyAction(rec)})

	require.NoError(t, e.Invoke(context.Background(), filepath.Join(dir, "parser.o")))
	assert.Equal(t, []string{"parser.y -> parser.c", "parser.c -> parser.o"}, rec.list())
}

func TestRule_ExtraPrereqs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.c"))

	e := newTestEngine(Config{})
	rec := &recorder{}

	_, _ = e.Task("headers", nil, record(rec, "headers"))
	_, _ = e.Rule(RuleDef{
		Pattern: "%.o",
		Source:  "%.c",
		Prereqs: []string{"headers"},
		Action:  copyAction(rec),
		Desc:    "compile",
	})

	target := filepath.Join(dir, "main.o")
	require.NoError(t, e.Invoke(context.Background(), target))
	assert.Equal(t, []string{"headers", "main.c -> main.o"}, rec.list())

	task, err := e.Resolve(target)
	require.NoError(t, err)
	assert.Equal(t, "compile", task.Description())
}

func TestRule_LastMatchWins(t *testing.T) {
	e := newTestEngine(Config{})

	_, _ = e.Rule(RuleDef{Pattern: ".o", Source: ".c"})
	wildcard, _ := e.Rule(RuleDef{Pattern: "%.o", Source: "%.s"})

	assert.Same(t, wildcard, e.MatchRule("main.o"))

	// Повторная регистрация шаблона сохраняет позицию в порядке
	suffix, _ := e.Rule(RuleDef{Pattern: ".o", Source: ".cc"})
	assert.Same(t, wildcard, e.MatchRule("main.o"))
	assert.Len(t, e.Root().Rules(), 2)
	assert.Equal(t, ".o", suffix.Pattern())
}

func TestRule_RegexpAndSourceFunc(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.js"))
	writeFile(t, filepath.Join(dir, "README.md"))

	e := newTestEngine(Config{})
	rec := &recorder{}

	_, err := e.Rule(RuleDef{
		Regexp: regexp.MustCompile(`^(.*)\.min\.js$`),
		Source: "$1.js",
		Action: copyAction(rec),
	})
	require.NoError(t, err)

	_, err = e.Rule(RuleDef{
		Pattern: ".html",
		SourceFunc: func(name string) string {
			return filepath.Join(filepath.Dir(name), strings.ToUpper("readme")+".md")
		},
		Action: copyAction(rec),
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Invoke(ctx, filepath.Join(dir, "app.min.js")))
	require.NoError(t, e.Invoke(ctx, filepath.Join(dir, "index.html")))

	assert.Equal(t, []string{"app.js -> app.min.js", "README.md -> index.html"}, rec.list())
}

func TestRule_InNamespace(t *testing.T) {
	dir := t.TempDir()
	proto := filepath.Join(dir, "api.proto")
	writeFile(t, proto)

	e := newTestEngine(Config{})
	rec := &recorder{}

	_, err := e.Namespace("gen", func() {
		_, _ = e.Rule(RuleDef{
			Pattern:    "%.pb",
			SourceFunc: func(string) string { return proto },
			Action: func(_ context.Context, c *Call) error {
				rec.add(c.Name + " <- " + filepath.Base(c.Source))
				return nil
			},
		})
	})
	require.NoError(t, err)

	require.NoError(t, e.Invoke(context.Background(), "gen:api.pb"))
	assert.Equal(t, []string{"api.pb <- api.proto"}, rec.list())

	task := e.Lookup("gen:api.pb")
	require.NotNil(t, task)
	assert.Equal(t, "gen", task.Namespace().FullName())
	assert.Nil(t, e.Lookup("api.pb"))
}

func TestRule_InvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		def  RuleDef
	}{
		{name: "empty", def: RuleDef{Source: ".c"}},
		{name: "two wildcards", def: RuleDef{Pattern: "%.%", Source: ".c"}},
		{name: "no source", def: RuleDef{Pattern: "%.o"}},
		{name: "both patterns", def: RuleDef{Pattern: "%.o", Regexp: regexp.MustCompile(`o$`), Source: ".c"}},
		{name: "bad source", def: RuleDef{Pattern: "%.o", Source: "%/%.c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(Config{})
			_, err := e.Rule(tt.def)
			assert.ErrorIs(t, err, ErrInvalidPattern)
		})
	}
}
