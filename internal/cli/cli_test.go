package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/shaiso/Forge/internal/domain"
	"github.com/shaiso/Forge/internal/engine"
	"github.com/shaiso/Forge/internal/taskfile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const forgefile = `
default: build
tasks:
  - name: build
    desc: Build everything
    deps: [out/app.txt]
    steps:
      - shell: echo built
  - name: greet
    desc: Say hello
    steps:
      - shell: 'echo "hello {{ arg 0 | default "world" }} $GREETING"'
  - name: broken
    steps:
      - shell: exit 3
  - name: helper
    steps:
      - shell: echo helper
directories: [out]
files:
  - name: out/app.txt
    deps: [out]
    steps:
      - shell: "echo app > {{ .Name }}"
`

type result struct {
	code   int
	stdout string
	stderr string
}

// forge запускает Execute в каталоге с Forgefile.
func forge(t *testing.T, dir string, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, Options{
		Version: "test",
		Stdout:  &stdout,
		Stderr:  &stderr,
	})
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Forgefile.yaml"), []byte(forgefile), 0o644))
	return dir
}

func TestExecute_Default(t *testing.T) {
	dir := project(t)

	res := forge(t, dir)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "built\n", res.stdout)
	assert.Contains(t, res.stderr, "[build] echo built")

	data, err := os.ReadFile(filepath.Join(dir, "out", "app.txt"))
	require.NoError(t, err)
	assert.Equal(t, "app\n", string(data))

	// файл актуален: повторный запуск его не пересобирает
	res = forge(t, dir, "-q")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "built\n", res.stdout)
	assert.Empty(t, res.stderr)
}

func TestExecute_ArgsAndEnv(t *testing.T) {
	dir := project(t)
	t.Setenv("GREETING", "")

	res := forge(t, dir, "-q", "greet[bob]", "GREETING=hi")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "hello bob hi\n", res.stdout)
}

func TestExecute_Failure(t *testing.T) {
	dir := project(t)

	res := forge(t, dir, "-q", "broken")
	assert.Equal(t, 3, res.code)
	assert.Contains(t, res.stderr, "forge aborted!")
	assert.Contains(t, res.stderr, "(See full trace by running with --trace)")

	res = forge(t, dir, "-q", "--trace", "broken")
	assert.Equal(t, 3, res.code)
	assert.Contains(t, res.stderr, "Error chain:")
	assert.NotContains(t, res.stderr, "See full trace")
}

func TestExecute_UnknownTask(t *testing.T) {
	dir := project(t)

	res := forge(t, dir, "nope")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "forge aborted!")
	assert.Contains(t, res.stderr, "nope")
	assert.Empty(t, res.stdout)
}

func TestExecute_ListTasks(t *testing.T) {
	dir := project(t)

	res := forge(t, dir, "-T")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "build")
	assert.Contains(t, res.stdout, "Say hello")
	assert.NotContains(t, res.stdout, "helper")

	res = forge(t, dir, "-T", "gre")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "greet")
	assert.NotContains(t, res.stdout, "Build everything")
}

func TestExecute_ListTasksJSON(t *testing.T) {
	dir := project(t)

	res := forge(t, dir, "-T", "--json")
	require.Equal(t, 0, res.code, res.stderr)

	var got []TaskInfo
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))

	want := []TaskInfo{
		{Name: "build", Kind: "task", Description: "Build everything", Prereqs: []string{"out/app.txt"}},
		{Name: "greet", Kind: "task", Description: "Say hello"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_Prereqs(t *testing.T) {
	dir := project(t)

	res := forge(t, dir, "-P")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "PREREQUISITES")
	assert.Contains(t, res.stdout, "out/app.txt")

	// пререквизиты выводятся раньше зависимых задач
	assert.Less(t,
		bytes.Index([]byte(res.stdout), []byte("out/app.txt  ")),
		bytes.Index([]byte(res.stdout), []byte("build ")))
}

func TestExecute_Directory(t *testing.T) {
	dir := project(t)
	chdir(t, t.TempDir())
	t.Setenv("GREETING", "")

	res := forge(t, dir, "-q", "-C", dir, "greet")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "hello world \n", res.stdout)
}

func TestExecute_ForgefileInParent(t *testing.T) {
	dir := project(t)
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	chdir(t, sub)

	res := forge(t, dir, "-q", "out/app.txt")
	require.Equal(t, 0, res.code, res.stderr)
	assert.FileExists(t, filepath.Join(dir, "out", "app.txt"))
}

func TestExecute_ExplicitForgefile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile("tasks.yml", []byte("tasks:\n  - name: hi\n    steps:\n      - shell: echo hi\n"), 0o644))

	res := forge(t, dir, "-q", "-f", "tasks.yml", "hi")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "hi\n", res.stdout)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		setup   func(t *testing.T)
		wantErr string
	}{
		{
			name:    "no forgefile",
			wantErr: "Error: ",
		},
		{
			name:    "invalid log level",
			args:    []string{"--log-level", "loud"},
			wantErr: "log.level",
		},
		{
			name:    "watch with schedule",
			args:    []string{"--watch", "--schedule", "@hourly"},
			wantErr: "schedule",
		},
		{
			name: "invalid forgefile",
			setup: func(t *testing.T) {
				require.NoError(t, os.WriteFile("Forgefile.yaml", []byte("tasks:\n  - nme: x\n"), 0o644))
			},
			wantErr: "nme",
		},
		{
			name:    "unknown flag",
			args:    []string{"--nope"},
			wantErr: "unknown flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			chdir(t, dir)
			if tt.setup != nil {
				tt.setup(t)
			}

			res := forge(t, dir, tt.args...)
			assert.Equal(t, 1, res.code)
			assert.Contains(t, res.stderr, tt.wantErr)
		})
	}
}

func TestExecute_Version(t *testing.T) {
	res := forge(t, t.TempDir(), "--version")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "test")
}

func TestExecute_RunJSON(t *testing.T) {
	dir := project(t)

	res := forge(t, dir, "--json", "build")
	require.Equal(t, 0, res.code, res.stderr)

	var run domain.Run
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &run))
	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Equal(t, []string{"build"}, run.Targets)
	assert.Equal(t, domain.TriggerManual, run.Trigger)
	assert.Equal(t, 3, len(run.Tasks))

	// вывод шагов уходит в stderr
	assert.Contains(t, res.stderr, "built")
}

func TestRunSummary(t *testing.T) {
	run := domain.NewRun([]string{"build", "test"}, domain.TriggerWatch)
	run.MarkRunning()
	for _, st := range []domain.TaskStatus{domain.TaskStatusSucceeded, domain.TaskStatusSkipped, domain.TaskStatusSkipped} {
		tr := domain.NewTaskResult("x", "task")
		tr.Status = st
		run.Tasks = append(run.Tasks, tr)
	}
	run.MarkSucceeded()

	got := runSummary(run)
	assert.Contains(t, got, "forge: build test (watch) succeeded in ")
	assert.Contains(t, got, ", 3 tasks, 2 skipped")
	assert.NotContains(t, got, "failed")
}

func TestOutputFilter(t *testing.T) {
	e := engine.New(engine.Config{})
	f, err := taskfile.Parse([]byte(`
tasks: [lint]
directories: [build]
files:
  - name: app.bin
    steps:
      - shell: echo
  - name: README.md
`))
	require.NoError(t, err)
	require.NoError(t, taskfile.Register(e, f, taskfile.Options{}))

	ignore := outputFilter(e)

	assert.True(t, ignore("app.bin"))
	assert.True(t, ignore("./app.bin"))
	assert.True(t, ignore("build"))
	assert.True(t, ignore(filepath.Join("build", "x.o")))
	assert.False(t, ignore("README.md"))
	assert.False(t, ignore("lint"))
	assert.False(t, ignore("main.go"))
	assert.False(t, ignore("buildx"))
}
