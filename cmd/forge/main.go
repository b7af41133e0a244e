// Forge — запуск задач из Forgefile.yaml.
//
// Использование:
//
//	forge [flags] [task[args]...] [KEY=value...]
//
// Без целей выполняется задача по умолчанию (default: в Forgefile
// или задача "default"). Флаги -T и -P выводят список задач.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Forge/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], cli.Options{
		Version: version,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	})
	stop()
	os.Exit(code)
}
