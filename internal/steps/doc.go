// Package steps содержит реализации шагов, из которых Forgefile собирает
// action задачи.
//
// # Интерфейс Step
//
// Все шаги реализуют интерфейс Step:
//
//	type Step interface {
//	    Type() string
//	    Execute(ctx context.Context, req *Request) (*Response, error)
//	}
//
// Конфигурация шага (Request.Config) уже отрендерена через шаблоны
// taskfile: {{ .Name }}, {{ .Source }}, {{ .Args }}, {{ .Env.X }}.
//
// # Registry
//
//	registry := steps.DefaultRegistry()  // shell, delay, http, mkdir
//	resp, err := registry.Run(ctx, "shell", steps.NewRequest("build", cfg))
//
// Config — map с типизированными геттерами (String, Int, Bool,
// StringMap, Duration).
//
// # Типы шагов
//
//   - shell (shell.go) — команда через "sh -c"; ненулевой код выхода
//     становится *CommandError с методом ExitCode
//   - delay (delay.go) — пауза с отменой по контексту
//   - http  (http.go)  — HTTP запрос; 4xx/5xx — *HTTPError
//   - mkdir (mkdir.go) — os.MkdirAll
//
// Все шаги уважают отмену контекста: при отмене возвращается ErrStepCancelled.
package steps
