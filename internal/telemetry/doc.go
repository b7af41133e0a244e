// Package telemetry обеспечивает наблюдаемость forge.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики (engine.Listener) и /metrics endpoint
//
// Логи пишутся в stderr, чтобы не смешиваться с выводом команд задач.
// Метрики экспортируются только в долгоживущих режимах (--watch, --schedule).
package telemetry
