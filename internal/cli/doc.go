// Package cli реализует командную строку forge.
//
// Один вызов forge проходит этапы:
//
//  1. конфигурация: флаги, переменные FORGE_* и файл .forge (viper);
//  2. логгер (telemetry.SetupLogger);
//  3. поиск и загрузка Forgefile, регистрация задач в engine.Engine;
//  4. вывод списка задач (-T, -P) или выполнение целей через runner.Runner.
//
// В режимах --watch и --schedule forge работает до сигнала, повторяя
// цели при изменении файлов или по cron-расписанию. С --metrics-addr
// в этих режимах поднимается HTTP-сервер с /metrics.
//
// Данные (списки, JSON-итоги) выводятся в stdout, ошибки — в stderr:
//
//	forge -T --json | jq '.[].name'
package cli
