// Package engine содержит ядро Forge: реестр namespace и задач,
// правила, обход графа зависимостей и протокол завершения задач.
//
// Включает:
//   - engine.go    — Engine: владелец всего состояния, API регистрации
//   - namespace.go — дерево namespace, разрешение имён и правил
//   - task.go      — Task / FileTask / DirectoryTask, состояние выполнения
//   - file.go      — проверка устаревания файловых задач по mtime
//   - pattern.go   — шаблоны правил (суффикс, %, regexp)
//   - rule.go      — правила и материализация файловых задач
//   - call.go      — протокол завершения: sync, async, Go()
//   - invoke.go    — обход пререквизитов, concurrency, обнаружение циклов
//   - graph.go     — статическое представление графа для вывода
//   - listener.go  — события выполнения для логирования и метрик
//
// Всё состояние принадлежит одному Engine, глобальных реестров нет:
// несколько Engine в одном процессе независимы друг от друга.
package engine
