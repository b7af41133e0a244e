// Package runner — верхний уровень запуска задач.
//
// Runner разбирает аргументы командной строки (цели "ns:task[a,b]" и
// пары KEY=value), выполняет цели по порядку через engine.Engine и
// ведёт запись domain.Run: статус, задачи, код выхода.
//
// Один Runner используется и для разового запуска, и для повторных
// (watch, scheduler): между запусками состояние задач сбрасывается
// через Engine.ReenableAll.
package runner
