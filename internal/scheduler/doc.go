// Package scheduler повторяет запуск целей по cron-расписанию (--schedule).
//
// Структура:
//   - scheduler.go — Scheduler (Start, Tick)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    CronExpr: "*/5 * * * *",
//	    Targets:  targets,
//	    Runner:   r,
//	    Logger:   logger,
//	})
//	if err != nil {
//	    return err
//	}
//	return sched.Start(ctx)
//
// Перед каждым запуском состояние всех задач сбрасывается
// (Runner.Rerun), так что файловые задачи заново проверяют mtime.
package scheduler
