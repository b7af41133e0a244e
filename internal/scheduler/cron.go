package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Выражение --schedule: пять полей ("*/15 * * * *"), дескриптор
// ("@hourly", "@every 30s"), с необязательным префиксом CRON_TZ=.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseCron разбирает выражение --schedule.
func ParseCron(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// ValidateCronExpr проверяет выражение без построения расписания.
func ValidateCronExpr(expr string) error {
	_, err := ParseCron(expr)
	return err
}

// CalculateNextDue — ближайший срок после from.
func CalculateNextDue(expr string, from time.Time) (time.Time, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}
