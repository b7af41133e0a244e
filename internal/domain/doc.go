// Package domain содержит записи о запусках: Run, TaskResult, Schedule.
package domain
