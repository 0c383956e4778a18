package crontab

import (
	"time"

	"github.com/robfig/cron/v3"
)

// CronSchedule adapts e to cron.Schedule so entries can be registered with
// a robfig/cron runner. @reboot entries never fire through it.
func CronSchedule(e *Entry) cron.Schedule { return entrySchedule{e} }

type entrySchedule struct{ e *Entry }

// Next returns the first activation strictly after t, or the zero time if
// there is none.
func (s entrySchedule) Next(t time.Time) time.Time {
	next, ok := s.e.Next(floorMinute(t).Add(time.Minute))
	if !ok {
		return time.Time{}
	}
	return next
}
