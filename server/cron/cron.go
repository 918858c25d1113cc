package cron

import (
	"time"

	"github.com/go-co-op/gocron"
)

// NewScheduler returns a scheduler running in loc, UTC when nil. Job tags must
// be unique.
func NewScheduler(loc *time.Location) *gocron.Scheduler {
	if loc == nil {
		loc = time.UTC
	}

	scheduler := gocron.NewScheduler(loc)
	scheduler.TagsUnique()

	return scheduler
}

// Schedule runs job on the standard five field cron expression.
func Schedule(scheduler *gocron.Scheduler, tag, cronExpression string, job func()) error {
	_, err := scheduler.Cron(cronExpression).Tag(tag).Do(job)
	return err
}
