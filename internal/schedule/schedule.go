package schedule

import (
	"context"
	"time"
)

// UntilNextMidnight returns how long until the next local midnight in loc.
func UntilNextMidnight(now time.Time, loc *time.Location) time.Duration {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return next.Sub(now)
}

// UntilNextRun returns how long until the next daily run instant, which is
// lead before local midnight. If today's instant has already passed, the
// result points at tomorrow's.
func UntilNextRun(now time.Time, loc *time.Location, lead time.Duration) time.Duration {
	wait := UntilNextMidnight(now, loc) - lead
	if wait <= 0 {
		wait += 24 * time.Hour
	}
	return wait
}

// Loop invokes fn once per day, lead before each local midnight, until ctx is
// cancelled. Running before the day rolls over keeps the export on the day it
// summarizes.
func Loop(ctx context.Context, loc *time.Location, lead time.Duration, fn func(time.Time)) {
	for {
		timer := time.NewTimer(UntilNextRun(time.Now(), loc, lead))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case now := <-timer.C:
			fn(now)
		}
	}
}
