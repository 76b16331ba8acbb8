package timewin

import "time"

// Window bounds one local calendar day in both epoch seconds and epoch
// milliseconds. EndSec is the last second of the day; EndMs is the last
// millisecond.
type Window struct {
	StartSec int64
	EndSec   int64
	StartMs  int64
	EndMs    int64
	ISODate  string
}

// Resolve computes the day window containing now in loc.
func Resolve(now time.Time, loc *time.Location) Window {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	next := start.AddDate(0, 0, 1)
	return Window{
		StartSec: start.Unix(),
		EndSec:   next.Unix() - 1,
		StartMs:  start.UnixMilli(),
		EndMs:    next.UnixMilli() - 1,
		ISODate:  start.Format("2006-01-02"),
	}
}
