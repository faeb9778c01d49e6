package gtfs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidScheduleTime indicates a malformed gtfs HH:MM:SS time string
var ErrInvalidScheduleTime = errors.New("invalid gtfs schedule time")

// ParseScheduleTime converts a gtfs HH:MM:SS string to seconds after midnight of
// the service date. Hours are unbounded so times like "25:15:00" describe service
// running past midnight into the next day.
func ParseScheduleTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q requires three components", ErrInvalidScheduleTime, s)
	}
	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("%w: %q has non numeric hours", ErrInvalidScheduleTime, s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q has non numeric minutes", ErrInvalidScheduleTime, s)
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q has non numeric seconds", ErrInvalidScheduleTime, s)
	}
	if hours < 0 || minutes < 0 || seconds < 0 {
		return 0, fmt.Errorf("%w: %q has negative component", ErrInvalidScheduleTime, s)
	}
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("%w: %q has out of range minutes or seconds", ErrInvalidScheduleTime, s)
	}
	return hours*3600 + minutes*60 + seconds, nil
}

// FormatScheduleTime is the inverse of ParseScheduleTime. Hours may exceed 24.
func FormatScheduleTime(scheduleSeconds int) string {
	hours := scheduleSeconds / 3600
	minutes := (scheduleSeconds % 3600) / 60
	seconds := scheduleSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// ScheduleTimeOn produces the wall-clock time for scheduleSeconds on baseDate's
// calendar day, in baseDate's location. Hours beyond 24 roll over to following days,
// so 25:15:00 on day D lands on D+1 at 01:15:00 local time.
func ScheduleTimeOn(scheduleSeconds int, baseDate time.Time) time.Time {
	hours := scheduleSeconds / 3600
	minutes := (scheduleSeconds % 3600) / 60
	seconds := scheduleSeconds % 60
	dayOffset := hours / 24
	return time.Date(baseDate.Year(), baseDate.Month(), baseDate.Day()+dayOffset,
		hours%24, minutes, seconds, 0, baseDate.Location())
}

// ScheduleTimeStringOn parses a gtfs HH:MM:SS string and places it on baseDate's
// calendar day. Fails if the time string is malformed.
func ScheduleTimeStringOn(s string, baseDate time.Time) (time.Time, error) {
	scheduleSeconds, err := ParseScheduleTime(s)
	if err != nil {
		return time.Time{}, err
	}
	return ScheduleTimeOn(scheduleSeconds, baseDate), nil
}

// SecondsIntoServiceDay returns how many seconds past local midnight at falls
func SecondsIntoServiceDay(at time.Time) int {
	return at.Hour()*3600 + at.Minute()*60 + at.Second()
}

// Get12AmTime returns midnight of date's calendar day in date's location
func Get12AmTime(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

const gtfsDateLayout = "20060102"

// ParseDate converts a gtfs YYYYMMDD string to midnight of that day in loc.
// loc should be the transit agency's operating timezone, never UTC.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	result, err := time.ParseInLocation(gtfsDateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse gtfs date %q: %w", s, err)
	}
	return result, nil
}

// FormatDate converts a date to the gtfs YYYYMMDD format
func FormatDate(date time.Time) string {
	return date.Format(gtfsDateLayout)
}
