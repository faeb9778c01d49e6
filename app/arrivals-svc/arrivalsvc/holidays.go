package arrivalsvc

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/es"
)

// transitHolidayCalendar holds the holidays observed by the agency, used to flag
// reduced service days in responses
type transitHolidayCalendar struct {
	calendar *cal.BusinessCalendar
}

// makeTransitHolidayCalendar builds transitHolidayCalendar with the Spanish
// national holidays
func makeTransitHolidayCalendar() *transitHolidayCalendar {
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(es.Holidays...)
	return &transitHolidayCalendar{calendar: calendar}
}

// isHoliday returns true if at is on a holiday observed by the transit agency
func (t *transitHolidayCalendar) isHoliday(at time.Time) bool {
	_, observed, _ := t.calendar.IsHoliday(at)
	return observed
}
