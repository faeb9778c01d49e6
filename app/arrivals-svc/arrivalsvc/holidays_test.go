package arrivalsvc

import (
	"testing"
	"time"
)

func Test_isHoliday(t *testing.T) {
	calendar := makeTransitHolidayCalendar()
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"new years day", time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC), true},
		{"christmas", time.Date(2023, 12, 25, 12, 0, 0, 0, time.UTC), true},
		{"ordinary tuesday", time.Date(2023, 5, 9, 12, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calendar.isHoliday(tt.at); got != tt.want {
				t.Errorf("isHoliday(%v) = %v, expected %v", tt.at, got, tt.want)
			}
		})
	}
}
