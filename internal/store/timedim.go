package store

import "time"

// timeDimRow is one calendar row of dim_time.
type timeDimRow struct {
	Date       time.Time
	Year       int
	Quarter    int
	Month      int
	Week       int // ISO 8601 week number
	DayOfWeek  int // 0 = Sunday .. 6 = Saturday
	DayOfMonth int
	IsWeekend  bool
}

// newTimeDimRow derives the calendar attributes of a UTC date.
func newTimeDimRow(date time.Time) timeDimRow {
	_, week := date.ISOWeek()
	dow := int(date.Weekday())
	return timeDimRow{
		Date:       date,
		Year:       date.Year(),
		Quarter:    (int(date.Month())-1)/3 + 1,
		Month:      int(date.Month()),
		Week:       week,
		DayOfWeek:  dow,
		DayOfMonth: date.Day(),
		IsWeekend:  dow == 0 || dow == 6,
	}
}
