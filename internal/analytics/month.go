package analytics

import (
	"time"

	"stocktrack/internal/domain"
)

// month is a year-month bucket key for aggregating movement dates.
type month struct {
	year int
	mon  time.Month
}

func monthOf(d domain.Date) month {
	return month{year: d.Year, mon: d.Month}
}

func (m month) add(n int) month {
	t := time.Date(m.year, m.mon+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return month{year: t.Year(), mon: t.Month()}
}
