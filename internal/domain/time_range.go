package domain

import (
	"fmt"
	"time"
)

// TimeRange is a booking window with start strictly before end.
type TimeRange struct {
	start time.Time
	end   time.Time
}

func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, fmt.Errorf("%w: start and end are required", ErrInvalidTimeRange)
	}
	if !start.Before(end) {
		return TimeRange{}, fmt.Errorf("%w: %s >= %s", ErrInvalidTimeRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeRange{start: start, end: end}, nil
}

func (r TimeRange) Start() time.Time        { return r.start }
func (r TimeRange) End() time.Time          { return r.end }
func (r TimeRange) Duration() time.Duration { return r.end.Sub(r.start) }

// DurationMinutes returns the whole minutes in the range, truncated.
func (r TimeRange) DurationMinutes() int64 {
	return int64(r.Duration() / time.Minute)
}

// DurationHours returns the exact length in hours.
func (r TimeRange) DurationHours() float64 {
	return r.Duration().Hours()
}

// BillableHours rounds the duration up to the next whole hour, minimum 1.
func (r TimeRange) BillableHours() int64 {
	d := r.Duration()
	hours := int64(d / time.Hour)
	if d%time.Hour > 0 {
		hours++
	}
	if hours < 1 {
		hours = 1
	}
	return hours
}

func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.start) && t.Before(r.end)
}

func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.start.Before(other.end) && other.start.Before(r.end)
}

func (r TimeRange) Equals(other TimeRange) bool {
	return r.start.Equal(other.start) && r.end.Equal(other.end)
}
