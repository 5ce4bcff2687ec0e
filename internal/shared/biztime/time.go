// Package biztime provides business timezone and calendar-day arithmetic.
// All storage and transport use UTC. The business timezone is only used to
// interpret date-only inputs such as an acceptance deadline.
package biztime

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	// DefaultTimezone is the default business timezone.
	DefaultTimezone = "UTC"

	// DateLayout is the layout of date-only inputs.
	DateLayout = "2006-01-02"

	// StoragePrecision is the resolution stored timestamps are kept at.
	// DATETIME columns hold whole seconds and MySQL rounds any fraction.
	StoragePrecision = time.Second

	day = 24 * time.Hour
)

var (
	bizLocation     *time.Location
	bizLocationOnce sync.Once
	initErr         error
)

// Init initializes the business timezone. Should be called once at startup.
func Init(tz string) error {
	bizLocationOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		bizLocation, initErr = time.LoadLocation(tz)
	})
	return initErr
}

// Location returns the business timezone location, initializing the default
// on first use.
func Location() *time.Location {
	if bizLocation == nil {
		if err := Init(""); err != nil {
			panic(fmt.Sprintf("biztime: failed to auto-initialize with default timezone: %v", err))
		}
	}
	return bizLocation
}

// NowUTC returns current time in UTC at StoragePrecision.
func NowUTC() time.Time {
	return ToStorage(time.Now())
}

// ToStorage returns t in UTC truncated to StoragePrecision, so a value
// compares equal to itself after a database round trip.
func ToStorage(t time.Time) time.Time {
	return t.UTC().Truncate(StoragePrecision)
}

// ParseDate parses a date (YYYY-MM-DD) as business timezone midnight or a
// full RFC3339 timestamp, returning UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(DateLayout, s, Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format %q: %w", s, err)
	}
	return t.UTC(), nil
}

// DaysUntil returns the whole number of days from now to until, rounded
// toward negative infinity. A deadline later today is 0; one that already
// passed is negative.
func DaysUntil(now, until time.Time) int {
	return int(math.Floor(float64(until.Sub(now)) / float64(day)))
}

// FormatDate formats t as a business-timezone date.
func FormatDate(t time.Time) string {
	return t.In(Location()).Format(DateLayout)
}
