package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ClockTime is a time of day in whole minutes since midnight.
type ClockTime int

const minutesPerDay = 24 * 60

func ParseClock(value string) (ClockTime, error) {
	value = strings.TrimSpace(value)
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", value)
	}
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", value, err)
	}
	return ClockTime(parsed.Hour()*60 + parsed.Minute()), nil
}

func (c ClockTime) Valid() bool {
	return c >= 0 && c < minutesPerDay
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Duration is the offset from midnight, the form Postgres TIME values use.
func (c ClockTime) Duration() time.Duration {
	return time.Duration(c) * time.Minute
}

func ClockFromDuration(d time.Duration) ClockTime {
	return ClockTime(d / time.Minute)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start ClockTime
	End   ClockTime
}

func (r TimeRange) Valid() bool {
	return r.Start.Valid() && r.End.Valid() && r.Start < r.End
}

// Overlaps reports whether two half-open ranges share any minute. Ranges
// that only touch (one ends where the other starts) do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && r.End > other.Start
}

// Weekday numbers days Monday=1 through Sunday=7.
type Weekday int

var weekdayNames = [...]string{"", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func (d Weekday) Valid() bool {
	return d >= 1 && d <= 7
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

func WeekdayOf(t time.Time) Weekday {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return Weekday(t.Weekday())
}

const dateLayout = "2006-01-02"

// ParseDate reads a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(value))
}

// DateOf returns the calendar date of t in loc, as midnight UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
