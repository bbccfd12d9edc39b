package model

import (
	"encoding/json"
	"testing"
	"time"
)

func mustClock(t *testing.T, value string) ClockTime {
	t.Helper()
	c, err := ParseClock(value)
	if err != nil {
		t.Fatalf("parse %s: %v", value, err)
	}
	return c
}

func TestParseClock(t *testing.T) {
	valid := map[string]ClockTime{
		"00:00": 0,
		"09:30": 570,
		"23:59": 1439,
	}
	for input, expect := range valid {
		if got := mustClock(t, input); got != expect {
			t.Fatalf("%s: expected %d, got %d", input, expect, got)
		}
		if got := valid[input].String(); got != input {
			t.Fatalf("expected %s, got %s", input, got)
		}
	}
	for _, input := range []string{"", "9:30", "24:00", "12:60", "12-30", "noon"} {
		if _, err := ParseClock(input); err == nil {
			t.Fatalf("expected %q to be rejected", input)
		}
	}
}

func TestTimeRangeOverlaps(t *testing.T) {
	a := TimeRange{Start: mustClock(t, "09:00"), End: mustClock(t, "10:00")}
	cases := []struct {
		start, end string
		overlaps   bool
	}{
		{"10:00", "11:00", false},
		{"08:00", "09:00", false},
		{"09:30", "10:30", true},
		{"08:30", "09:01", true},
		{"09:15", "09:45", true},
		{"08:00", "12:00", true},
		{"09:00", "10:00", true},
		{"11:00", "12:00", false},
	}
	for _, tc := range cases {
		b := TimeRange{Start: mustClock(t, tc.start), End: mustClock(t, tc.end)}
		if got := a.Overlaps(b); got != tc.overlaps {
			t.Fatalf("[%s,%s) vs [09:00,10:00): expected %v, got %v", tc.start, tc.end, tc.overlaps, got)
		}
		if got := b.Overlaps(a); got != tc.overlaps {
			t.Fatalf("overlap must be symmetric for [%s,%s)", tc.start, tc.end)
		}
	}
}

func TestTimeRangeValid(t *testing.T) {
	if (TimeRange{Start: mustClock(t, "10:00"), End: mustClock(t, "10:00")}).Valid() {
		t.Fatalf("empty range must be invalid")
	}
	if (TimeRange{Start: mustClock(t, "11:00"), End: mustClock(t, "10:00")}).Valid() {
		t.Fatalf("inverted range must be invalid")
	}
	if !(TimeRange{Start: mustClock(t, "10:00"), End: mustClock(t, "10:01")}).Valid() {
		t.Fatalf("one-minute range must be valid")
	}
}

func TestClockJSON(t *testing.T) {
	var payload struct {
		Start ClockTime `json:"start"`
	}
	if err := json.Unmarshal([]byte(`{"start":"07:45"}`), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Start != 465 {
		t.Fatalf("expected 465, got %d", payload.Start)
	}
	if err := json.Unmarshal([]byte(`{"start":"7.45"}`), &payload); err == nil {
		t.Fatalf("expected invalid clock to fail decoding")
	}
	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != `{"start":"07:45"}` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestWeekdayOf(t *testing.T) {
	monday := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	if got := WeekdayOf(monday); got != 1 {
		t.Fatalf("expected monday=1, got %d", got)
	}
	if got := WeekdayOf(monday.AddDate(0, 0, 6)); got != 7 {
		t.Fatalf("expected sunday=7, got %d", got)
	}
	if Weekday(0).Valid() || Weekday(8).Valid() {
		t.Fatalf("expected 0 and 8 to be invalid")
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	late := time.Date(2026, 10, 19, 22, 30, 0, 0, time.UTC)
	if got := FormatDate(DateOf(late, loc)); got != "2026-10-20" {
		t.Fatalf("expected local date 2026-10-20, got %s", got)
	}
	parsed, err := ParseDate("2026-10-19")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if !parsed.Equal(DateOf(late, time.UTC)) {
		t.Fatalf("expected parsed date to equal UTC date of %s", late)
	}
}
