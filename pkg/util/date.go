package util

import (
    "strconv"
    "strings"
    "time"
)

// DateLayout is the calendar date format used by EOD vendors and the CLI.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, a plain date, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(DateLayout, s); err == nil {
        return t, true
    }
    if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0).UTC(), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// AlignFromTo rounds the time range down to bar boundaries for the interval.
// Weekly bars start on Monday.
func AlignFromTo(from, to time.Time, interval string) (time.Time, time.Time) {
    return alignBar(from.UTC(), interval), alignBar(to.UTC(), interval)
}

func alignBar(t time.Time, interval string) time.Time {
    switch interval {
    case "1h":
        return t.Truncate(time.Hour)
    case "1wk":
        day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
        offset := (int(day.Weekday()) + 6) % 7
        return day.AddDate(0, 0, -offset)
    default:
        return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
    }
}

// LookbackStart returns a start time early enough to cover n bars of the interval ending at
// `to`, allowing for weekends and holidays.
func LookbackStart(to time.Time, interval string, n int) time.Time {
    if n < 1 {
        n = 1
    }
    switch interval {
    case "1h":
        // 6.5 trading hours a day, 5 days a week
        days := n/6 + 1
        return to.AddDate(0, 0, -(days*7/5 + 3))
    case "1wk":
        return to.AddDate(0, 0, -(n+1)*7)
    default:
        return to.AddDate(0, 0, -(n*7/5 + 10))
    }
}

// ParseHorizon reads a prediction time frame such as "30d", "2w", "3m" or "1y" as days.
func ParseHorizon(s string) (int, bool) {
    s = strings.TrimSpace(strings.ToLower(s))
    if len(s) < 2 {
        return 0, false
    }
    n, err := strconv.Atoi(s[:len(s)-1])
    if err != nil || n <= 0 {
        return 0, false
    }
    switch s[len(s)-1] {
    case 'd':
        return n, true
    case 'w':
        return n * 7, true
    case 'm':
        return n * 30, true
    case 'y':
        return n * 365, true
    }
    return 0, false
}
