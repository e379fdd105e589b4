package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestParseTimeDate(t *testing.T) {
    got, ok := ParseTime("2024-03-15")
    if !ok {
        t.Fatalf("expected ok")
    }
    if !got.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestAlignFromTo(t *testing.T) {
    from := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC) // Thursday
    to := time.Date(2024, 10, 13, 23, 59, 0, 0, time.UTC)    // Sunday

    f, tt := AlignFromTo(from, to, "1h")
    if f.Hour() != 10 || f.Minute() != 0 || tt.Hour() != 23 {
        t.Fatalf("hourly alignment %v %v", f, tt)
    }
    f, tt = AlignFromTo(from, to, "1wk")
    if f.Weekday() != time.Monday || f.Day() != 7 || tt.Day() != 7 {
        t.Fatalf("weekly alignment %v %v", f, tt)
    }
    f, _ = AlignFromTo(from, to, "1d")
    if f.Hour() != 0 || f.Day() != 10 {
        t.Fatalf("daily alignment %v", f)
    }
}

func TestLookbackStartCoversBars(t *testing.T) {
    to := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
    cases := []struct {
        interval string
        n        int
        minDays  int
    }{
        {"1d", 300, 420},
        {"1wk", 52, 364},
        {"1h", 60, 14},
    }
    for _, c := range cases {
        got := to.Sub(LookbackStart(to, c.interval, c.n)).Hours() / 24
        if got < float64(c.minDays) {
            t.Fatalf("%s: %d bars need at least %d days, got %.0f", c.interval, c.n, c.minDays, got)
        }
    }
}

func TestParseHorizon(t *testing.T) {
    cases := map[string]int{"30d": 30, "2w": 14, "3m": 90, "1y": 365, " 7D ": 7}
    for in, want := range cases {
        got, ok := ParseHorizon(in)
        if !ok || got != want {
            t.Fatalf("%q: got %d %v, want %d", in, got, ok, want)
        }
    }
    for _, in := range []string{"", "d", "0d", "-5d", "10x", "abc"} {
        if _, ok := ParseHorizon(in); ok {
            t.Fatalf("%q: expected failure", in)
        }
    }
}
