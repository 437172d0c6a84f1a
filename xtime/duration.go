// Package xtime parses and formats durations with calendar-like units, in
// addition to the units supported by time.ParseDuration.
package xtime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

var (
	unitMap = map[string]time.Duration{
		"ns": time.Nanosecond,
		"us": time.Microsecond,
		"µs": time.Microsecond,
		"ms": time.Millisecond,
		"s":  time.Second,
		"m":  time.Minute,
		"h":  time.Hour,
		"d":  Day,
		"D":  Day,
		"w":  Week,
		"W":  Week,
		"M":  Month,
		"y":  Year,
		"Y":  Year,
	}
	componentRx = regexp.MustCompile(`^(\d*\.\d+|\d+)(ns|us|µs|ms|[smhdDwWMyY])`)
)

// ParseDuration parses a duration string such as "90d", "1.5w", "3Y4M5d" or
// "1h30m". Besides the units supported by time.ParseDuration, it accepts
// "d"/"D" (days), "w"/"W" (weeks), "M" (30-day months) and "y"/"Y" (365-day
// years). Lowercase "m" is always minutes.
func ParseDuration(s string) (time.Duration, error) {
	orig := s
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "0" {
		return 0, nil
	}
	if s == "" {
		return 0, fmt.Errorf("invalid duration '%s'", orig)
	}

	var total float64
	for s != "" {
		m := componentRx.FindStringSubmatch(s)
		if m == nil {
			return 0, fmt.Errorf("invalid duration '%s'", orig)
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration '%s': %w", orig, err)
		}
		total += v * float64(unitMap[m[2]])
		s = s[len(m[0]):]
	}

	if total >= float64(1<<63-1) {
		return 0, fmt.Errorf("duration '%s' is out of range", orig)
	}

	d := time.Duration(total)
	if neg {
		d = -d
	}

	return d, nil
}

// FormatDuration formats a duration into a string with friendly units, such as
// "10d", "-1w2d" or "1Y4M5d12h". Units smaller than round are omitted.
func FormatDuration(d time.Duration, round time.Duration) string {
	if round > 0 {
		d = d.Round(round)
	}
	if d == 0 {
		return "0s"
	}

	var sb strings.Builder
	if d < 0 {
		sb.WriteByte('-')
		d = -d
	}

	for _, u := range []struct {
		unit time.Duration
		sym  string
	}{
		{Year, "Y"}, {Month, "M"}, {Week, "w"}, {Day, "d"}, {time.Hour, "h"},
		{time.Minute, "m"}, {time.Second, "s"}, {time.Millisecond, "ms"},
		{time.Microsecond, "µs"}, {time.Nanosecond, "ns"},
	} {
		if u.unit < round {
			break
		}
		if n := d / u.unit; n > 0 {
			fmt.Fprintf(&sb, "%d%s", n, u.sym)
			d %= u.unit
		}
	}

	return sb.String()
}

// Duration is a time.Duration parsed with ParseDuration.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) String() string {
	return FormatDuration(time.Duration(d), 0)
}
