package convert

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeLocation wraps the TimeZone startup parameter, defaulting to UTC
// when the session never reports one.
type timeLocation struct {
	loc *time.Location
}

func loadLocation(name string) (*timeLocation, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// PostgreSQL's own TimeZone values ("PST8PDT" and similar POSIX
		// names) don't always resolve against the tzdata the Go runtime
		// ships; fall back to UTC rather than failing the session.
		return &timeLocation{loc: time.UTC}, nil
	}
	return &timeLocation{loc: loc}, nil
}

func (c *Converter) tzLocation() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location.loc
}

// dateLayouts lists accepted date/time layouts in the same
// try-each-in-order idiom used elsewhere in this package, extended with
// date-only and timezone-bearing variants the wire format actually emits.
var dateLayouts = []string{"2006-01-02"}

var timeLayouts = []string{"15:04:05.999999", "15:04:05"}

// timeTzLayouts and timestampTzLayouts both try the colon-and-minutes
// offset form first, then the hour-only form ("+00" rather than
// "+00:00") PostgreSQL emits for a whole-hour offset.
var timeTzLayouts = []string{
	"15:04:05.999999Z07:00",
	"15:04:05Z07:00",
	"15:04:05.999999Z07",
	"15:04:05Z07",
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

var timestampTzLayouts = []string{
	"2006-01-02 15:04:05.999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999Z07",
	"2006-01-02 15:04:05Z07",
}

func decodeDate(raw []byte, _ *Converter) (any, error) {
	return parseWithLayouts(string(raw), dateLayouts)
}

func decodeTime(raw []byte, _ *Converter) (any, error) {
	return parseWithLayouts(string(raw), timeLayouts)
}

func decodeTimeTz(raw []byte, _ *Converter) (any, error) {
	return parseWithLayouts(string(raw), timeTzLayouts)
}

func decodeTimestamp(raw []byte, c *Converter) (any, error) {
	t, err := parseWithLayouts(string(raw), timestampLayouts)
	if err != nil {
		return nil, err
	}
	loc := c.tzLocation()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
}

func decodeTimestampTz(raw []byte, _ *Converter) (any, error) {
	return parseWithLayouts(string(raw), timestampTzLayouts)
}

func parseWithLayouts(s string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp literal %q", s)
}

// parseInterval parses PostgreSQL's default verbose interval output
// ("1 year 2 mons 3 days 04:05:06") into a time.Duration. The calendar
// fields (years, mons, days) have no fixed duration in general, so this
// approximates a year as 365 days and a month as 30 days, matching the
// approximation PostgreSQL itself documents for interval-to-duration
// comparisons.
func parseInterval(s string) (time.Duration, error) {
	var d time.Duration
	fields := strings.Fields(s)
	i := 0
	for i < len(fields) {
		if strings.Contains(fields[i], ":") {
			hms, err := parseHMS(fields[i])
			if err != nil {
				return 0, err
			}
			d += hms
			i++
			continue
		}
		if i+1 >= len(fields) {
			return 0, fmt.Errorf("invalid interval literal %q", s)
		}
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			return 0, fmt.Errorf("invalid interval literal %q", s)
		}
		unit := strings.ToLower(fields[i+1])
		switch {
		case strings.HasPrefix(unit, "year"):
			d += time.Duration(n) * 365 * 24 * time.Hour
		case strings.HasPrefix(unit, "mon"):
			d += time.Duration(n) * 30 * 24 * time.Hour
		case strings.HasPrefix(unit, "day"):
			d += time.Duration(n) * 24 * time.Hour
		default:
			return 0, fmt.Errorf("unrecognized interval unit %q", fields[i+1])
		}
		i += 2
	}
	return d, nil
}

func parseHMS(s string) (time.Duration, error) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid HH:MM:SS component %q", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("invalid HH:MM:SS component %q", s)
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec*float64(time.Second))
	if neg {
		d = -d
	}
	return d, nil
}
