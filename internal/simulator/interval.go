package simulator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	relativeInstant = regexp.MustCompile(`^now(?:([-+])(\d+)([smhd]))?(?:\|([smhd]))?$`)
	isoDuration     = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
)

var units = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseInterval resolves a metrics API interval. Each side is either an
// RFC 3339 timestamp or a relative instant such as "now-2h|h" (two hours ago,
// truncated to the hour). One side may instead be an ISO-8601 duration, e.g.
// "2024-01-01T00:00:00Z/PT2H".
func ParseInterval(s string, now time.Time) (time.Time, time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("interval %q: expected start/end", s)
	}

	startDur, startIsDur := parseISODuration(parts[0])
	endDur, endIsDur := parseISODuration(parts[1])

	var start, end time.Time
	var err error
	switch {
	case startIsDur && endIsDur:
		return time.Time{}, time.Time{}, fmt.Errorf("interval %q: both sides are durations", s)
	case startIsDur:
		if end, err = parseInstant(parts[1], now); err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = end.Add(-startDur)
	case endIsDur:
		if start, err = parseInstant(parts[0], now); err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = start.Add(endDur)
	default:
		if start, err = parseInstant(parts[0], now); err != nil {
			return time.Time{}, time.Time{}, err
		}
		if end, err = parseInstant(parts[1], now); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("interval %q: end is not after start", s)
	}
	return start, end, nil
}

func parseInstant(s string, now time.Time) (time.Time, error) {
	if m := relativeInstant.FindStringSubmatch(s); m != nil {
		t := now.UTC()
		if m[1] != "" {
			n, _ := strconv.Atoi(m[2])
			offset := time.Duration(n) * units[m[3]]
			if m[1] == "-" {
				offset = -offset
			}
			t = t.Add(offset)
		}
		if m[4] != "" {
			t = t.Truncate(units[m[4]])
		}
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid instant %q", s)
	}
	return t.UTC(), nil
}

func parseISODuration(s string) (time.Duration, bool) {
	if s == "P" || s == "PT" {
		return 0, false
	}
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	var d time.Duration
	for i, unit := range []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second} {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		d += time.Duration(n) * unit
	}
	return d, d > 0
}
