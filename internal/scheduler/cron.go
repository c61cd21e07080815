package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// field bounds for the five standard cron fields, in order: minute, hour,
// day-of-month, month, day-of-week.
var fieldBounds = [5][2]int{
	{0, 59}, // minute
	{0, 23}, // hour
	{1, 31}, // day of month
	{1, 12}, // month
	{0, 6},  // day of week, 0 = Sunday
}

// schedule is a parsed standard 5-field cron expression: minute hour
// day-of-month month day-of-week. Each field is a set of matching values.
type schedule struct {
	minute, hour, dom, month, dow map[int]bool
}

func parseSchedule(expr string) (*schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression %q must have 5 fields, got %d", expr, len(fields))
	}

	sets := make([]map[int]bool, 5)
	for i, f := range fields {
		set, err := parseField(f, fieldBounds[i][0], fieldBounds[i][1])
		if err != nil {
			return nil, fmt.Errorf("field %d (%q): %w", i, f, err)
		}
		sets[i] = set
	}

	return &schedule{minute: sets[0], hour: sets[1], dom: sets[2], month: sets[3], dow: sets[4]}, nil
}

// parseField parses one comma-separated cron field, each element of which
// is "*", "*/N", "A-B", "A-B/N", or a plain integer.
func parseField(field string, lo, hi int) (map[int]bool, error) {
	set := map[int]bool{}
	for _, part := range strings.Split(field, ",") {
		if err := parsePart(part, lo, hi, set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func parsePart(part string, lo, hi int, set map[int]bool) error {
	rangeExpr, step := part, 1
	if i := strings.Index(part, "/"); i >= 0 {
		rangeExpr = part[:i]
		n, err := strconv.Atoi(part[i+1:])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid step in %q", part)
		}
		step = n
	}

	start, end := lo, hi
	switch {
	case rangeExpr == "*":
		// start/end already cover the full range.
	case strings.Contains(rangeExpr, "-"):
		bounds := strings.SplitN(rangeExpr, "-", 2)
		a, err1 := strconv.Atoi(bounds[0])
		b, err2 := strconv.Atoi(bounds[1])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("invalid range %q", rangeExpr)
		}
		start, end = a, b
	default:
		n, err := strconv.Atoi(rangeExpr)
		if err != nil {
			return fmt.Errorf("invalid value %q", rangeExpr)
		}
		start, end = n, n
	}

	if start < lo || end > hi || start > end {
		return fmt.Errorf("value %q out of bounds [%d,%d]", part, lo, hi)
	}

	for v := start; v <= end; v += step {
		set[v] = true
	}
	return nil
}

// matches reports whether t falls on a minute boundary this schedule fires
// on. Standard cron semantics: if both day-of-month and day-of-week are
// restricted (not "*"), a match on either is sufficient.
func (s *schedule) matches(t time.Time) bool {
	if !s.minute[t.Minute()] || !s.hour[t.Hour()] || !s.month[int(t.Month())] {
		return false
	}

	domRestricted := len(s.dom) < 31
	dowRestricted := len(s.dow) < 7

	switch {
	case domRestricted && dowRestricted:
		return s.dom[t.Day()] || s.dow[int(t.Weekday())]
	case domRestricted:
		return s.dom[t.Day()]
	case dowRestricted:
		return s.dow[int(t.Weekday())]
	default:
		return true
	}
}
