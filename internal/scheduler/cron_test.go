package scheduler

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, expr string) *schedule {
	t.Helper()
	s, err := parseSchedule(expr)
	if err != nil {
		t.Fatalf("parseSchedule(%q): %v", expr, err)
	}
	return s
}

func TestParseScheduleRejectsWrongFieldCount(t *testing.T) {
	if _, err := parseSchedule("* * *"); err == nil {
		t.Fatal("expected an error for a 3-field expression")
	}
}

func TestScheduleEveryMinuteMatchesAnything(t *testing.T) {
	s := mustParse(t, "* * * * *")
	if !s.matches(time.Date(2026, 8, 3, 14, 37, 0, 0, time.UTC)) {
		t.Fatal("expected the wildcard schedule to match any minute")
	}
}

func TestScheduleExactMinuteHour(t *testing.T) {
	s := mustParse(t, "30 9 * * *")
	if !s.matches(time.Date(2026, 8, 3, 9, 30, 0, 0, time.UTC)) {
		t.Fatal("expected a match at 09:30")
	}
	if s.matches(time.Date(2026, 8, 3, 9, 31, 0, 0, time.UTC)) {
		t.Fatal("did not expect a match at 09:31")
	}
}

func TestScheduleStepValues(t *testing.T) {
	s := mustParse(t, "*/15 * * * *")
	for _, m := range []int{0, 15, 30, 45} {
		if !s.matches(time.Date(2026, 8, 3, 10, m, 0, 0, time.UTC)) {
			t.Fatalf("expected a match at minute %d", m)
		}
	}
	if s.matches(time.Date(2026, 8, 3, 10, 20, 0, 0, time.UTC)) {
		t.Fatal("did not expect a match at minute 20")
	}
}

func TestScheduleWeekdaysOnly(t *testing.T) {
	s := mustParse(t, "0 9 * * 1-5")
	// 2026-08-03 is a Monday.
	if !s.matches(time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)) {
		t.Fatal("expected a match on Monday")
	}
	// 2026-08-08 is a Saturday.
	if s.matches(time.Date(2026, 8, 8, 9, 0, 0, 0, time.UTC)) {
		t.Fatal("did not expect a match on Saturday")
	}
}

func TestScheduleDayOfMonthOrDayOfWeekIsDisjunctive(t *testing.T) {
	// Standard cron semantics: when both dom and dow are restricted, a
	// match on either fires the job.
	s := mustParse(t, "0 0 1 * 1")
	// 2026-08-01 is a Saturday, not Monday, but it is the 1st.
	if !s.matches(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected a match via day-of-month")
	}
	// 2026-08-03 is a Monday but not the 1st.
	if !s.matches(time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected a match via day-of-week")
	}
	// 2026-08-04 is neither.
	if s.matches(time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("did not expect a match")
	}
}

func TestParseFieldRejectsOutOfBounds(t *testing.T) {
	if _, err := parseSchedule("60 * * * *"); err == nil {
		t.Fatal("expected an error for minute 60")
	}
}
