package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronSpec is a parsed 5-field cron expression (§4.J "Cron engine").
type CronSpec struct {
	minute, hour, dayOfMonth, month, dayOfWeek fieldMatcher
	raw                                        string
}

type fieldMatcher func(v int) bool

// ParseCronSpec parses a 5-field expression: minute hour dom month dow.
// Fields support `*`, `*/n`, `n`, `n,m,...`, `n-m` (§4.J). DOW uses
// 0=Sunday; callers pass time.Weekday's int value directly since Go's
// time.Weekday already uses 0=Sunday, unlike the donor's origin date API
// which used Monday=1..Sunday=7 and required conversion (§4.J "DOW uses
// 0=Sunday (converted from a Monday=1..Sunday=7 date API)" — Matches
// reads t.Weekday() directly, so no conversion is done anywhere).
func ParseCronSpec(expr string) (*CronSpec, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("scheduler: cron expression %q must have 5 fields", expr)
	}
	ranges := [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}
	matchers := make([]fieldMatcher, 5)
	for i, f := range fields {
		m, err := parseField(f, ranges[i][0], ranges[i][1])
		if err != nil {
			return nil, fmt.Errorf("scheduler: cron field %d (%q): %w", i, f, err)
		}
		matchers[i] = m
	}
	return &CronSpec{minute: matchers[0], hour: matchers[1], dayOfMonth: matchers[2], month: matchers[3], dayOfWeek: matchers[4], raw: expr}, nil
}

func parseField(f string, lo, hi int) (fieldMatcher, error) {
	if f == "*" {
		return func(int) bool { return true }, nil
	}
	if step, ok := strings.CutPrefix(f, "*/"); ok {
		n, err := strconv.Atoi(step)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid step %q", f)
		}
		return func(v int) bool { return (v-lo)%n == 0 }, nil
	}

	var allowed []func(int) bool
	for _, part := range strings.Split(f, ",") {
		if lo2, hi2, ok := strings.Cut(part, "-"); ok {
			a, err1 := strconv.Atoi(lo2)
			b, err2 := strconv.Atoi(hi2)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("invalid range %q", part)
			}
			if a > b {
				// Overnight-wrapping range, e.g. hour "22-5" means
				// "≥22 OR ≤5" (§8 property 9).
				allowed = append(allowed, func(v int) bool { return v >= a || v <= b })
			} else {
				allowed = append(allowed, func(v int) bool { return v >= a && v <= b })
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", part)
		}
		allowed = append(allowed, func(v int) bool { return v == n })
	}
	if len(allowed) == 0 || lo > hi {
		return nil, fmt.Errorf("invalid field %q", f)
	}
	return func(v int) bool {
		for _, m := range allowed {
			if m(v) {
				return true
			}
		}
		return false
	}, nil
}

// Matches reports whether t (in UTC) satisfies the spec's five fields at
// minute resolution (§4.J "evaluate a minute-resolution match against the
// current UTC time").
func (c *CronSpec) Matches(t time.Time) bool {
	t = t.UTC()
	return c.minute(t.Minute()) && c.hour(t.Hour()) && c.dayOfMonth(t.Day()) &&
		c.month(int(t.Month())) && c.dayOfWeek(int(t.Weekday()))
}

func (c *CronSpec) String() string { return c.raw }
