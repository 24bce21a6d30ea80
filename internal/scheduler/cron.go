// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package scheduler

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"time"
)

// Cron is a parsed 5-field cron expression. Each field is a bit set of the
// values it allows.
type Cron struct {
	minute uint64 // bits 0-59
	hour   uint64 // bits 0-23
	dom    uint64 // bits 1-31
	month  uint64 // bits 1-12
	dow    uint64 // bits 0-6, 0 = Sunday

	// domAny and dowAny record a literal "*"; standard cron ORs the two
	// day fields only when both are restricted.
	domAny bool
	dowAny bool
}

type fieldSpec struct {
	name     string
	min, max int
}

var cronFields = [5]fieldSpec{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 7},
}

// ParseCron parses "minute hour day-of-month month day-of-week".
//
// Each field accepts *, n, a-b, */s, a-b/s, n/s and comma-separated lists
// of those. Day-of-week 7 is Sunday, like 0.
//
//	"6 0 * * *"    every day at 00:06
//	"0 */4 * * *"  every four hours
//	"0 3 * * 0"    Sundays at 03:00
func ParseCron(expr string) (*Cron, error) {
	fields := strings.Fields(expr)
	if len(fields) != len(cronFields) {
		return nil, fmt.Errorf("cron expression %q must have 5 fields, got %d", expr, len(fields))
	}

	var sets [5]uint64
	for i, f := range fields {
		set, err := parseCronField(f, cronFields[i])
		if err != nil {
			return nil, fmt.Errorf("cron expression %q: %w", expr, err)
		}
		sets[i] = set
	}

	dow := sets[4]
	if dow&(1<<7) != 0 {
		dow = (dow &^ (1 << 7)) | 1
	}

	return &Cron{
		minute: sets[0],
		hour:   sets[1],
		dom:    sets[2],
		month:  sets[3],
		dow:    dow,
		domAny: fields[2] == "*",
		dowAny: fields[4] == "*",
	}, nil
}

func parseCronField(field string, spec fieldSpec) (uint64, error) {
	var set uint64
	for _, part := range strings.Split(field, ",") {
		if part == "" {
			return 0, fmt.Errorf("%s: empty list element", spec.name)
		}
		lo, hi, step, err := parseCronRange(part, spec)
		if err != nil {
			return 0, err
		}
		for v := lo; v <= hi; v += step {
			set |= 1 << uint(v)
		}
	}
	return set, nil
}

// parseCronRange returns the bounds and step of one list element.
func parseCronRange(part string, spec fieldSpec) (lo, hi, step int, err error) {
	rangePart, stepPart, hasStep := strings.Cut(part, "/")
	step = 1
	if hasStep {
		step, err = strconv.Atoi(stepPart)
		if err != nil || step <= 0 {
			return 0, 0, 0, fmt.Errorf("%s: invalid step %q", spec.name, stepPart)
		}
	}

	switch {
	case rangePart == "*":
		lo, hi = spec.min, spec.max
	case strings.Contains(rangePart, "-"):
		a, b, _ := strings.Cut(rangePart, "-")
		if lo, err = cronValue(a, spec); err != nil {
			return 0, 0, 0, err
		}
		if hi, err = cronValue(b, spec); err != nil {
			return 0, 0, 0, err
		}
		if lo > hi {
			return 0, 0, 0, fmt.Errorf("%s: range %d-%d is reversed", spec.name, lo, hi)
		}
	default:
		if lo, err = cronValue(rangePart, spec); err != nil {
			return 0, 0, 0, err
		}
		hi = lo
		if hasStep {
			hi = spec.max
		}
	}
	return lo, hi, step, nil
}

func cronValue(s string, spec fieldSpec) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid value %q", spec.name, s)
	}
	if v < spec.min || v > spec.max {
		return 0, fmt.Errorf("%s: value %d outside %d-%d", spec.name, v, spec.min, spec.max)
	}
	return v, nil
}

// Next returns the first matching minute strictly after t, in t's
// location. The zero time means no match within five years, which only
// happens for impossible dates such as "0 0 31 2 *".
func (c *Cron) Next(t time.Time) time.Time {
	loc := t.Location()
	t = t.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(5, 0, 0)

	for t.Before(limit) {
		if !has(c.month, int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)
			continue
		}
		if !c.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}
		if !has(c.hour, t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
			continue
		}
		if !has(c.minute, t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}

// Matches reports whether t falls on a scheduled minute.
func (c *Cron) Matches(t time.Time) bool {
	return has(c.minute, t.Minute()) &&
		has(c.hour, t.Hour()) &&
		has(c.month, int(t.Month())) &&
		c.dayMatches(t)
}

func (c *Cron) dayMatches(t time.Time) bool {
	domOK := has(c.dom, t.Day())
	dowOK := has(c.dow, int(t.Weekday()))
	switch {
	case c.domAny && c.dowAny:
		return true
	case c.domAny:
		return dowOK
	case c.dowAny:
		return domOK
	default:
		return domOK || dowOK
	}
}

// String renders the allowed values per field, mostly for logs and tests.
func (c *Cron) String() string {
	return fmt.Sprintf("min=%v hour=%v dom=%v month=%v dow=%v",
		members(c.minute), members(c.hour), members(c.dom), members(c.month), members(c.dow))
}

func has(set uint64, v int) bool {
	return set&(1<<uint(v)) != 0
}

func members(set uint64) []int {
	out := make([]int, 0, bits.OnesCount64(set))
	for set != 0 {
		v := bits.TrailingZeros64(set)
		out = append(out, v)
		set &^= 1 << uint(v)
	}
	return out
}
