package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskforge/models"
)

// WorkWindow describes the work-day window a due date must fall into.
// Weekdays use ISO numbering (Monday=1 .. Sunday=7) throughout.
type WorkWindow struct {
	Timezone     string
	WorkDays     []int
	StartTime    string // HH:MM[:SS]
	EndTime      string // HH:MM[:SS]
	ClampEnabled bool
}

// WindowFromVersion builds the work window configured on a version row
func WindowFromVersion(v models.SequenceVersion) WorkWindow {
	return WorkWindow{
		Timezone:     v.Timezone,
		WorkDays:     v.WorkDays,
		StartTime:    v.WorkStartTime,
		EndTime:      v.WorkEndTime,
		ClampEnabled: v.ClampEnabled,
	}
}

// Location resolves the window's IANA zone, falling back to UTC when the
// configured name cannot be loaded
func (w WorkWindow) Location() *time.Location {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

// Clamp moves t forward to the next instant inside the window. With
// clamping disabled the instant is returned unchanged. The result is UTC.
func (w WorkWindow) Clamp(t time.Time) time.Time {
	if !w.ClampEnabled {
		return t
	}

	loc := w.Location()
	days := w.WorkDays
	if len(days) == 0 {
		days = []int{1, 2, 3, 4, 5}
	}
	startSec := parseTimeOfDay(w.StartTime, 9*3600)
	endSec := parseTimeOfDay(w.EndTime, 18*3600)
	if endSec < startSec {
		// An inverted window contains no instant at all, so clamping
		// could loop forever looking for one. Leave the instant alone;
		// ValidateWindow keeps such rows out at publish time.
		return t
	}

	local := t.In(loc)
	for {
		if !containsDay(days, isoWeekday(local)) {
			// Land on the next calendar day at window start and re-check
			local = atSecondOfDay(local, startSec, loc).AddDate(0, 0, 1)
			continue
		}
		sec := secondOfDay(local)
		if sec < startSec {
			local = atSecondOfDay(local, startSec, loc)
			break
		}
		if sec > endSec {
			local = atSecondOfDay(local, startSec, loc).AddDate(0, 0, 1)
			continue
		}
		break
	}
	return local.UTC()
}

// ValidateWindow rejects window bounds Clamp cannot work with: both must
// parse as HH:MM[:SS] and the end must not precede the start
func ValidateWindow(start, end string) error {
	startSec := parseTimeOfDay(start, -1)
	endSec := parseTimeOfDay(end, -1)
	if startSec < 0 {
		return fmt.Errorf("invalid work_start_time %q", start)
	}
	if endSec < 0 {
		return fmt.Errorf("invalid work_end_time %q", end)
	}
	if endSec < startSec {
		return errors.New("work_end_time must not precede work_start_time")
	}
	return nil
}

// isoWeekday maps Go's Sunday=0 weekday to ISO Monday=1 .. Sunday=7
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func atSecondOfDay(t time.Time, sec int, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), sec/3600, sec/60%60, sec%60, 0, loc)
}

// parseTimeOfDay parses HH:MM or HH:MM:SS into seconds past midnight,
// falling back when the field is malformed
func parseTimeOfDay(s string, fallback int) int {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return fallback
	}
	total := 0
	mult := []int{3600, 60, 1}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return fallback
		}
		total += n * mult[i]
	}
	if total > 24*3600 {
		return fallback
	}
	return total
}
