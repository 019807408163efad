package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utcWindow() WorkWindow {
	return WorkWindow{
		Timezone:     "UTC",
		WorkDays:     []int{1, 2, 3, 4, 5},
		StartTime:    "09:00",
		EndTime:      "18:00",
		ClampEnabled: true,
	}
}

func TestClamp_Disabled(t *testing.T) {
	w := utcWindow()
	w.ClampEnabled = false

	in := time.Date(2024, 5, 12, 3, 30, 0, 0, time.UTC) // Sunday, way outside the window
	assert.Equal(t, in, w.Clamp(in))
}

func TestClamp_InsideWindowUnchanged(t *testing.T) {
	w := utcWindow()

	// Monday 14:00
	in := time.Date(2024, 5, 13, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, in, w.Clamp(in))
}

func TestClamp_BeforeStartMovesToStart(t *testing.T) {
	w := utcWindow()

	in := time.Date(2024, 5, 13, 1, 0, 0, 0, time.UTC) // Monday 01:00
	want := time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, want, w.Clamp(in))
}

func TestClamp_AfterEndRollsToNextDay(t *testing.T) {
	w := utcWindow()

	in := time.Date(2024, 5, 13, 22, 0, 0, 0, time.UTC) // Monday 22:00
	want := time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, want, w.Clamp(in))
}

func TestClamp_FridayEveningRollsOverWeekend(t *testing.T) {
	w := utcWindow()

	in := time.Date(2024, 5, 17, 22, 0, 0, 0, time.UTC) // Friday 22:00
	want := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC) // following Monday
	assert.Equal(t, want, w.Clamp(in))
}

func TestClamp_WeekendMovesToMonday(t *testing.T) {
	w := utcWindow()

	in := time.Date(2024, 5, 18, 10, 0, 0, 0, time.UTC) // Saturday mid-morning
	want := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, want, w.Clamp(in))
}

func TestClamp_EndBoundaryInclusive(t *testing.T) {
	w := utcWindow()

	in := time.Date(2024, 5, 13, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, in, w.Clamp(in))

	past := time.Date(2024, 5, 13, 18, 0, 1, 0, time.UTC)
	want := time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, want, w.Clamp(past))
}

func TestClamp_EmptyWorkDaysDefaultToWeekdays(t *testing.T) {
	w := utcWindow()
	w.WorkDays = nil

	in := time.Date(2024, 5, 19, 10, 0, 0, 0, time.UTC) // Sunday
	want := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, want, w.Clamp(in))
}

func TestClamp_WeekendOnlyWindow(t *testing.T) {
	w := utcWindow()
	w.WorkDays = []int{6, 7}

	in := time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC) // Friday
	want := time.Date(2024, 5, 18, 9, 0, 0, 0, time.UTC) // Saturday
	assert.Equal(t, want, w.Clamp(in))
}

func TestClamp_SaoPauloZoneArithmetic(t *testing.T) {
	w := utcWindow()
	w.Timezone = "America/Sao_Paulo" // UTC-3, no DST since 2019

	// 14:00 UTC is 11:00 local on a Monday, inside the window
	in := time.Date(2024, 5, 13, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, in, w.Clamp(in))

	// 01:00 UTC Monday is 22:00 local Sunday; lands Monday 09:00 local
	in = time.Date(2024, 5, 13, 1, 0, 0, 0, time.UTC)
	want := time.Date(2024, 5, 13, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, want, w.Clamp(in))

	// 21:30 UTC Monday is 18:30 local, past the window end; rolls to
	// Tuesday 09:00 local
	in = time.Date(2024, 5, 13, 21, 30, 0, 0, time.UTC)
	want = time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, want, w.Clamp(in))
}

func TestClamp_DSTTransition(t *testing.T) {
	w := utcWindow()
	w.Timezone = "America/New_York"

	// The Monday after the 2024 spring-forward: local offset is UTC-4
	in := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC) // 04:00 local
	want := time.Date(2024, 3, 11, 13, 0, 0, 0, time.UTC) // 09:00 EDT
	assert.Equal(t, want, w.Clamp(in))
}

func TestClamp_UnknownZoneFallsBackToUTC(t *testing.T) {
	w := utcWindow()
	w.Timezone = "Not/AZone"

	in := time.Date(2024, 5, 13, 1, 0, 0, 0, time.UTC)
	want := time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, want, w.Clamp(in))
}

func TestClamp_ResultIsUTC(t *testing.T) {
	w := utcWindow()
	w.Timezone = "America/Sao_Paulo"

	out := w.Clamp(time.Date(2024, 5, 13, 1, 0, 0, 0, time.UTC))
	require.Equal(t, time.UTC, out.Location())
}

func TestClamp_InvertedWindowLeftUnclamped(t *testing.T) {
	w := utcWindow()
	w.StartTime = "18:00"
	w.EndTime = "09:00"

	// Past the configured start: must return, not spin looking for a day
	// that can satisfy an impossible window
	in := time.Date(2024, 5, 13, 19, 0, 0, 0, time.UTC) // Monday 19:00
	assert.Equal(t, in, w.Clamp(in))

	in = time.Date(2024, 5, 13, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, in, w.Clamp(in))
}

func TestValidateWindow(t *testing.T) {
	assert.NoError(t, ValidateWindow("09:00", "18:00"))
	assert.NoError(t, ValidateWindow("09:00", "09:00"))
	assert.Error(t, ValidateWindow("18:00", "09:00"))
	assert.Error(t, ValidateWindow("morning", "18:00"))
	assert.Error(t, ValidateWindow("09:00", "25:99:99"))
}

func TestIsoWeekday(t *testing.T) {
	assert.Equal(t, 1, isoWeekday(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC))) // Monday
	assert.Equal(t, 6, isoWeekday(time.Date(2024, 5, 18, 0, 0, 0, 0, time.UTC))) // Saturday
	assert.Equal(t, 7, isoWeekday(time.Date(2024, 5, 19, 0, 0, 0, 0, time.UTC))) // Sunday
}

func TestParseTimeOfDay(t *testing.T) {
	assert.Equal(t, 9*3600, parseTimeOfDay("09:00", 0))
	assert.Equal(t, 18*3600+30*60, parseTimeOfDay("18:30", 0))
	assert.Equal(t, 8*3600+15*60+30, parseTimeOfDay("08:15:30", 0))
	assert.Equal(t, 42, parseTimeOfDay("", 42))
	assert.Equal(t, 42, parseTimeOfDay("morning", 42))
	assert.Equal(t, 42, parseTimeOfDay("25:99:99", 42))
}
