package engine

import (
	"testing"
	"time"

	"taskforge/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDue_OffsetsFromEnrolledAt(t *testing.T) {
	enr := models.SequenceEnrollment{
		EnrolledAt: time.Date(2024, 5, 13, 12, 0, 0, 0, time.UTC),
	}
	step := models.SequenceStep{DueOffsetDays: 0, DueOffsetHours: 2}
	w := WorkWindow{ClampEnabled: false}

	due := ComputeDue(enr, step, w)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2024, 5, 13, 14, 0, 0, 0, time.UTC), *due)
}

func TestComputeDue_DayAndHourOffsetsAreAdditive(t *testing.T) {
	enr := models.SequenceEnrollment{
		EnrolledAt: time.Date(2024, 5, 13, 12, 0, 0, 0, time.UTC),
	}
	step := models.SequenceStep{DueOffsetDays: 2, DueOffsetHours: 3}
	w := WorkWindow{ClampEnabled: false}

	due := ComputeDue(enr, step, w)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2024, 5, 15, 15, 0, 0, 0, time.UTC), *due)
}

func TestComputeDue_ResumedAtReplacesAnchor(t *testing.T) {
	resumed := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	enr := models.SequenceEnrollment{
		EnrolledAt: time.Date(2024, 5, 13, 12, 0, 0, 0, time.UTC),
		ResumedAt:  &resumed,
	}
	step := models.SequenceStep{DueOffsetHours: 1}
	w := WorkWindow{ClampEnabled: false}

	due := ComputeDue(enr, step, w)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC), *due)
}

func TestComputeDue_MissingAnchor(t *testing.T) {
	enr := models.SequenceEnrollment{}
	step := models.SequenceStep{DueOffsetDays: 1}

	assert.Nil(t, ComputeDue(enr, step, WorkWindow{ClampEnabled: false}))
}

func TestComputeDue_ClampsIntoWindow(t *testing.T) {
	enr := models.SequenceEnrollment{
		// Monday 17:00 UTC
		EnrolledAt: time.Date(2024, 5, 13, 17, 0, 0, 0, time.UTC),
	}
	step := models.SequenceStep{DueOffsetHours: 5}
	w := utcWindow()

	// 22:00 is past the window end, so the due date rolls to Tuesday 09:00
	due := ComputeDue(enr, step, w)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC), *due)
}
