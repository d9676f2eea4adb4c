package service

import (
	"encoding/json"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-api/internal/models"
)

func TestCreateMultiDayScheduleSkipsDisabledDays(t *testing.T) {
	// 20 hours starting on a Friday with weekday-only hours spans the weekend.
	schedule := CreateMultiDaySchedule("2025-06-06", 20*60, weekdayHours("08:00", "17:00"))

	require.Len(t, schedule.Segments, 3)
	assert.Equal(t, 20*60, schedule.TotalMinutes)

	assert.Equal(t, "2025-06-06", schedule.Segments[0].Date)
	assert.Equal(t, 8*60, schedule.Segments[0].StartMinutes)
	assert.Equal(t, 16*60, schedule.Segments[0].EndMinutes)

	assert.Equal(t, "2025-06-09", schedule.Segments[1].Date)
	assert.Equal(t, 16*60, schedule.Segments[1].EndMinutes)

	assert.Equal(t, "2025-06-10", schedule.Segments[2].Date)
	assert.Equal(t, 12*60, schedule.Segments[2].EndMinutes)
}

func TestCreateMultiDayScheduleDefaultHours(t *testing.T) {
	// Unconfigured hours treat every day as workable with a capped capacity.
	schedule := CreateMultiDaySchedule("2025-06-07", 10*60, nil)

	require.Len(t, schedule.Segments, 2)
	assert.Equal(t, "2025-06-07", schedule.Segments[0].Date)
	assert.Equal(t, 8*60+480, schedule.Segments[0].EndMinutes)
	assert.Equal(t, "2025-06-08", schedule.Segments[1].Date)
	assert.Equal(t, 8*60+120, schedule.Segments[1].EndMinutes)
}

func TestCreateMultiDayScheduleBadStartDate(t *testing.T) {
	schedule := CreateMultiDaySchedule("next friday", 600, nil)

	assert.Empty(t, schedule.Segments)
	assert.Equal(t, 600, schedule.TotalMinutes)
}

func TestCheckMultiDayConflicts(t *testing.T) {
	segments := []models.MultiDaySegment{
		{Date: testMonday, StartMinutes: 8 * 60, EndMinutes: 16 * 60},
		{Date: "2025-06-03", StartMinutes: 8 * 60, EndMinutes: 12 * 60},
	}
	cancelled := scheduledJob("j-cancelled", "t1", testMonday, "09:00", 60)
	cancelled.Status = models.JobStatusCancelled
	jobs := []models.Job{
		scheduledJob("j1", "t1", testMonday, "09:00", 60),
		scheduledJob("j2", "t2", testMonday, "09:00", 60),
		scheduledJob("j3", "t1", "2025-06-03", "13:00", 60),
		cancelled,
	}

	conflicts := CheckMultiDayConflicts(segments, jobs, "t1")

	require.Len(t, conflicts, 1)
	assert.Equal(t, "j1", conflicts[0].JobID)
	assert.Equal(t, testMonday, conflicts[0].Date)
	assert.Equal(t, 9*60, conflicts[0].ExistingStart)
	assert.Equal(t, 10*60, conflicts[0].ExistingEnd)
}

func multiDayJob(t *testing.T, id string, schedule models.MultiDaySchedule) models.Job {
	t.Helper()
	raw, err := json.Marshal(schedule)
	require.NoError(t, err)
	return models.Job{ID: id, Status: models.JobStatusScheduled, MultiDay: types.JSONText(raw)}
}

func TestJobOccursOnDate(t *testing.T) {
	plain := scheduledJob("j1", "t1", testMonday, "09:00", 60)
	assert.True(t, JobOccursOnDate(plain, testMonday))
	assert.False(t, JobOccursOnDate(plain, "2025-06-03"))

	spanning := multiDayJob(t, "j2", models.MultiDaySchedule{Segments: []models.MultiDaySegment{
		{Date: testMonday, StartMinutes: 480, EndMinutes: 960},
		{Date: "2025-06-03", StartMinutes: 480, EndMinutes: 720},
	}})
	assert.True(t, JobOccursOnDate(spanning, "2025-06-03"))
	assert.False(t, JobOccursOnDate(spanning, "2025-06-04"))
}

func TestJobsForDateIncludingMultiDay(t *testing.T) {
	spanning := multiDayJob(t, "j2", models.MultiDaySchedule{Segments: []models.MultiDaySegment{
		{Date: "2025-06-03", StartMinutes: 480, EndMinutes: 720},
	}})
	jobs := []models.Job{
		scheduledJob("j1", "t1", testMonday, "09:00", 60),
		spanning,
		scheduledJob("j3", "t1", "2025-06-04", "09:00", 60),
	}

	matched := JobsForDateIncludingMultiDay(jobs, "2025-06-03")

	require.Len(t, matched, 1)
	assert.Equal(t, "j2", matched[0].ID)
}

func TestGetSegmentForDate(t *testing.T) {
	schedule := models.MultiDaySchedule{Segments: []models.MultiDaySegment{
		{Date: testMonday, StartMinutes: 480, EndMinutes: 960},
	}}

	segment, found := GetSegmentForDate(testMonday, schedule)
	require.True(t, found)
	assert.Equal(t, 480, segment.StartMinutes)

	_, found = GetSegmentForDate("2025-06-03", schedule)
	assert.False(t, found)
}
