package service

import (
	"time"

	"github.com/fieldserve/dispatch-api/internal/models"
)

// multiDayHorizonDays caps segment construction so a corrupt duration can
// never loop unbounded.
const multiDayHorizonDays = 60

// CreateMultiDaySchedule splits a long job into day-segments bounded by the
// working-hours configuration, starting on startDate. Days explicitly
// disabled are skipped; unconfigured days get a default workday window.
func CreateMultiDaySchedule(startDate string, totalMinutes int, hours models.WeeklyHours) models.MultiDaySchedule {
	schedule := models.MultiDaySchedule{TotalMinutes: totalMinutes}
	remaining := SanitizeJobDuration(totalMinutes).Sanitized

	start, err := time.Parse("2006-01-02", startDate)
	if err != nil || remaining <= 0 {
		return schedule
	}

	tech := models.Technician{WorkingHours: hours}
	for offset := 0; offset < multiDayHorizonDays && remaining > 0; offset++ {
		date := start.AddDate(0, 0, offset).Format("2006-01-02")
		if !IsTechWorkingOnDay(tech, date) {
			continue
		}
		dayStart, dayEnd := dayBounds(tech, date)
		capacity := dayEnd - dayStart
		if capacity > WorkdayMinutes {
			capacity = WorkdayMinutes
		}
		portion := remaining
		if portion > capacity {
			portion = capacity
		}
		schedule.Segments = append(schedule.Segments, models.MultiDaySegment{
			Date:         date,
			StartMinutes: dayStart,
			EndMinutes:   dayStart + portion,
		})
		remaining -= portion
	}
	return schedule
}

// CheckMultiDayConflicts reports every overlap between planned segments and
// the technician's existing jobs on those days.
func CheckMultiDayConflicts(segments []models.MultiDaySegment, jobs []models.Job, techID string) []models.MultiDayConflict {
	var conflicts []models.MultiDayConflict
	for _, segment := range segments {
		for _, job := range jobs {
			if !job.IsActive() || !job.IsAssignedTo(techID) {
				continue
			}
			if job.ScheduledDate == nil || *job.ScheduledDate != segment.Date {
				continue
			}
			start, ok := jobStartMinutes(job)
			if !ok {
				continue
			}
			end := start + jobDurationOrDefault(job)
			if segment.StartMinutes < end && segment.EndMinutes > start {
				conflicts = append(conflicts, models.MultiDayConflict{
					Date:          segment.Date,
					JobID:         job.ID,
					SegmentStart:  segment.StartMinutes,
					SegmentEnd:    segment.EndMinutes,
					ExistingStart: start,
					ExistingEnd:   end,
				})
			}
		}
	}
	return conflicts
}

// GetSegmentForDate looks up the schedule's segment covering the date.
func GetSegmentForDate(date string, schedule models.MultiDaySchedule) (models.MultiDaySegment, bool) {
	for _, segment := range schedule.Segments {
		if segment.Date == date {
			return segment, true
		}
	}
	return models.MultiDaySegment{}, false
}

// JobOccursOnDate reports whether the job happens on the date, either via
// its single scheduled date or via a stored multi-day segment.
func JobOccursOnDate(job models.Job, date string) bool {
	if job.ScheduledDate != nil && *job.ScheduledDate == date {
		return true
	}
	if schedule, ok := job.MultiDaySchedule(); ok {
		if _, found := GetSegmentForDate(date, *schedule); found {
			return true
		}
	}
	return false
}

// JobsForDateIncludingMultiDay filters jobs occurring on the date, treating
// multi-day segments as occurrences.
func JobsForDateIncludingMultiDay(jobs []models.Job, date string) []models.Job {
	var result []models.Job
	for _, job := range jobs {
		if JobOccursOnDate(job, date) {
			result = append(result, job)
		}
	}
	return result
}
