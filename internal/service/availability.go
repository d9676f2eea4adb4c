package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/fieldserve/dispatch-api/internal/models"
)

// dayNameForDate returns the lowercase weekday name for a YYYY-MM-DD date.
func dayNameForDate(date string) string {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Weekday().String())
}

// IsDateBlockedByTimeOff scans the technician's time-off entries for one
// covering the date.
func IsDateBlockedByTimeOff(date, techID string, entries []models.TimeOffEntry) models.TimeOffBlock {
	for _, entry := range entries {
		if entry.TechID != techID {
			continue
		}
		if entry.Covers(date) {
			reason := entry.Reason
			if reason == "" {
				reason = "time off"
			}
			return models.TimeOffBlock{Blocked: true, Reason: reason}
		}
	}
	return models.TimeOffBlock{}
}

// IsTechWorkingOnDay reports whether the technician works on the date's
// weekday. Unconfigured working hours, or an unconfigured weekday, default
// to available; only an explicit enabled=false blocks the day.
func IsTechWorkingOnDay(tech models.Technician, date string) bool {
	if len(tech.WorkingHours) == 0 {
		return true
	}
	day, ok := tech.WorkingHours[dayNameForDate(date)]
	if !ok {
		return true
	}
	return day.Enabled
}

// workingWindow returns the technician's configured window for the date as
// minutes since midnight. configured is false when hours are absent or the
// window fails to parse, in which case the whole day is considered open.
func workingWindow(tech models.Technician, date string) (startMin, endMin int, configured bool) {
	if len(tech.WorkingHours) == 0 {
		return 0, 0, false
	}
	day, ok := tech.WorkingHours[dayNameForDate(date)]
	if !ok || !day.Enabled {
		return 0, 0, false
	}
	start, okStart := clockToMinutes(day.Start)
	end, okEnd := clockToMinutes(day.End)
	if !okStart || !okEnd || end <= start {
		return 0, 0, false
	}
	return start, end, true
}

// jobsForTechOnDate filters active jobs assigned to the technician whose
// scheduled date matches.
func jobsForTechOnDate(jobs []models.Job, techID, date string) []models.Job {
	var result []models.Job
	for _, job := range jobs {
		if !job.IsActive() || !job.IsAssignedTo(techID) {
			continue
		}
		if job.ScheduledDate == nil || *job.ScheduledDate != date {
			continue
		}
		result = append(result, job)
	}
	return result
}

// IsSlotAvailable reports whether the technician can take a window starting
// at startMinutes (minutes since midnight) for durationMinutes on the date.
// Time off and explicit days off short-circuit to false; configured working
// hours bound the window; every existing job is expanded by a travel-aware
// buffer when a concrete new-job context is supplied, else the check is a
// plain interval overlap.
func IsSlotAvailable(
	tech models.Technician,
	date string,
	startMinutes, durationMinutes int,
	existingJobs []models.Job,
	timeOff []models.TimeOffEntry,
	newJob *models.Job,
) bool {
	if block := IsDateBlockedByTimeOff(date, tech.ID, timeOff); block.Blocked {
		return false
	}
	if !IsTechWorkingOnDay(tech, date) {
		return false
	}

	endMinutes := startMinutes + durationMinutes
	if winStart, winEnd, configured := workingWindow(tech, date); configured {
		if startMinutes < winStart || endMinutes > winEnd {
			return false
		}
	}

	for _, existing := range jobsForTechOnDate(existingJobs, tech.ID, date) {
		if newJob != nil && existing.ID == newJob.ID {
			continue
		}
		existStart, ok := jobStartMinutes(existing)
		if !ok {
			continue
		}
		existEnd := existStart + jobDurationOrDefault(existing)

		bufferBefore, bufferAfter := pairBuffers(existing, newJob, tech)
		if startMinutes < existEnd+bufferAfter && endMinutes > existStart-bufferBefore {
			return false
		}
	}
	return true
}

// pairBuffers yields the idle minutes required on each side of an existing
// job. Only a concrete new-job context carries enough location data for a
// travel-aware buffer; without one the slot check degrades to plain interval
// overlap and the flat default buffer is enforced by the slot search instead.
func pairBuffers(existing models.Job, newJob *models.Job, tech models.Technician) (before, after int) {
	if newJob == nil {
		return 0, 0
	}
	return CalculateEffectiveBuffer(*newJob, existing, tech), CalculateEffectiveBuffer(existing, *newJob, tech)
}

// CheckConflicts aggregates every availability finding for one tech/job/date
// into a single report. Errors gate assignment (day off and slot overlaps are
// overridable by a dispatcher); warnings are advisory.
func CheckConflicts(
	tech models.Technician,
	job models.Job,
	date string,
	existingJobs []models.Job,
	timeOff []models.TimeOffEntry,
) models.ConflictReport {
	report := models.ConflictReport{}
	add := func(item models.ConflictItem) {
		if item.Severity == "error" {
			report.HasErrors = true
		} else {
			report.HasWarnings = true
		}
		report.Items = append(report.Items, item)
	}

	if block := IsDateBlockedByTimeOff(date, tech.ID, timeOff); block.Blocked {
		add(models.ConflictItem{
			Type:        "time_off",
			Severity:    "error",
			Message:     fmt.Sprintf("%s has time off: %s", tech.FullName, block.Reason),
			Overridable: true,
		})
	} else if !IsTechWorkingOnDay(tech, date) {
		add(models.ConflictItem{
			Type:        "day_off",
			Severity:    "error",
			Message:     fmt.Sprintf("%s does not work on %s", tech.FullName, dayNameForDate(date)),
			Overridable: true,
		})
	}

	dayJobs := jobsForTechOnDate(existingJobs, tech.ID, date)
	if tech.MaxJobsPerDay > 0 && len(dayJobs) >= tech.MaxJobsPerDay {
		add(models.ConflictItem{
			Type:     "max_jobs",
			Severity: "error",
			Message:  fmt.Sprintf("%s already has %d of %d jobs that day", tech.FullName, len(dayJobs), tech.MaxJobsPerDay),
		})
	}

	if tech.MaxHoursPerDay > 0 {
		booked := 0
		for _, existing := range dayJobs {
			booked += jobDurationOrDefault(existing)
		}
		if booked+jobDurationOrDefault(job) > tech.MaxHoursPerDay*60 {
			add(models.ConflictItem{
				Type:     "max_hours",
				Severity: "warning",
				Message:  fmt.Sprintf("assignment would exceed %s's %dh daily limit", tech.FullName, tech.MaxHoursPerDay),
			})
		}
	}

	if missing := missingSkills(tech, job); len(missing) > 0 {
		add(models.ConflictItem{
			Type:     "skill_mismatch",
			Severity: "warning",
			Message:  fmt.Sprintf("%s lacks required skills: %s", tech.FullName, strings.Join(missing, ", ")),
		})
	}

	if start, ok := jobStartMinutes(job); ok {
		if !IsSlotAvailable(tech, date, start, jobDurationOrDefault(job), existingJobs, nil, &job) {
			// Re-run without the soft gates so only a true overlap reports here.
			if overlapsExisting(tech, job, date, start, existingJobs) {
				add(models.ConflictItem{
					Type:        "time_slot",
					Severity:    "error",
					Message:     fmt.Sprintf("requested slot overlaps an existing job for %s", tech.FullName),
					Overridable: true,
				})
			}
		}
	}

	return report
}

func overlapsExisting(tech models.Technician, job models.Job, date string, start int, existingJobs []models.Job) bool {
	end := start + jobDurationOrDefault(job)
	for _, existing := range jobsForTechOnDate(existingJobs, tech.ID, date) {
		if existing.ID == job.ID {
			continue
		}
		existStart, ok := jobStartMinutes(existing)
		if !ok {
			continue
		}
		existEnd := existStart + jobDurationOrDefault(existing)
		before, after := pairBuffers(existing, &job, tech)
		if start < existEnd+after && end > existStart-before {
			return true
		}
	}
	return false
}

// missingSkills lists required skills the technician does not carry. An empty
// requirement list never mismatches.
func missingSkills(tech models.Technician, job models.Job) []string {
	var missing []string
	for _, skill := range job.RequiredSkills {
		if !tech.HasSkill(skill) {
			missing = append(missing, skill)
		}
	}
	// Any single matching skill satisfies the requirement.
	if len(missing) < len(job.RequiredSkills) {
		return nil
	}
	return missing
}
