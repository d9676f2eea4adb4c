package service

import (
	"sort"
	"time"

	"github.com/fieldserve/dispatch-api/internal/models"
)

const slotScanIncrement = 30

// DefaultSlotSearchDays bounds how far ahead the slot search walks.
const DefaultSlotSearchDays = 7

type bookedInterval struct {
	start int
	end   int
}

// occupiedIntervals collects buffer-expanded busy windows for the technician
// on the date. Cancelled and completed jobs free their time.
func occupiedIntervals(tech models.Technician, date string, jobs []models.Job) []bookedInterval {
	buffer := tech.BufferMinutes
	if buffer < MinBufferMinutes {
		buffer = MinBufferMinutes
	}
	var intervals []bookedInterval
	for _, job := range jobsForTechOnDate(jobs, tech.ID, date) {
		start, ok := jobStartMinutes(job)
		if !ok {
			continue
		}
		end := start + jobDurationOrDefault(job)
		intervals = append(intervals, bookedInterval{start: start - buffer, end: end + buffer})
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].start < intervals[j].start })
	return intervals
}

// SuggestTimeSlot walks one day forward from the technician's configured
// start and returns the first window able to hold the job plus its buffer,
// or nil when the day is full.
func SuggestTimeSlot(
	tech models.Technician,
	date string,
	durationMinutes int,
	existingJobs []models.Job,
	timeOff []models.TimeOffEntry,
) *models.SlotSuggestion {
	if block := IsDateBlockedByTimeOff(date, tech.ID, timeOff); block.Blocked {
		return nil
	}
	if !IsTechWorkingOnDay(tech, date) {
		return nil
	}

	dayStart, dayEnd := dayBounds(tech, date)
	buffer := tech.BufferMinutes
	if buffer < MinBufferMinutes {
		buffer = MinBufferMinutes
	}
	needed := durationMinutes + buffer

	cursor := dayStart
	for _, interval := range occupiedIntervals(tech, date, existingJobs) {
		if interval.start-cursor >= needed {
			return buildSlot(date, cursor, durationMinutes)
		}
		if interval.end > cursor {
			cursor = interval.end
		}
	}
	if dayEnd-cursor >= needed {
		return buildSlot(date, cursor, durationMinutes)
	}
	return nil
}

// FindNextAvailableSlot searches forward day by day for the next open
// booking window. On the first search day the scan starts past "now",
// rounded up to the next half-hour in the technician's timezone.
// The sanitized duration is capped to one workday for the search, but the
// job's true duration is what the caller schedules.
func FindNextAvailableSlot(
	tech models.Technician,
	durationMinutes int,
	existingJobs []models.Job,
	startDate string,
	timezone string,
	maxDaysToSearch int,
	now time.Time,
	timeOff []models.TimeOffEntry,
) *models.SlotSuggestion {
	if maxDaysToSearch <= 0 {
		maxDaysToSearch = DefaultSlotSearchDays
	}
	searchDuration := SanitizeJobDuration(durationMinutes).Sanitized
	if searchDuration > WorkdayMinutes {
		searchDuration = WorkdayMinutes
	}
	buffer := tech.BufferMinutes
	if buffer < MinBufferMinutes {
		buffer = MinBufferMinutes
	}
	needed := searchDuration + buffer

	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil
	}
	loc := loadLocation(firstNonEmpty(timezone, tech.Timezone))
	localNow := now.In(loc)

	for offset := 0; offset < maxDaysToSearch; offset++ {
		day := start.AddDate(0, 0, offset)
		date := day.Format("2006-01-02")
		if block := IsDateBlockedByTimeOff(date, tech.ID, timeOff); block.Blocked {
			continue
		}
		if !IsTechWorkingOnDay(tech, date) {
			continue
		}

		dayStart, dayEnd := dayBounds(tech, date)
		scanFrom := dayStart
		if offset == 0 && localNow.Format("2006-01-02") == date {
			nowMinutes := localNow.Hour()*60 + localNow.Minute()
			rounded := ((nowMinutes + slotScanIncrement - 1) / slotScanIncrement) * slotScanIncrement
			if rounded > scanFrom {
				scanFrom = rounded
			}
		}

		intervals := occupiedIntervals(tech, date, existingJobs)
		for candidate := scanFrom; candidate+needed <= dayEnd; candidate += slotScanIncrement {
			if !overlapsAny(candidate, candidate+needed, intervals) {
				return buildSlot(date, candidate, searchDuration)
			}
		}
	}
	return nil
}

func overlapsAny(start, end int, intervals []bookedInterval) bool {
	for _, interval := range intervals {
		if start < interval.end && end > interval.start {
			return true
		}
	}
	return false
}

// dayBounds returns the technician's working window for the date, or a full
// open day when hours are unconfigured.
func dayBounds(tech models.Technician, date string) (int, int) {
	if start, end, configured := workingWindow(tech, date); configured {
		return start, end
	}
	return 8 * 60, 18 * 60
}

func buildSlot(date string, startMinutes, durationMinutes int) *models.SlotSuggestion {
	parsed, err := time.Parse("2006-01-02", date)
	dayName := ""
	if err == nil {
		dayName = parsed.Weekday().String()
	}
	return &models.SlotSuggestion{
		Date:      date,
		StartTime: minutesToClock(startMinutes),
		EndTime:   minutesToClock(startMinutes + durationMinutes),
		DayName:   dayName,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
