package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fieldserve/dispatch-api/internal/models"
)

const (
	// DefaultSuggestionHorizonDays is how far ahead suggestions are generated.
	DefaultSuggestionHorizonDays = 14
	// MaxSuggestions caps the ranked candidate list.
	MaxSuggestions = 10

	suggestionScoreFloor  = 30
	travelSqueezePenalty  = 15
	underCrewedPenalty    = 30
	atCrewCapacityPenalty = 5
	defaultDayJobCapacity = 12
)

// SuggestionOptions tunes one suggestion run.
type SuggestionOptions struct {
	HorizonDays    int
	MaxJobsPerDay  int
	PreferredTimes []string
	BufferMinutes  int
}

func (o SuggestionOptions) withDefaults() SuggestionOptions {
	if o.HorizonDays <= 0 {
		o.HorizonDays = DefaultSuggestionHorizonDays
	}
	if o.MaxJobsPerDay <= 0 {
		o.MaxJobsPerDay = defaultDayJobCapacity
	}
	if o.BufferMinutes < MinBufferMinutes {
		o.BufferMinutes = MinBufferMinutes
	}
	return o
}

// GenerateSchedulingSuggestions ranks up to MaxSuggestions day/time
// candidates for scheduling one job across the technician pool. Durations
// beyond one workday are capped for the slot search and flagged multi-day
// with an estimated day count; the job's true duration is untouched.
func GenerateSchedulingSuggestions(
	job models.Job,
	techs []models.Technician,
	existingJobs []models.Job,
	timeOff []models.TimeOffEntry,
	startDate string,
	opts SuggestionOptions,
) []models.DaySuggestion {
	opts = opts.withDefaults()

	duration := SanitizeJobDuration(job.DurationMinutes).Sanitized
	isMultiDay := duration > WorkdayMinutes
	dayCount := 0
	if isMultiDay {
		dayCount = int(math.Ceil(float64(duration) / float64(WorkdayMinutes)))
		duration = WorkdayMinutes
	}
	requiredCrew := job.RequiredCrewSize()

	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil
	}

	var suggestions []models.DaySuggestion
	for offset := 0; offset < opts.HorizonDays; offset++ {
		date := start.AddDate(0, 0, offset).Format("2006-01-02")

		working := workingTechsOn(techs, date, timeOff)
		if len(working) < requiredCrew {
			continue
		}

		dayJobs := JobsForDateIncludingMultiDay(existingJobs, date)
		activeCount := 0
		for _, existing := range dayJobs {
			if existing.IsActive() {
				activeCount++
			}
		}
		if activeCount >= opts.MaxJobsPerDay {
			continue
		}

		for _, candidate := range dayCandidates(job, date, duration, working, dayJobs, opts) {
			candidate.IsMultiDay = isMultiDay
			candidate.DayCount = dayCount
			base := baseSlotScore(date, offset, candidate.StartTime, activeCount, opts)
			adjusted := base - candidate.Penalties
			if adjusted <= suggestionScoreFloor && candidate.Penalties > 0 {
				continue
			}
			candidate.Score = adjusted
			suggestions = append(suggestions, candidate)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		if suggestions[i].Date != suggestions[j].Date {
			return suggestions[i].Date < suggestions[j].Date
		}
		return suggestions[i].StartTime < suggestions[j].StartTime
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}

// workingTechsOn filters technicians available for the date.
func workingTechsOn(techs []models.Technician, date string, timeOff []models.TimeOffEntry) []models.Technician {
	var result []models.Technician
	for _, tech := range techs {
		if !tech.Active {
			continue
		}
		if IsDateBlockedByTimeOff(date, tech.ID, timeOff).Blocked {
			continue
		}
		if !IsTechWorkingOnDay(tech, date) {
			continue
		}
		result = append(result, tech)
	}
	return result
}

// dayCandidates scans the gaps of the day's company calendar for windows
// that fit the job, attaching travel and crew penalties per candidate.
func dayCandidates(
	job models.Job,
	date string,
	duration int,
	working []models.Technician,
	dayJobs []models.Job,
	opts SuggestionOptions,
) []models.DaySuggestion {
	dayStart, dayEnd := poolDayBounds(working, date)

	type booking struct {
		start int
		end   int
		zip   string
	}
	var bookings []booking
	for _, existing := range dayJobs {
		if !existing.IsActive() {
			continue
		}
		start, ok := jobStartMinutes(existing)
		if !ok {
			continue
		}
		bookings = append(bookings, booking{
			start: start,
			end:   start + jobDurationOrDefault(existing),
			zip:   existing.Zip,
		})
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].start < bookings[j].start })

	requiredCrew := job.RequiredCrewSize()
	var candidates []models.DaySuggestion
	emit := func(windowStart, gapBefore, gapAfter int, zipBefore, zipAfter string) {
		penalties := 0
		var notes []string
		if zipBefore != "" {
			travel := EstimateTravelTimeMinutes(EstimateDistanceMiles(zipBefore, job.Zip))
			if gapBefore < travel {
				penalties += travelSqueezePenalty
				notes = append(notes, "tight travel window before slot")
			}
		}
		if zipAfter != "" {
			travel := EstimateTravelTimeMinutes(EstimateDistanceMiles(job.Zip, zipAfter))
			if gapAfter < travel {
				penalties += travelSqueezePenalty
				notes = append(notes, "tight travel window after slot")
			}
		}

		free := freeCrewAt(working, dayJobs, date, windowStart, windowStart+duration)
		if free < requiredCrew {
			penalties += underCrewedPenalty
			notes = append(notes, fmt.Sprintf("only %d of %d crew free", free, requiredCrew))
		} else if free == requiredCrew {
			penalties += atCrewCapacityPenalty
			notes = append(notes, "crew capacity exactly met")
		}

		candidates = append(candidates, models.DaySuggestion{
			Date:      date,
			StartTime: minutesToClock(windowStart),
			EndTime:   minutesToClock(windowStart + duration),
			DayName:   dayNameForDate(date),
			Penalties: penalties,
			Notes:     notes,
		})
	}

	buffer := opts.BufferMinutes
	cursor := dayStart
	prevEnd := dayStart
	prevZip := ""
	for _, b := range bookings {
		gap := b.start - cursor
		if gap >= duration+buffer {
			emit(cursor, cursor-prevEnd, b.start-(cursor+duration), prevZip, b.zip)
		}
		if b.end+buffer > cursor {
			cursor = b.end + buffer
		}
		if b.end > prevEnd {
			prevEnd = b.end
			prevZip = b.zip
		}
	}
	if dayEnd-cursor >= duration {
		emit(cursor, cursor-prevEnd, dayEnd-(cursor+duration), prevZip, "")
	}
	return candidates
}

// poolDayBounds is the widest working window of the available pool.
func poolDayBounds(working []models.Technician, date string) (int, int) {
	start, end := 0, 0
	configured := false
	for _, tech := range working {
		if s, e, ok := workingWindow(tech, date); ok {
			if !configured || s < start {
				start = s
			}
			if !configured || e > end {
				end = e
			}
			configured = true
		}
	}
	if !configured {
		return 8 * 60, 18 * 60
	}
	return start, end
}

// freeCrewAt counts technicians with no booking overlapping the window.
func freeCrewAt(working []models.Technician, dayJobs []models.Job, date string, start, end int) int {
	free := 0
	for _, tech := range working {
		busy := false
		for _, existing := range jobsForTechOnDate(dayJobs, tech.ID, date) {
			existStart, ok := jobStartMinutes(existing)
			if !ok {
				continue
			}
			existEnd := existStart + jobDurationOrDefault(existing)
			if start < existEnd && end > existStart {
				busy = true
				break
			}
		}
		if !busy {
			free++
		}
	}
	return free
}

// baseSlotScore weighs season, day workload, customer time preference, and
// how soon the date is, capped at 100.
func baseSlotScore(date string, offset int, startTime string, dayJobCount int, opts SuggestionOptions) int {
	score := 70.0

	parsed, err := time.Parse("2006-01-02", date)
	if err == nil {
		month := parsed.Month()
		// Peak season mornings book out first; nudge them up while supply lasts.
		if month >= time.May && month <= time.August {
			score += 5
		}
	}

	// Lighter days score higher.
	loadFraction := float64(dayJobCount) / float64(opts.MaxJobsPerDay)
	score += (1 - loadFraction) * 15

	if matchesPreferredTime(startTime, opts.PreferredTimes) {
		score += 15
	}

	// Sooner is better, decaying over the horizon.
	recency := 10 * (1 - float64(offset)/float64(opts.HorizonDays))
	if recency > 0 {
		score += recency
	}

	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

func matchesPreferredTime(startTime string, preferred []string) bool {
	minutes, ok := clockToMinutes(startTime)
	if !ok {
		return false
	}
	for _, pref := range preferred {
		switch pref {
		case "morning":
			if minutes < 12*60 {
				return true
			}
		case "afternoon":
			if minutes >= 12*60 && minutes < 17*60 {
				return true
			}
		case "evening":
			if minutes >= 17*60 {
				return true
			}
		default:
			if pref == startTime {
				return true
			}
		}
	}
	return false
}

// SlotCheckResult is the verdict for one manually offered time slot.
type SlotCheckResult struct {
	Available bool                  `json:"available"`
	Penalties int                   `json:"penalties"`
	Notes     []string              `json:"notes,omitempty"`
	Conflicts models.ConflictReport `json:"conflicts"`
}

type travelTimeFn func(fromZip, toZip string) int

func heuristicTravelTime(fromZip, toZip string) int {
	return EstimateTravelTimeMinutes(EstimateDistanceMiles(fromZip, toZip))
}

// CheckForConflicts evaluates one offered slot for one technician: the
// aggregate conflict report plus the same travel-squeeze penalties the
// suggestion engine applies.
func CheckForConflicts(
	job models.Job,
	tech models.Technician,
	date, startTime string,
	existingJobs []models.Job,
	timeOff []models.TimeOffEntry,
) SlotCheckResult {
	return checkForConflicts(job, tech, date, startTime, existingJobs, timeOff, heuristicTravelTime)
}

// CheckForConflictsWithDistance runs the slot check with resolver-backed
// travel times, degrading per zip pair to the heuristic when the resolver
// is absent or fails.
func CheckForConflictsWithDistance(
	ctx context.Context,
	resolver DistanceResolver,
	job models.Job,
	tech models.Technician,
	date, startTime string,
	existingJobs []models.Job,
	timeOff []models.TimeOffEntry,
) SlotCheckResult {
	return checkForConflicts(job, tech, date, startTime, existingJobs, timeOff, func(fromZip, toZip string) int {
		return ResolveDistance(ctx, resolver, fromZip, toZip).DurationMinutes
	})
}

func checkForConflicts(
	job models.Job,
	tech models.Technician,
	date, startTime string,
	existingJobs []models.Job,
	timeOff []models.TimeOffEntry,
	travelTime travelTimeFn,
) SlotCheckResult {
	start, ok := clockToMinutes(startTime)
	if !ok {
		return SlotCheckResult{
			Notes: []string{fmt.Sprintf("invalid start time %q", startTime)},
		}
	}

	candidate := job
	st := startTime
	d := date
	candidate.StartTime = &st
	candidate.ScheduledDate = &d

	report := CheckConflicts(tech, candidate, date, existingJobs, timeOff)
	result := SlotCheckResult{Conflicts: report}

	duration := jobDurationOrDefault(job)
	end := start + duration
	for _, existing := range jobsForTechOnDate(existingJobs, tech.ID, date) {
		if existing.ID == job.ID {
			continue
		}
		existStart, okStart := jobStartMinutes(existing)
		if !okStart {
			continue
		}
		existEnd := existStart + jobDurationOrDefault(existing)
		if start < existEnd && end > existStart {
			continue // already reported as a hard conflict
		}
		travel := travelTime(existing.Zip, job.Zip)
		gap := start - existEnd
		if existStart > start {
			gap = existStart - end
		}
		if gap >= 0 && gap < travel {
			result.Penalties += travelSqueezePenalty
			result.Notes = append(result.Notes, fmt.Sprintf("tight travel window around job %s", existing.ID))
		}
	}

	result.Available = !report.HasErrors
	return result
}
