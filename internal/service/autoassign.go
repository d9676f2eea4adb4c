package service

import (
	"sort"
	"strings"

	"github.com/fieldserve/dispatch-api/internal/models"
)

// eligibilityFloor excludes candidates whose score signals a fundamental
// mismatch even without a hard block.
const eligibilityFloor = -100

// AutoAssignAll batch-assigns every unassigned job for one date.
//
// Jobs are processed in a deliberate order (explicitly timed first, then
// larger crews, then longer durations) and strictly sequentially: each step
// scores technicians against a working set that already contains synthetic
// entries for crews assigned earlier in this same pass. That accumulating
// set is the only thing preventing double-booking within one run, so the
// fold must never be parallelized across jobs.
func AutoAssignAll(
	unassigned []models.Job,
	techs []models.Technician,
	existing []models.Job,
	date string,
	timeOff []models.TimeOffEntry,
	weights ScoreWeights,
) models.AutoAssignResult {
	ordered := make([]models.Job, len(unassigned))
	copy(ordered, unassigned)
	sort.SliceStable(ordered, func(i, j int) bool {
		iTimed := ordered[i].StartTime != nil
		jTimed := ordered[j].StartTime != nil
		if iTimed != jTimed {
			return iTimed
		}
		if ordered[i].RequiredCrewSize() != ordered[j].RequiredCrewSize() {
			return ordered[i].RequiredCrewSize() > ordered[j].RequiredCrewSize()
		}
		return jobDurationOrDefault(ordered[i]) > jobDurationOrDefault(ordered[j])
	})

	workingSet := make([]models.Job, len(existing))
	copy(workingSet, existing)

	result := models.AutoAssignResult{
		Assignments: make([]models.Assignment, 0, len(ordered)),
		Successful:  []models.Assignment{},
		Failed:      []models.Assignment{},
	}
	result.Summary.Total = len(ordered)

	for _, job := range ordered {
		assignment, placed := assignOne(job, techs, workingSet, date, timeOff, weights)
		result.Assignments = append(result.Assignments, assignment)

		if assignment.Failed {
			result.Failed = append(result.Failed, assignment)
			result.Summary.Unassigned++
			continue
		}

		result.Successful = append(result.Successful, assignment)
		result.Summary.Assigned++
		if assignment.IsFullyStaffed {
			result.Summary.FullyStaffed++
		} else {
			result.Summary.Understaffed++
		}
		if hasTravelWarning(assignment.Warnings) {
			result.Summary.WithTravelWarnings++
		}
		workingSet = append(workingSet, placed...)
	}

	return result
}

// assignOne scores every technician for the job against the current working
// set and picks the top candidates up to the crew requirement. It returns
// the assignment plus the synthetic working-set entries for each chosen tech.
func assignOne(
	job models.Job,
	techs []models.Technician,
	workingSet []models.Job,
	date string,
	timeOff []models.TimeOffEntry,
	weights ScoreWeights,
) (models.Assignment, []models.Job) {
	required := job.RequiredCrewSize()
	assignment := models.Assignment{
		JobID:            job.ID,
		RequiredCrewSize: required,
		Reasons:          []string{},
		Warnings:         []string{},
	}

	scores := make([]models.TechScore, 0, len(techs))
	for _, tech := range techs {
		scores = append(scores, ScoreTechForJob(tech, job, workingSet, date, timeOff, weights))
	}

	eligible := scores[:0:0]
	timeConflicts := 0
	travelConflicts := 0
	for _, s := range scores {
		if s.HasTimeConflict {
			timeConflicts++
		}
		if s.HasTravelConflict {
			travelConflicts++
		}
		if s.IsBlocked || s.HasTimeConflict || s.Score <= eligibilityFloor {
			continue
		}
		eligible = append(eligible, s)
	}

	if len(eligible) == 0 {
		assignment.Failed = true
		switch {
		case timeConflicts == len(scores) && len(scores) > 0:
			assignment.FailureReason = "all candidates have time conflicts"
		case travelConflicts > 0:
			assignment.FailureReason = "travel conflicts prevent assignment"
		default:
			assignment.FailureReason = "no technician availability"
		}
		return assignment, nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Score != eligible[j].Score {
			return eligible[i].Score > eligible[j].Score
		}
		return eligible[i].TechID < eligible[j].TechID
	})

	take := required
	if take > len(eligible) {
		take = len(eligible)
	}

	placed := make([]models.Job, 0, take)
	for _, chosen := range eligible[:take] {
		assignment.TechIDs = append(assignment.TechIDs, chosen.TechID)
		assignment.Reasons = append(assignment.Reasons, chosen.Reasons...)
		assignment.Warnings = append(assignment.Warnings, chosen.Warnings...)
		placed = append(placed, syntheticEntry(job, chosen.TechID, date))
	}
	assignment.Score = eligible[0].Score
	assignment.AssignedCrewSize = take
	assignment.IsFullyStaffed = take >= required
	return assignment, placed
}

// syntheticEntry is a copy of the job pinned to one technician and the pass
// date, so later jobs in the same pass see this tech as booked.
func syntheticEntry(job models.Job, techID, date string) models.Job {
	entry := job
	entry.Status = models.JobStatusScheduled
	entry.AssignedTechIDs = []string{techID}
	scheduled := date
	entry.ScheduledDate = &scheduled
	return entry
}

func hasTravelWarning(warnings []string) bool {
	for _, w := range warnings {
		if strings.Contains(strings.ToLower(w), "travel") {
			return true
		}
	}
	return false
}
