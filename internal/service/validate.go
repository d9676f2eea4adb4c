package service

import (
	"fmt"
	"sort"

	"github.com/fieldserve/dispatch-api/internal/models"
)

// FindVehiclesForCrewSize lists active vehicles able to carry the crew,
// smallest sufficient capacity first.
func FindVehiclesForCrewSize(vehicles []models.Vehicle, crewSize int) []models.Vehicle {
	var fit []models.Vehicle
	for _, vehicle := range vehicles {
		if vehicle.Active && vehicle.PassengerCapacity >= crewSize {
			fit = append(fit, vehicle)
		}
	}
	sort.Slice(fit, func(i, j int) bool { return fit[i].PassengerCapacity < fit[j].PassengerCapacity })
	return fit
}

// ValidateSchedulingAssignment cross-checks an assigned crew against the
// job's requirements: crew size, per-technician scoring flags, and vehicle
// passenger capacity. Shortfalls come back with suggested additional
// technicians and vehicles rather than bare failures.
func ValidateSchedulingAssignment(
	job models.Job,
	assigned []models.Technician,
	pool []models.Technician,
	existingJobs []models.Job,
	timeOff []models.TimeOffEntry,
	date string,
	vehicles []models.Vehicle,
	weights ScoreWeights,
) models.ValidationReport {
	required := job.RequiredCrewSize()
	report := models.ValidationReport{
		Valid:            true,
		RequiredCrewSize: required,
		AssignedCrewSize: len(assigned),
	}

	if len(assigned) < required {
		report.Valid = false
		report.Issues = append(report.Issues, models.ValidationIssue{
			Type:    "crew_shortfall",
			Message: fmt.Sprintf("job needs %d technicians, %d assigned", required, len(assigned)),
		})
	}

	assignedIDs := make(map[string]struct{}, len(assigned))
	for _, tech := range assigned {
		assignedIDs[tech.ID] = struct{}{}
		score := ScoreTechForJob(tech, job, existingJobs, date, timeOff, weights)
		report.TechScores = append(report.TechScores, score)
		if score.IsBlocked {
			report.Valid = false
			report.Issues = append(report.Issues, models.ValidationIssue{
				Type:    "tech_blocked",
				Message: fmt.Sprintf("%s has a time conflict on %s", tech.FullName, date),
			})
		} else if score.HasWarnings {
			report.Issues = append(report.Issues, models.ValidationIssue{
				Type:    "tech_warning",
				Message: fmt.Sprintf("%s: %d warnings for this assignment", tech.FullName, len(score.Warnings)),
			})
		}
	}

	if len(assigned) > 0 {
		fit := FindVehiclesForCrewSize(vehicles, len(assigned))
		if len(vehicles) > 0 && len(fit) == 0 {
			report.Valid = false
			report.Issues = append(report.Issues, models.ValidationIssue{
				Type:    "vehicle_capacity",
				Message: fmt.Sprintf("no active vehicle can carry a crew of %d", len(assigned)),
			})
		}
		report.SuggestedVehicles = fit
	}

	if shortfall := required - len(assigned); shortfall > 0 {
		report.SuggestedTechIDs = suggestAdditionalTechs(job, pool, assignedIDs, existingJobs, timeOff, date, shortfall, weights)
	}

	return report
}

// suggestAdditionalTechs ranks unassigned pool members able to fill a crew
// shortfall, best score first.
func suggestAdditionalTechs(
	job models.Job,
	pool []models.Technician,
	assignedIDs map[string]struct{},
	existingJobs []models.Job,
	timeOff []models.TimeOffEntry,
	date string,
	needed int,
	weights ScoreWeights,
) []string {
	var candidates []models.TechScore
	for _, tech := range pool {
		if _, taken := assignedIDs[tech.ID]; taken {
			continue
		}
		score := ScoreTechForJob(tech, job, existingJobs, date, timeOff, weights)
		if score.IsBlocked || score.Score <= eligibilityFloor {
			continue
		}
		candidates = append(candidates, score)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].TechID < candidates[j].TechID
	})
	if len(candidates) > needed {
		candidates = candidates[:needed]
	}
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.TechID)
	}
	return ids
}

// StaffingSummaryForDate aggregates required versus assigned crew across a
// day's jobs and reports whether available headcount can cover total demand.
func StaffingSummaryForDate(
	date string,
	jobs []models.Job,
	techs []models.Technician,
	timeOff []models.TimeOffEntry,
) models.StaffingSummary {
	summary := models.StaffingSummary{Date: date}

	for _, job := range JobsForDateIncludingMultiDay(jobs, date) {
		if !job.IsActive() {
			continue
		}
		summary.JobCount++
		summary.RequiredCrew += job.RequiredCrewSize()
		summary.AssignedCrew += len(job.AssignedTechIDs)
	}

	summary.AvailableTechs = len(workingTechsOn(techs, date, timeOff))
	summary.CanCoverDemand = summary.AvailableTechs >= summary.RequiredCrew
	return summary
}
