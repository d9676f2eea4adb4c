package service

import (
	"context"
	"fmt"
	"math"

	"github.com/fieldserve/dispatch-api/internal/models"
)

// ScoreWeights tunes every contribution of the scoring engine. Zero values
// are replaced by defaults so a partially configured struct stays sane.
type ScoreWeights struct {
	TimeOffPenalty        int
	CrewShortfallPenalty  int
	SkillMatch            int
	CertMatch             int
	DayExplicitOn         int
	DayExplicitOff        int
	JobCapacityMax        int
	AtCapacityPenalty     int
	OverHoursPenalty      int
	WorkloadBalanceMax    int
	ProximityBonus        int
	CloseProximityBonus   int
	ClusterBonus          int
	PerMileOverPenalty    int
	PreferredZoneBonus    int
	OverlapPenalty        int
	TravelConflictPenalty int
	FarLegPenalty         int
	MidLegPenalty         int
	NearLegPenalty        int
	RecommendedThreshold  int
}

// DefaultScoreWeights returns the production defaults.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		TimeOffPenalty:        200,
		CrewShortfallPenalty:  100,
		SkillMatch:            50,
		CertMatch:             30,
		DayExplicitOn:         40,
		DayExplicitOff:        50,
		JobCapacityMax:        30,
		AtCapacityPenalty:     50,
		OverHoursPenalty:      30,
		WorkloadBalanceMax:    20,
		ProximityBonus:        25,
		CloseProximityBonus:   10,
		ClusterBonus:          5,
		PerMileOverPenalty:    2,
		PreferredZoneBonus:    15,
		OverlapPenalty:        500,
		TravelConflictPenalty: 300,
		FarLegPenalty:         40,
		MidLegPenalty:         20,
		NearLegPenalty:        5,
		RecommendedThreshold:  80,
	}
}

func (w ScoreWeights) withDefaults() ScoreWeights {
	defaults := DefaultScoreWeights()
	if w.TimeOffPenalty == 0 {
		w.TimeOffPenalty = defaults.TimeOffPenalty
	}
	if w.CrewShortfallPenalty == 0 {
		w.CrewShortfallPenalty = defaults.CrewShortfallPenalty
	}
	if w.SkillMatch == 0 {
		w.SkillMatch = defaults.SkillMatch
	}
	if w.CertMatch == 0 {
		w.CertMatch = defaults.CertMatch
	}
	if w.DayExplicitOn == 0 {
		w.DayExplicitOn = defaults.DayExplicitOn
	}
	if w.DayExplicitOff == 0 {
		w.DayExplicitOff = defaults.DayExplicitOff
	}
	if w.JobCapacityMax == 0 {
		w.JobCapacityMax = defaults.JobCapacityMax
	}
	if w.AtCapacityPenalty == 0 {
		w.AtCapacityPenalty = defaults.AtCapacityPenalty
	}
	if w.OverHoursPenalty == 0 {
		w.OverHoursPenalty = defaults.OverHoursPenalty
	}
	if w.WorkloadBalanceMax == 0 {
		w.WorkloadBalanceMax = defaults.WorkloadBalanceMax
	}
	if w.ProximityBonus == 0 {
		w.ProximityBonus = defaults.ProximityBonus
	}
	if w.CloseProximityBonus == 0 {
		w.CloseProximityBonus = defaults.CloseProximityBonus
	}
	if w.ClusterBonus == 0 {
		w.ClusterBonus = defaults.ClusterBonus
	}
	if w.PerMileOverPenalty == 0 {
		w.PerMileOverPenalty = defaults.PerMileOverPenalty
	}
	if w.PreferredZoneBonus == 0 {
		w.PreferredZoneBonus = defaults.PreferredZoneBonus
	}
	if w.OverlapPenalty == 0 {
		w.OverlapPenalty = defaults.OverlapPenalty
	}
	if w.TravelConflictPenalty == 0 {
		w.TravelConflictPenalty = defaults.TravelConflictPenalty
	}
	if w.FarLegPenalty == 0 {
		w.FarLegPenalty = defaults.FarLegPenalty
	}
	if w.MidLegPenalty == 0 {
		w.MidLegPenalty = defaults.MidLegPenalty
	}
	if w.NearLegPenalty == 0 {
		w.NearLegPenalty = defaults.NearLegPenalty
	}
	if w.RecommendedThreshold == 0 {
		w.RecommendedThreshold = defaults.RecommendedThreshold
	}
	return w
}

const defaultMaxJobsPerDay = 8

// ScoreTechForJob computes the additive multi-factor score for pairing one
// technician with one job on a date. Contributions apply in a fixed order;
// hard blocks (direct overlaps) surface as flags, never as errors, so the
// caller decides whether they exclude the candidate. The function is pure:
// identical inputs always produce identical output.
func ScoreTechForJob(
	tech models.Technician,
	job models.Job,
	dayJobs []models.Job,
	date string,
	timeOff []models.TimeOffEntry,
	weights ScoreWeights,
) models.TechScore {
	w := weights.withDefaults()
	result := models.TechScore{
		TechID:   tech.ID,
		TechName: tech.FullName,
		Reasons:  []string{},
		Warnings: []string{},
	}
	score := 0.0

	// Time off is a soft penalty here; the conflict checker carries the hard
	// overridable error. Scoring ranks, conflicts gate.
	if block := IsDateBlockedByTimeOff(date, tech.ID, timeOff); block.Blocked {
		score -= float64(w.TimeOffPenalty)
		result.Warnings = append(result.Warnings, fmt.Sprintf("on time off (%s)", block.Reason))
	}

	if required := job.RequiredCrewSize(); required > 1 {
		score -= float64(w.CrewShortfallPenalty * (required - 1))
		result.Warnings = append(result.Warnings, fmt.Sprintf("job needs a crew of %d", required))
	}

	if len(job.RequiredSkills) == 0 || hasAnySkill(tech, job.RequiredSkills) {
		score += float64(w.SkillMatch)
		if len(job.RequiredSkills) > 0 {
			result.Reasons = append(result.Reasons, "has required skills")
		}
	} else {
		result.Warnings = append(result.Warnings, "missing required skills")
	}

	if len(job.RequiredCerts) == 0 || hasAnyCert(tech, job.RequiredCerts) {
		score += float64(w.CertMatch)
		if len(job.RequiredCerts) > 0 {
			result.Reasons = append(result.Reasons, "has required certifications")
		}
	} else {
		result.Warnings = append(result.Warnings, "missing required certifications")
	}

	switch dayAvailability(tech, date) {
	case dayExplicitOn:
		score += float64(w.DayExplicitOn)
		result.Reasons = append(result.Reasons, "scheduled to work that day")
	case dayExplicitOff:
		score -= float64(w.DayExplicitOff)
		result.Warnings = append(result.Warnings, "not scheduled to work that day")
	case dayUnconfigured:
		score += float64(w.DayExplicitOn) * 0.8
	}

	techDayJobs := jobsForTechOnDate(dayJobs, tech.ID, date)
	jobCount := len(techDayJobs)
	maxJobs := tech.MaxJobsPerDay
	if maxJobs <= 0 {
		maxJobs = defaultMaxJobsPerDay
	}
	if jobCount >= maxJobs {
		score -= float64(w.AtCapacityPenalty)
		result.Warnings = append(result.Warnings, fmt.Sprintf("at daily job limit (%d)", maxJobs))
	} else {
		free := float64(maxJobs-jobCount) / float64(maxJobs)
		score += float64(w.JobCapacityMax) * free
	}

	if tech.MaxHoursPerDay > 0 {
		booked := 0
		for _, existing := range techDayJobs {
			booked += jobDurationOrDefault(existing)
		}
		if booked+jobDurationOrDefault(job) > tech.MaxHoursPerDay*60 {
			score -= float64(w.OverHoursPenalty)
			result.Warnings = append(result.Warnings, fmt.Sprintf("would exceed %dh daily limit", tech.MaxHoursPerDay))
		}
	}

	balance := 1 - float64(jobCount)/float64(maxJobs)
	if balance > 0 {
		score += float64(w.WorkloadBalanceMax) * balance
	}

	score += proximityContribution(tech, job, techDayJobs, w, &result)

	if tech.PrefersZone(job.Zone) {
		score += float64(w.PreferredZoneBonus)
		result.Reasons = append(result.Reasons, "job is in a preferred zone")
	}

	if start, ok := jobStartMinutes(job); ok {
		end := start + jobDurationOrDefault(job)
		for _, existing := range techDayJobs {
			if existing.ID == job.ID {
				continue
			}
			existStart, okStart := jobStartMinutes(existing)
			if !okStart {
				continue
			}
			existEnd := existStart + jobDurationOrDefault(existing)
			if start < existEnd && end > existStart {
				score -= float64(w.OverlapPenalty)
				result.HasTimeConflict = true
				result.Warnings = append(result.Warnings, fmt.Sprintf("overlaps job %s", existing.ID))
				continue
			}
			if !CheckTravelFeasibility(job, existing, tech) {
				score -= float64(w.TravelConflictPenalty)
				result.HasTravelConflict = true
				result.Warnings = append(result.Warnings, fmt.Sprintf("not enough travel time around job %s", existing.ID))
				continue
			}
			travel := EstimateTravelTimeMinutes(EstimateDistanceMiles(job.Zip, existing.Zip))
			switch {
			case travel > 45:
				score -= float64(w.FarLegPenalty)
			case travel > 30:
				score -= float64(w.MidLegPenalty)
			case travel > 15:
				score -= float64(w.NearLegPenalty)
			}
		}
	}

	result.Score = int(math.Round(score))
	result.IsBlocked = result.HasTimeConflict
	result.HasWarnings = len(result.Warnings) > 0
	result.IsRecommended = result.Score >= w.RecommendedThreshold &&
		!result.HasWarnings && !result.IsBlocked && !result.HasTravelConflict
	return result
}

type dayState int

const (
	dayUnconfigured dayState = iota
	dayExplicitOn
	dayExplicitOff
)

func dayAvailability(tech models.Technician, date string) dayState {
	if len(tech.WorkingHours) == 0 {
		return dayUnconfigured
	}
	day, ok := tech.WorkingHours[dayNameForDate(date)]
	if !ok {
		return dayUnconfigured
	}
	if day.Enabled {
		return dayExplicitOn
	}
	return dayExplicitOff
}

func hasAnySkill(tech models.Technician, required []string) bool {
	for _, skill := range required {
		if tech.HasSkill(skill) {
			return true
		}
	}
	return false
}

func hasAnyCert(tech models.Technician, required []string) bool {
	for _, cert := range required {
		if tech.HasCertification(cert) {
			return true
		}
	}
	return false
}

func proximityContribution(
	tech models.Technician,
	job models.Job,
	techDayJobs []models.Job,
	w ScoreWeights,
	result *models.TechScore,
) float64 {
	miles := EstimateDistanceMiles(tech.HomeZip, job.Zip)
	radius := float64(tech.MaxTravelMiles)
	if radius <= 0 {
		radius = defaultFarMiles
	}
	if miles > radius {
		over := miles - radius
		result.Warnings = append(result.Warnings, fmt.Sprintf("%.0f miles beyond travel radius", over))
		return -over * float64(w.PerMileOverPenalty)
	}

	contribution := float64(w.ProximityBonus)
	result.Reasons = append(result.Reasons, fmt.Sprintf("within travel radius (~%.0f mi)", miles))
	if miles <= 10 {
		contribution += float64(w.CloseProximityBonus)
	}
	for _, existing := range techDayJobs {
		if existing.ID == job.ID {
			continue
		}
		if EstimateDistanceMiles(existing.Zip, job.Zip) <= 10 {
			contribution += float64(w.ClusterBonus)
			result.Reasons = append(result.Reasons, "near another job that day")
			break
		}
	}
	return contribution
}

// LearningScore is the historical-learning service's verdict for a pairing.
type LearningScore struct {
	LearningBonus int      `json:"learning_bonus"`
	Insights      []string `json:"insights"`
}

// LearningScorer supplies historical performance insight for a tech/job pair.
type LearningScorer interface {
	CalculateLearningScore(ctx context.Context, techID, jobID string) (LearningScore, error)
}

// ScoreTechForJobWithLearning augments the base score with a historical
// learning bonus. The learning service is best-effort: on failure the base
// result is returned untouched.
func ScoreTechForJobWithLearning(
	ctx context.Context,
	scorer LearningScorer,
	tech models.Technician,
	job models.Job,
	dayJobs []models.Job,
	date string,
	timeOff []models.TimeOffEntry,
	weights ScoreWeights,
) models.TechScore {
	base := ScoreTechForJob(tech, job, dayJobs, date, timeOff, weights)
	if scorer == nil {
		return base
	}
	insight, err := scorer.CalculateLearningScore(ctx, tech.ID, job.ID)
	if err != nil {
		return base
	}
	base.Score += insight.LearningBonus
	for _, note := range insight.Insights {
		if insight.LearningBonus >= 0 {
			base.Reasons = append(base.Reasons, note)
		} else {
			base.Warnings = append(base.Warnings, note)
		}
	}
	base.HasWarnings = len(base.Warnings) > 0
	return base
}
