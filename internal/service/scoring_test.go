package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-api/internal/models"
)

func fullMatchTech() models.Technician {
	return models.Technician{
		ID:             "t1",
		FullName:       "Ana Reyes",
		Skills:         []string{"hvac"},
		Certifications: []string{"epa-608"},
		HomeZip:        "75201",
		PreferredZones: []string{"north"},
		WorkingHours:   weekdayHours("08:00", "18:00"),
	}
}

func hvacJob(start string) models.Job {
	return models.Job{
		ID:              "job-1",
		Zip:             "75204",
		Zone:            "north",
		ScheduledDate:   strPtr(testMonday),
		StartTime:       strPtr(start),
		DurationMinutes: 60,
		RequiredSkills:  []string{"hvac"},
		RequiredCerts:   []string{"epa-608"},
	}
}

func TestScoreTechForJobFullMatchIsRecommended(t *testing.T) {
	result := ScoreTechForJob(fullMatchTech(), hvacJob("09:00"), nil, testMonday, nil, DefaultScoreWeights())

	assert.GreaterOrEqual(t, result.Score, 80)
	assert.True(t, result.IsRecommended)
	assert.False(t, result.HasWarnings)
	assert.False(t, result.IsBlocked)
	assert.Contains(t, result.Reasons, "has required skills")
	assert.Contains(t, result.Reasons, "job is in a preferred zone")
}

func TestScoreTechForJobOverlapPenalty(t *testing.T) {
	tech := fullMatchTech()
	weights := DefaultScoreWeights()
	job := hvacJob("09:00")

	overlapping := []models.Job{scheduledJob("j-prior", "t1", testMonday, "09:30", 60)}
	clear := []models.Job{scheduledJob("j-prior", "t1", testMonday, "13:00", 60)}
	for i := range overlapping {
		overlapping[i].Zip = "75204"
	}
	for i := range clear {
		clear[i].Zip = "75204"
	}

	conflicted := ScoreTechForJob(tech, job, overlapping, testMonday, nil, weights)
	open := ScoreTechForJob(tech, job, clear, testMonday, nil, weights)

	// Same day shape, only the overlap differs: exactly the overlap penalty.
	assert.Equal(t, weights.OverlapPenalty, open.Score-conflicted.Score)
	assert.True(t, conflicted.HasTimeConflict)
	assert.True(t, conflicted.IsBlocked)
	assert.False(t, conflicted.IsRecommended)
	assert.False(t, open.HasTimeConflict)
}

func TestScoreTechForJobDayStates(t *testing.T) {
	job := hvacJob("09:00")
	weights := DefaultScoreWeights()

	onDuty := ScoreTechForJob(fullMatchTech(), job, nil, testMonday, nil, weights)

	offDuty := fullMatchTech()
	offDuty.WorkingHours["monday"] = models.DayHours{Enabled: false}
	off := ScoreTechForJob(offDuty, job, nil, testMonday, nil, weights)

	unconfigured := fullMatchTech()
	unconfigured.WorkingHours = nil
	implied := ScoreTechForJob(unconfigured, job, nil, testMonday, nil, weights)

	assert.Greater(t, onDuty.Score, implied.Score)
	assert.Greater(t, implied.Score, off.Score)
	assert.Contains(t, off.Warnings, "not scheduled to work that day")
}

func TestScoreTechForJobSequentialLegPenaltyIsTunable(t *testing.T) {
	tech := fullMatchTech()
	// A far prior stop with enough slack to drive: the graduated leg
	// penalty applies instead of a travel conflict.
	existing := scheduledJob("j-far", tech.ID, testMonday, "08:00", 60)
	existing.Zip = "10001"
	job := hvacJob("11:00")

	base := ScoreTechForJob(tech, job, []models.Job{existing}, testMonday, nil, DefaultScoreWeights())
	require.False(t, base.HasTravelConflict)

	tuned := DefaultScoreWeights()
	tuned.MidLegPenalty = 1
	relaxed := ScoreTechForJob(tech, job, []models.Job{existing}, testMonday, nil, tuned)

	assert.Equal(t, base.Score+19, relaxed.Score)
}

func TestScoreTechForJobTimeOffIsSoftPenalty(t *testing.T) {
	timeOff := []models.TimeOffEntry{{TechID: "t1", StartDate: testMonday, EndDate: testMonday, Reason: "pto"}}

	result := ScoreTechForJob(fullMatchTech(), hvacJob("09:00"), nil, testMonday, timeOff, DefaultScoreWeights())

	// Time off drags the score but does not block; the conflict checker
	// carries the hard (overridable) error.
	assert.False(t, result.IsBlocked)
	assert.Less(t, result.Score, 80)
	assert.True(t, result.HasWarnings)
}

func TestScoreTechForJobBeyondTravelRadius(t *testing.T) {
	tech := fullMatchTech()
	tech.MaxTravelMiles = 10
	job := hvacJob("09:00")
	job.Zip = "10001" // 25 heuristic miles from home

	result := ScoreTechForJob(tech, job, nil, testMonday, nil, DefaultScoreWeights())
	assert.True(t, result.HasWarnings)
	assert.Contains(t, result.Warnings, "15 miles beyond travel radius")
}

func TestScoreTechForJobIsPure(t *testing.T) {
	tech := fullMatchTech()
	job := hvacJob("09:00")
	dayJobs := []models.Job{scheduledJob("j-prior", "t1", testMonday, "13:00", 60)}
	weights := DefaultScoreWeights()

	first := ScoreTechForJob(tech, job, dayJobs, testMonday, nil, weights)
	second := ScoreTechForJob(tech, job, dayJobs, testMonday, nil, weights)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Reasons, second.Reasons)
	require.Len(t, dayJobs, 1)
	assert.Equal(t, "13:00", *dayJobs[0].StartTime)
	assert.Equal(t, []string{"t1"}, []string(dayJobs[0].AssignedTechIDs))
}

type stubLearner struct {
	score LearningScore
	err   error
}

func (s stubLearner) CalculateLearningScore(_ context.Context, _, _ string) (LearningScore, error) {
	return s.score, s.err
}

func TestScoreTechForJobWithLearning(t *testing.T) {
	ctx := context.Background()
	tech := fullMatchTech()
	job := hvacJob("09:00")
	weights := DefaultScoreWeights()

	base := ScoreTechForJob(tech, job, nil, testMonday, nil, weights)

	boosted := ScoreTechForJobWithLearning(ctx, stubLearner{score: LearningScore{LearningBonus: 12, Insights: []string{"repeat customer match"}}}, tech, job, nil, testMonday, nil, weights)
	assert.Equal(t, base.Score+12, boosted.Score)
	assert.Contains(t, boosted.Reasons, "repeat customer match")

	// Failures leave the base result untouched.
	degraded := ScoreTechForJobWithLearning(ctx, stubLearner{err: errors.New("history store down")}, tech, job, nil, testMonday, nil, weights)
	assert.Equal(t, base.Score, degraded.Score)

	absent := ScoreTechForJobWithLearning(ctx, nil, tech, job, nil, testMonday, nil, weights)
	assert.Equal(t, base.Score, absent.Score)
}
