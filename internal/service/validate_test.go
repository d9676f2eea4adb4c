package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-api/internal/models"
)

func TestFindVehiclesForCrewSize(t *testing.T) {
	vehicles := []models.Vehicle{
		{ID: "van", Name: "Sprinter", PassengerCapacity: 8, Active: true},
		{ID: "truck", Name: "F-150", PassengerCapacity: 3, Active: true},
		{ID: "retired", Name: "Old Van", PassengerCapacity: 10, Active: false},
		{ID: "coupe", Name: "Civic", PassengerCapacity: 2, Active: true},
	}

	fit := FindVehiclesForCrewSize(vehicles, 3)

	require.Len(t, fit, 2)
	// Smallest sufficient vehicle first; inactive ones never qualify.
	assert.Equal(t, "truck", fit[0].ID)
	assert.Equal(t, "van", fit[1].ID)

	assert.Empty(t, FindVehiclesForCrewSize(vehicles, 9))
}

func TestValidateSchedulingAssignmentFullCrew(t *testing.T) {
	job := models.Job{ID: "j1", DurationMinutes: 120, CrewSize: 2, Zip: "75201"}
	assigned := []models.Technician{poolTech("t1"), poolTech("t2")}
	vehicles := []models.Vehicle{{ID: "van", PassengerCapacity: 4, Active: true}}

	report := ValidateSchedulingAssignment(job, assigned, assigned, nil, nil, testMonday, vehicles, DefaultScoreWeights())

	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.RequiredCrewSize)
	assert.Equal(t, 2, report.AssignedCrewSize)
	assert.Empty(t, report.Issues)
	assert.Len(t, report.TechScores, 2)
	require.Len(t, report.SuggestedVehicles, 1)
	assert.Equal(t, "van", report.SuggestedVehicles[0].ID)
	assert.Empty(t, report.SuggestedTechIDs)
}

func TestValidateSchedulingAssignmentCrewShortfall(t *testing.T) {
	job := models.Job{ID: "j1", DurationMinutes: 120, CrewSize: 3, Zip: "75201"}
	assigned := []models.Technician{poolTech("t1")}
	pool := []models.Technician{poolTech("t1"), poolTech("t2"), poolTech("t3")}

	report := ValidateSchedulingAssignment(job, assigned, pool, nil, nil, testMonday, nil, DefaultScoreWeights())

	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Issues)
	assert.Equal(t, "crew_shortfall", report.Issues[0].Type)
	// Both unassigned pool members fill the two open crew seats.
	assert.Equal(t, []string{"t2", "t3"}, report.SuggestedTechIDs)
}

func TestValidateSchedulingAssignmentBlockedTech(t *testing.T) {
	job := models.Job{ID: "j1", DurationMinutes: 60, StartTime: strPtr("09:30"), ScheduledDate: strPtr(testMonday), Zip: "75201"}
	tech := poolTech("t1")
	existing := []models.Job{scheduledJob("busy", tech.ID, testMonday, "09:00", 60)}

	report := ValidateSchedulingAssignment(job, []models.Technician{tech}, nil, existing, nil, testMonday, nil, DefaultScoreWeights())

	assert.False(t, report.Valid)
	found := false
	for _, issue := range report.Issues {
		if issue.Type == "tech_blocked" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateSchedulingAssignmentVehicleCapacity(t *testing.T) {
	job := models.Job{ID: "j1", DurationMinutes: 60, CrewSize: 3, Zip: "75201"}
	assigned := []models.Technician{poolTech("t1"), poolTech("t2"), poolTech("t3")}
	vehicles := []models.Vehicle{{ID: "coupe", PassengerCapacity: 2, Active: true}}

	report := ValidateSchedulingAssignment(job, assigned, assigned, nil, nil, testMonday, vehicles, DefaultScoreWeights())

	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Issues)
	assert.Equal(t, "vehicle_capacity", report.Issues[0].Type)
	assert.Empty(t, report.SuggestedVehicles)
}

func TestValidateSchedulingAssignmentNoVehicleFleet(t *testing.T) {
	// Shops without a tracked fleet skip the capacity check entirely.
	job := models.Job{ID: "j1", DurationMinutes: 60, CrewSize: 1, Zip: "75201"}

	report := ValidateSchedulingAssignment(job, []models.Technician{poolTech("t1")}, nil, nil, nil, testMonday, nil, DefaultScoreWeights())

	assert.True(t, report.Valid)
	assert.Empty(t, report.SuggestedVehicles)
}

func TestStaffingSummaryForDate(t *testing.T) {
	crew := scheduledJob("j2", "t2", testMonday, "13:00", 120)
	crew.CrewSize = 2
	cancelled := scheduledJob("j3", "t3", testMonday, "15:00", 60)
	cancelled.Status = models.JobStatusCancelled
	jobs := []models.Job{
		scheduledJob("j1", "t1", testMonday, "09:00", 60),
		crew,
		cancelled,
		scheduledJob("j4", "t1", "2025-06-03", "09:00", 60),
	}
	techs := []models.Technician{poolTech("t1"), poolTech("t2"), poolTech("t3")}
	timeOff := []models.TimeOffEntry{{TechID: "t3", StartDate: testMonday, EndDate: testMonday}}

	summary := StaffingSummaryForDate(testMonday, jobs, techs, timeOff)

	assert.Equal(t, 2, summary.JobCount)
	assert.Equal(t, 3, summary.RequiredCrew)
	assert.Equal(t, 2, summary.AssignedCrew)
	assert.Equal(t, 2, summary.AvailableTechs)
	assert.False(t, summary.CanCoverDemand)
}
