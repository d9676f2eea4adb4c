package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-api/internal/dto"
	"github.com/fieldserve/dispatch-api/internal/models"
	appErrors "github.com/fieldserve/dispatch-api/pkg/errors"
)

type recordedAssign struct {
	jobID   string
	techIDs []string
	date    *string
}

type fakeJobRepo struct {
	byID       map[string]*models.Job
	unassigned []models.Job
	scheduled  []models.Job
	assignErr  error
	assigned   []recordedAssign
	cleared    []string
	cancelled  map[string]string
	multiDay   map[string]*models.MultiDaySchedule
}

func (f *fakeJobRepo) FindByID(_ context.Context, id string) (*models.Job, error) {
	if job, ok := f.byID[id]; ok {
		return job, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeJobRepo) ListScheduledBetween(_ context.Context, _, _ string) ([]models.Job, error) {
	return f.scheduled, nil
}

func (f *fakeJobRepo) ListUnassignedByDate(_ context.Context, _ string) ([]models.Job, error) {
	return f.unassigned, nil
}

func (f *fakeJobRepo) ListByIDs(_ context.Context, ids []string) ([]models.Job, error) {
	var out []models.Job
	for _, id := range ids {
		if job, ok := f.byID[id]; ok {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) AssignWithTx(_ context.Context, _ *sqlx.Tx, jobID string, techIDs []string, date, _ *string) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	f.assigned = append(f.assigned, recordedAssign{jobID: jobID, techIDs: techIDs, date: date})
	return nil
}

func (f *fakeJobRepo) ClearAssignmentWithTx(_ context.Context, _ *sqlx.Tx, jobID string, _ []string) error {
	f.cleared = append(f.cleared, jobID)
	return nil
}

func (f *fakeJobRepo) RescheduleWithTx(_ context.Context, _ *sqlx.Tx, jobID, date string, _ *string) error {
	return nil
}

func (f *fakeJobRepo) CancelWithTx(_ context.Context, _ *sqlx.Tx, jobID, reason string) error {
	if f.cancelled == nil {
		f.cancelled = map[string]string{}
	}
	f.cancelled[jobID] = reason
	return nil
}

func (f *fakeJobRepo) SetMultiDay(_ context.Context, jobID string, schedule *models.MultiDaySchedule) error {
	if f.multiDay == nil {
		f.multiDay = map[string]*models.MultiDaySchedule{}
	}
	f.multiDay[jobID] = schedule
	return nil
}

type fakeTechRepo struct {
	techs []models.Technician
}

func (f *fakeTechRepo) FindByID(_ context.Context, id string) (*models.Technician, error) {
	for i := range f.techs {
		if f.techs[i].ID == id {
			return &f.techs[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTechRepo) ListActive(_ context.Context) ([]models.Technician, error) {
	return f.techs, nil
}

type fakeTimeOffRepo struct {
	entries []models.TimeOffEntry
}

func (f *fakeTimeOffRepo) ListOverlapping(_ context.Context, _, _ string) ([]models.TimeOffEntry, error) {
	return f.entries, nil
}

type fakeVehicleRepo struct {
	vehicles []models.Vehicle
}

func (f *fakeVehicleRepo) ListActive(_ context.Context) ([]models.Vehicle, error) {
	return f.vehicles, nil
}

type fakeDispatchMetrics struct {
	outcomes    []string
	scoringRuns int
	slotSearch  int
}

func (f *fakeDispatchMetrics) ObserveAssignment(outcome string) {
	f.outcomes = append(f.outcomes, outcome)
}

func (f *fakeDispatchMetrics) ObserveScoring(_ time.Duration, _ int) { f.scoringRuns++ }

func (f *fakeDispatchMetrics) ObserveSlotSearch(days int) { f.slotSearch = days }

type dispatchFixture struct {
	svc      *DispatchService
	jobRepo  *fakeJobRepo
	techRepo *fakeTechRepo
	metrics  *fakeDispatchMetrics
	mock     sqlmock.Sqlmock
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	jobRepo := &fakeJobRepo{byID: map[string]*models.Job{}}
	techRepo := &fakeTechRepo{}
	metrics := &fakeDispatchMetrics{}
	svc := NewDispatchService(
		jobRepo,
		techRepo,
		&fakeTimeOffRepo{},
		&fakeVehicleRepo{},
		sqlx.NewDb(db, "sqlmock"),
		nil, nil, nil, nil,
		metrics,
		nil, nil,
		DispatchConfig{Weights: DefaultScoreWeights()},
	)
	return &dispatchFixture{svc: svc, jobRepo: jobRepo, techRepo: techRepo, metrics: metrics, mock: mock}
}

func TestDispatchServiceAutoAssignApply(t *testing.T) {
	f := newDispatchFixture(t)
	f.techRepo.techs = []models.Technician{poolTech("t1")}
	f.jobRepo.unassigned = []models.Job{{ID: "j1", DurationMinutes: 60, Zip: "75201", Status: models.JobStatusUnscheduled}}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.svc.AutoAssign(context.Background(), dto.AutoAssignRequest{Date: testMonday, Apply: true})

	require.NoError(t, err)
	require.Len(t, result.Successful, 1)
	assert.Equal(t, 1, result.Summary.Assigned)

	require.Len(t, f.jobRepo.assigned, 1)
	assert.Equal(t, "j1", f.jobRepo.assigned[0].jobID)
	assert.Equal(t, []string{"t1"}, f.jobRepo.assigned[0].techIDs)
	require.NotNil(t, f.jobRepo.assigned[0].date)
	assert.Equal(t, testMonday, *f.jobRepo.assigned[0].date)

	assert.Equal(t, []string{"assigned"}, f.metrics.outcomes)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDispatchServiceAutoAssignDryRun(t *testing.T) {
	f := newDispatchFixture(t)
	f.techRepo.techs = []models.Technician{poolTech("t1")}
	f.jobRepo.unassigned = []models.Job{{ID: "j1", DurationMinutes: 60, Zip: "75201", Status: models.JobStatusUnscheduled}}

	result, err := f.svc.AutoAssign(context.Background(), dto.AutoAssignRequest{Date: testMonday})

	require.NoError(t, err)
	assert.Len(t, result.Successful, 1)
	// Without apply nothing touches the database.
	assert.Empty(t, f.jobRepo.assigned)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDispatchServiceAutoAssignRollsBackOnFailure(t *testing.T) {
	f := newDispatchFixture(t)
	f.techRepo.techs = []models.Technician{poolTech("t1")}
	f.jobRepo.unassigned = []models.Job{{ID: "j1", DurationMinutes: 60, Zip: "75201", Status: models.JobStatusUnscheduled}}
	f.jobRepo.assignErr = errors.New("column mismatch")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.AutoAssign(context.Background(), dto.AutoAssignRequest{Date: testMonday, Apply: true})

	require.Error(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDispatchServiceAutoAssignRejectsBadDate(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.svc.AutoAssign(context.Background(), dto.AutoAssignRequest{Date: "tomorrow"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDispatchServiceScoreJobOrdersDescending(t *testing.T) {
	f := newDispatchFixture(t)
	skilled := poolTech("t1")
	skilled.Skills = []string{"hvac"}
	f.techRepo.techs = []models.Technician{poolTech("t2"), skilled}

	scores, err := f.svc.ScoreJob(context.Background(), dto.ScoreRequest{
		Date: testMonday,
		Job:  &dto.JobPayload{ID: "inline", Duration: 60, Zip: "75201", RequiredSkills: []string{"hvac"}},
	})

	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "t1", scores[0].TechID)
	assert.Greater(t, scores[0].Score, scores[1].Score)
	assert.Equal(t, 1, f.metrics.scoringRuns)
}

func TestDispatchServiceNextSlotUnknownTech(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.svc.NextSlot(context.Background(), dto.NextSlotQuery{
		TechID: "ghost", DurationMinutes: 60, StartDate: testMonday,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDispatchServiceAssignConflictGate(t *testing.T) {
	f := newDispatchFixture(t)
	f.techRepo.techs = []models.Technician{poolTech("t1")}
	job := models.Job{
		ID: "j1", DurationMinutes: 60, Zip: "75201",
		ScheduledDate: strPtr(testMonday), StartTime: strPtr("09:30"),
		Status: models.JobStatusScheduled,
	}
	f.jobRepo.byID["j1"] = &job
	f.jobRepo.scheduled = []models.Job{scheduledJob("busy", "t1", testMonday, "09:00", 60)}

	err := f.svc.Assign(context.Background(), dto.AssignRequest{JobID: "j1", TechIDs: []string{"t1"}})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.jobRepo.assigned)

	// A dispatcher override skips the gate and persists.
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	err = f.svc.Assign(context.Background(), dto.AssignRequest{JobID: "j1", TechIDs: []string{"t1"}, Override: true})

	require.NoError(t, err)
	require.Len(t, f.jobRepo.assigned, 1)
	assert.Equal(t, "j1", f.jobRepo.assigned[0].jobID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDispatchServiceRouteSheetCSV(t *testing.T) {
	f := newDispatchFixture(t)
	f.techRepo.techs = []models.Technician{poolTech("t1")}
	first := scheduledJob("j1", "t1", testMonday, "09:00", 60)
	first.CustomerName = "Acme Co"
	first.Address = "100 Main St"
	second := scheduledJob("j2", "t1", testMonday, "13:00", 90)
	second.CustomerName = "Beta LLC"
	second.Address = "200 Elm St"
	f.jobRepo.scheduled = []models.Job{first, second}

	payload, contentType, err := f.svc.RouteSheet(context.Background(), dto.RouteSheetQuery{
		TechID: "t1",
		Date:   testMonday,
		Format: "csv",
	})

	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Stop,Customer,Address,Start,Duration (min),Crew", lines[0])
	assert.Equal(t, "1,Acme Co,100 Main St,09:00,60,1", lines[1])
	assert.Equal(t, "2,Beta LLC,200 Elm St,13:00,90,1", lines[2])
}

func TestDispatchServicePlanMultiDay(t *testing.T) {
	f := newDispatchFixture(t)
	f.techRepo.techs = []models.Technician{poolTech("t1")}
	f.jobRepo.byID["j1"] = &models.Job{ID: "j1", DurationMinutes: 12 * 60, Zip: "75201"}

	schedule, err := f.svc.PlanMultiDay(context.Background(), "j1", "t1", testMonday)

	require.NoError(t, err)
	require.Len(t, schedule.Segments, 2)
	assert.Equal(t, testMonday, schedule.Segments[0].Date)
	require.Contains(t, f.jobRepo.multiDay, "j1")
}

func TestDispatchServicePlanMultiDayConflict(t *testing.T) {
	f := newDispatchFixture(t)
	f.techRepo.techs = []models.Technician{poolTech("t1")}
	f.jobRepo.byID["j1"] = &models.Job{ID: "j1", DurationMinutes: 12 * 60, Zip: "75201"}
	f.jobRepo.scheduled = []models.Job{scheduledJob("busy", "t1", testMonday, "09:00", 60)}

	_, err := f.svc.PlanMultiDay(context.Background(), "j1", "t1", testMonday)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.NotContains(t, f.jobRepo.multiDay, "j1")
}

func TestDispatchServiceCancelCleanup(t *testing.T) {
	f := newDispatchFixture(t)
	f.jobRepo.byID["j1"] = &models.Job{ID: "j1", Status: models.JobStatusScheduled}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.svc.CancelCleanup(context.Background(), dto.CancelCleanupRequest{JobID: "j1", Reason: "customer no-show"})

	require.NoError(t, err)
	assert.Equal(t, []string{"j1"}, f.jobRepo.cleared)
	assert.Equal(t, "customer no-show", f.jobRepo.cancelled["j1"])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDispatchServiceValidateUsesVehicles(t *testing.T) {
	f := newDispatchFixture(t)
	tech := poolTech("t1")
	f.techRepo.techs = []models.Technician{tech}
	f.jobRepo.byID["j1"] = &models.Job{
		ID: "j1", DurationMinutes: 60, Zip: "75201", CrewSize: 1,
		ScheduledDate: strPtr(testMonday), AssignedTechIDs: []string{"t1"},
	}

	report, err := f.svc.Validate(context.Background(), dto.ValidateRequest{JobID: "j1"})

	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 1, report.AssignedCrewSize)
}
