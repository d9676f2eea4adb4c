package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func jobRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "customer_name", "address", "zip", "zone", "lat", "lng",
		"scheduled_date", "start_time", "duration_minutes", "required_skills",
		"required_certs", "crew_size", "status", "assigned_tech_ids",
		"multi_day", "created_at", "updated_at",
	})
}

func TestJobRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	rows := jobRows().AddRow(
		"job-1", "Acme HVAC", "100 Main St", "75201", "north", nil, nil,
		"2025-06-02", "09:00", 120, "{hvac}", "{}", 2, "scheduled", "{tech-1,tech-2}",
		nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, customer_name")).
		WithArgs("scheduled", "tech-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("scheduled", "tech-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	jobs, total, err := repo.List(context.Background(), models.JobFilter{Status: "scheduled", TechID: "tech-1"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, jobs, 1)
	require.Equal(t, "job-1", jobs[0].ID)
	require.Equal(t, []string{"tech-1", "tech-2"}, []string(jobs[0].AssignedTechIDs))
	require.Equal(t, models.JobStatusScheduled, jobs[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, customer_name")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryListByIDsEmptyShortCircuits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	jobs, err := repo.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, jobs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryListScheduledBetween(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	rows := jobRows().AddRow(
		"job-1", "Acme HVAC", "100 Main St", "75201", "", nil, nil,
		"2025-06-02", "09:00", 60, "{}", "{}", 1, "scheduled", "{tech-1}",
		nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery("SELECT .+ FROM jobs").
		WithArgs("2025-06-02", "2025-06-08").
		WillReturnRows(rows)

	jobs, err := repo.ListScheduledBetween(context.Background(), "2025-06-02", "2025-06-08")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryAssignWithTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET")).
		WithArgs("job-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	date := "2025-06-02"
	require.NoError(t, repo.AssignWithTx(context.Background(), tx, "job-1", []string{"tech-1"}, &date, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryAssignWithTxMissingJob(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET")).
		WithArgs("ghost", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	err = repo.AssignWithTx(context.Background(), tx, "ghost", []string{"tech-1"}, nil, nil)
	require.ErrorContains(t, err, "not found")
}

func TestJobRepositoryClearAssignmentPartial(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("unnest(assigned_tech_ids)")).
		WithArgs("job-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.ClearAssignmentWithTx(context.Background(), tx, "job-1", []string{"tech-2"}))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryCancelWithTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("status = 'cancelled'")).
		WithArgs("job-1", "customer no-show", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.CancelWithTx(context.Background(), tx, "job-1", "customer no-show"))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositorySetMultiDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("multi_day = $2")).
		WithArgs("job-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	schedule := &models.MultiDaySchedule{
		TotalMinutes: 960,
		Segments: []models.MultiDaySegment{
			{Date: "2025-06-02", StartMinutes: 480, EndMinutes: 960},
			{Date: "2025-06-03", StartMinutes: 480, EndMinutes: 960},
		},
	}
	require.NoError(t, repo.SetMultiDay(context.Background(), "job-1", schedule))
	require.NoError(t, mock.ExpectationsWereMet())
}
