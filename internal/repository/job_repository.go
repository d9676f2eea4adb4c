package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fieldserve/dispatch-api/internal/models"
)

const jobColumns = "id, customer_name, address, zip, zone, lat, lng, scheduled_date, start_time, duration_minutes, required_skills, required_certs, crew_size, status, assigned_tech_ids, multi_day, created_at, updated_at"

// JobRepository manages persistence for service jobs.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository constructs a JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// List returns jobs matching filters along with total count.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	base := "FROM jobs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ScheduledDate != "" {
		conditions = append(conditions, fmt.Sprintf("scheduled_date = $%d", len(args)+1))
		args = append(args, filter.ScheduledDate)
	}
	if filter.TechID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(assigned_tech_ids)", len(args)+1))
		args = append(args, filter.TechID)
	}
	if filter.Zip != "" {
		conditions = append(conditions, fmt.Sprintf("zip = $%d", len(args)+1))
		args = append(args, filter.Zip)
	}
	if filter.Unassigned {
		conditions = append(conditions, "COALESCE(array_length(assigned_tech_ids, 1), 0) = 0")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"scheduled_date": "scheduled_date",
		"customer_name":  "customer_name",
		"created_at":     "created_at",
		"updated_at":     "updated_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "scheduled_date"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s NULLS LAST LIMIT %d OFFSET %d", jobColumns, base, column, order, size, offset)
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	return jobs, total, nil
}

// FindByID fetches a job by ID.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE id = $1", jobColumns)
	var job models.Job
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByIDs fetches the given jobs in one round trip.
func (r *JobRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Job, error) {
	if len(ids) == 0 {
		return []models.Job{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE id = ANY($1)", jobColumns)
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, pq.StringArray(ids)); err != nil {
		return nil, fmt.Errorf("list jobs by ids: %w", err)
	}
	return jobs, nil
}

// ListScheduledBetween returns jobs scheduled inside the inclusive date
// range, plus unscheduled multi-day jobs whose segments may reach into it.
func (r *JobRepository) ListScheduledBetween(ctx context.Context, from, to string) ([]models.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs
		WHERE status NOT IN ('cancelled')
		  AND ((scheduled_date >= $1 AND scheduled_date <= $2) OR multi_day IS NOT NULL)
		ORDER BY scheduled_date, start_time NULLS LAST`, jobColumns)
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, from, to); err != nil {
		return nil, fmt.Errorf("list scheduled jobs: %w", err)
	}
	return jobs, nil
}

// ListUnassignedByDate returns active jobs on the date with no crew.
func (r *JobRepository) ListUnassignedByDate(ctx context.Context, date string) ([]models.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs
		WHERE status IN ('unscheduled', 'scheduled')
		  AND (scheduled_date = $1 OR scheduled_date IS NULL)
		  AND COALESCE(array_length(assigned_tech_ids, 1), 0) = 0
		ORDER BY start_time NULLS LAST, created_at`, jobColumns)
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, date); err != nil {
		return nil, fmt.Errorf("list unassigned jobs: %w", err)
	}
	return jobs, nil
}

// AssignWithTx sets a job's crew inside an existing transaction. Date and
// start time are only touched when provided.
func (r *JobRepository) AssignWithTx(ctx context.Context, tx *sqlx.Tx, jobID string, techIDs []string, date, startTime *string) error {
	query := `UPDATE jobs SET
		assigned_tech_ids = $2,
		scheduled_date = COALESCE($3, scheduled_date),
		start_time = COALESCE($4, start_time),
		status = 'scheduled',
		updated_at = $5
		WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, jobID, pq.StringArray(techIDs), date, startTime, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("assign job %s: %w", jobID, err)
	}
	return requireOneRow(result, "job", jobID)
}

// ClearAssignmentWithTx removes the given technicians from a job's crew, or
// the whole crew when none are named. A job left with no crew reverts to
// unscheduled.
func (r *JobRepository) ClearAssignmentWithTx(ctx context.Context, tx *sqlx.Tx, jobID string, techIDs []string) error {
	var query string
	var err error
	var result sql.Result
	if len(techIDs) == 0 {
		query = `UPDATE jobs SET assigned_tech_ids = '{}', status = 'unscheduled', updated_at = $2 WHERE id = $1`
		result, err = tx.ExecContext(ctx, query, jobID, time.Now().UTC())
	} else {
		query = `UPDATE jobs SET
			assigned_tech_ids = (SELECT COALESCE(array_agg(t), '{}') FROM unnest(assigned_tech_ids) AS t WHERE NOT (t = ANY($2))),
			updated_at = $3
			WHERE id = $1`
		result, err = tx.ExecContext(ctx, query, jobID, pq.StringArray(techIDs), time.Now().UTC())
	}
	if err != nil {
		return fmt.Errorf("clear assignment for job %s: %w", jobID, err)
	}
	return requireOneRow(result, "job", jobID)
}

// RescheduleWithTx moves a job to a new date inside an existing transaction.
func (r *JobRepository) RescheduleWithTx(ctx context.Context, tx *sqlx.Tx, jobID, date string, startTime *string) error {
	query := `UPDATE jobs SET scheduled_date = $2, start_time = $3, updated_at = $4 WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, jobID, date, startTime, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reschedule job %s: %w", jobID, err)
	}
	return requireOneRow(result, "job", jobID)
}

// CancelWithTx cancels a job inside an existing transaction.
func (r *JobRepository) CancelWithTx(ctx context.Context, tx *sqlx.Tx, jobID, reason string) error {
	query := `UPDATE jobs SET status = 'cancelled', cancellation_reason = NULLIF($2, ''), updated_at = $3 WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, jobID, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	return requireOneRow(result, "job", jobID)
}

// SetMultiDay stores a job's day-segment plan.
func (r *JobRepository) SetMultiDay(ctx context.Context, jobID string, schedule *models.MultiDaySchedule) error {
	payload, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("marshal multi-day plan for job %s: %w", jobID, err)
	}
	query := `UPDATE jobs SET multi_day = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, jobID, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store multi-day plan for job %s: %w", jobID, err)
	}
	return requireOneRow(result, "job", jobID)
}

func requireOneRow(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s %s: %w", entity, id, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s not found", entity, id)
	}
	return nil
}
