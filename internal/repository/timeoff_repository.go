package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fieldserve/dispatch-api/internal/models"
)

// TimeOffRepository manages persistence for technician time off.
type TimeOffRepository struct {
	db *sqlx.DB
}

// NewTimeOffRepository constructs a TimeOffRepository.
func NewTimeOffRepository(db *sqlx.DB) *TimeOffRepository {
	return &TimeOffRepository{db: db}
}

// ListOverlapping returns entries whose range touches the inclusive date
// window. An empty end date marks a single-day entry.
func (r *TimeOffRepository) ListOverlapping(ctx context.Context, from, to string) ([]models.TimeOffEntry, error) {
	const query = `SELECT id, tech_id, start_date, end_date, reason, created_at FROM time_off
		WHERE start_date <= $2 AND COALESCE(NULLIF(end_date, ''), start_date) >= $1
		ORDER BY start_date`
	var entries []models.TimeOffEntry
	if err := r.db.SelectContext(ctx, &entries, query, from, to); err != nil {
		return nil, fmt.Errorf("list time off: %w", err)
	}
	return entries, nil
}

// ListByTech returns a technician's entries from the given date forward.
func (r *TimeOffRepository) ListByTech(ctx context.Context, techID, from string) ([]models.TimeOffEntry, error) {
	const query = `SELECT id, tech_id, start_date, end_date, reason, created_at FROM time_off
		WHERE tech_id = $1 AND COALESCE(NULLIF(end_date, ''), start_date) >= $2
		ORDER BY start_date`
	var entries []models.TimeOffEntry
	if err := r.db.SelectContext(ctx, &entries, query, techID, from); err != nil {
		return nil, fmt.Errorf("list time off for technician %s: %w", techID, err)
	}
	return entries, nil
}

// Create stores a new time-off entry.
func (r *TimeOffRepository) Create(ctx context.Context, entry *models.TimeOffEntry) error {
	const query = `INSERT INTO time_off (id, tech_id, start_date, end_date, reason, created_at)
		VALUES (:id, :tech_id, :start_date, :end_date, :reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create time off: %w", err)
	}
	return nil
}

// Delete removes a time-off entry.
func (r *TimeOffRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM time_off WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete time off %s: %w", id, err)
	}
	return requireOneRow(result, "time off entry", id)
}
