package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fieldserve/dispatch-api/internal/models"
)

const technicianColumns = "id, full_name, email, phone, active, skills, certifications, home_zip, timezone, max_travel_miles, max_jobs_per_day, max_hours_per_day, buffer_minutes, preferred_zones, working_hours, created_at, updated_at"

// TechnicianRepository manages persistence for technicians.
type TechnicianRepository struct {
	db *sqlx.DB
}

// NewTechnicianRepository constructs a TechnicianRepository.
func NewTechnicianRepository(db *sqlx.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

// List returns technicians matching filters along with total count.
func (r *TechnicianRepository) List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, int, error) {
	base := "FROM technicians WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}
	if filter.Skill != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(skills)", len(args)+1))
		args = append(args, filter.Skill)
	}
	if filter.Zone != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(preferred_zones)", len(args)+1))
		args = append(args, filter.Zone)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":  "full_name",
		"email":      "email",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "full_name"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", technicianColumns, base, column, order, size, offset)
	var techs []models.Technician
	if err := r.db.SelectContext(ctx, &techs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list technicians: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count technicians: %w", err)
	}

	return techs, total, nil
}

// FindByID fetches a technician by ID.
func (r *TechnicianRepository) FindByID(ctx context.Context, id string) (*models.Technician, error) {
	query := fmt.Sprintf("SELECT %s FROM technicians WHERE id = $1", technicianColumns)
	var tech models.Technician
	if err := r.db.GetContext(ctx, &tech, query, id); err != nil {
		return nil, err
	}
	return &tech, nil
}

// ListActive returns every active technician.
func (r *TechnicianRepository) ListActive(ctx context.Context) ([]models.Technician, error) {
	query := fmt.Sprintf("SELECT %s FROM technicians WHERE active = true ORDER BY full_name", technicianColumns)
	var techs []models.Technician
	if err := r.db.SelectContext(ctx, &techs, query); err != nil {
		return nil, fmt.Errorf("list active technicians: %w", err)
	}
	return techs, nil
}
