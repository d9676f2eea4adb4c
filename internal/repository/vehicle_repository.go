package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fieldserve/dispatch-api/internal/models"
)

const vehicleColumns = "id, name, passenger_capacity, active, assigned_tech_id, created_at, updated_at"

// VehicleRepository manages persistence for crew vehicles.
type VehicleRepository struct {
	db *sqlx.DB
}

// NewVehicleRepository constructs a VehicleRepository.
func NewVehicleRepository(db *sqlx.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// List returns vehicles matching filters.
func (r *VehicleRepository) List(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error) {
	base := "FROM vehicles WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.MinCapacity > 0 {
		conditions = append(conditions, fmt.Sprintf("passenger_capacity >= $%d", len(args)+1))
		args = append(args, filter.MinCapacity)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY passenger_capacity, name LIMIT %d OFFSET %d", vehicleColumns, base, size, offset)
	var vehicles []models.Vehicle
	if err := r.db.SelectContext(ctx, &vehicles, query, args...); err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, nil
}

// ListActive returns every active vehicle ordered by capacity.
func (r *VehicleRepository) ListActive(ctx context.Context) ([]models.Vehicle, error) {
	query := fmt.Sprintf("SELECT %s FROM vehicles WHERE active = true ORDER BY passenger_capacity, name", vehicleColumns)
	var vehicles []models.Vehicle
	if err := r.db.SelectContext(ctx, &vehicles, query); err != nil {
		return nil, fmt.Errorf("list active vehicles: %w", err)
	}
	return vehicles, nil
}
