package models

import "time"

// Vehicle represents a crew transport option.
type Vehicle struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	PassengerCapacity int       `db:"passenger_capacity" json:"passenger_capacity"`
	Active            bool      `db:"active" json:"active"`
	AssignedTechID    *string   `db:"assigned_tech_id" json:"assigned_tech_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// VehicleFilter captures filtering options for listing vehicles.
type VehicleFilter struct {
	Active      *bool
	MinCapacity int
	Page        int
	PageSize    int
}
