package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// JobStatus enumerates the lifecycle states of a service job.
type JobStatus string

const (
	JobStatusUnscheduled JobStatus = "unscheduled"
	JobStatusScheduled   JobStatus = "scheduled"
	JobStatusInProgress  JobStatus = "in_progress"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusCancelled   JobStatus = "cancelled"
)

// Job represents a field-service work order.
type Job struct {
	ID              string         `db:"id" json:"id"`
	CustomerName    string         `db:"customer_name" json:"customer_name"`
	Address         string         `db:"address" json:"address"`
	Zip             string         `db:"zip" json:"zip"`
	Zone            string         `db:"zone" json:"zone"`
	Lat             *float64       `db:"lat" json:"lat,omitempty"`
	Lng             *float64       `db:"lng" json:"lng,omitempty"`
	ScheduledDate   *string        `db:"scheduled_date" json:"scheduled_date,omitempty"`
	StartTime       *string        `db:"start_time" json:"start_time,omitempty"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	RequiredSkills  pq.StringArray `db:"required_skills" json:"required_skills"`
	RequiredCerts   pq.StringArray `db:"required_certs" json:"required_certs"`
	CrewSize        int            `db:"crew_size" json:"crew_size"`
	Status          JobStatus      `db:"status" json:"status"`
	AssignedTechIDs pq.StringArray `db:"assigned_tech_ids" json:"assigned_tech_ids"`
	MultiDay        types.JSONText `db:"multi_day" json:"multi_day,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// IsAssignedTo reports whether the job lists the technician in its crew.
func (j Job) IsAssignedTo(techID string) bool {
	for _, id := range j.AssignedTechIDs {
		if id == techID {
			return true
		}
	}
	return false
}

// IsActive reports whether the job still occupies calendar time.
func (j Job) IsActive() bool {
	return j.Status != JobStatusCancelled && j.Status != JobStatusCompleted
}

// RequiredCrewSize returns the crew requirement, never below one.
func (j Job) RequiredCrewSize() int {
	if j.CrewSize < 1 {
		return 1
	}
	return j.CrewSize
}

// MultiDaySchedule decodes the stored day-segment plan, if any.
func (j Job) MultiDaySchedule() (*MultiDaySchedule, bool) {
	if len(j.MultiDay) == 0 {
		return nil, false
	}
	var schedule MultiDaySchedule
	if err := json.Unmarshal(j.MultiDay, &schedule); err != nil || len(schedule.Segments) == 0 {
		return nil, false
	}
	return &schedule, true
}

// JobFilter describes query params for listing jobs.
type JobFilter struct {
	Status        string
	ScheduledDate string
	TechID        string
	Zip           string
	Unassigned    bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
