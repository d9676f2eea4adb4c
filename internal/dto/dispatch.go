package dto

// JobPayload is the wire shape of a job accepted by dispatch endpoints.
// Older clients still send several spellings for the assigned technician;
// CanonicalTechIDs folds them into one canonical slice so the rest of the
// engine never has to know the variants exist.
type JobPayload struct {
	ID              string   `json:"id"`
	CustomerName    string   `json:"customerName"`
	Address         string   `json:"address"`
	Zip             string   `json:"zip"`
	Zone            string   `json:"zone"`
	Lat             *float64 `json:"lat,omitempty"`
	Lng             *float64 `json:"lng,omitempty"`
	ScheduledDate   *string  `json:"scheduledDate,omitempty"`
	StartTime       *string  `json:"startTime,omitempty"`
	Duration        any      `json:"duration,omitempty"`
	RequiredSkills  []string `json:"requiredSkills"`
	RequiredCerts   []string `json:"requiredCerts"`
	CrewSize        int      `json:"crewSize"`
	Status          string   `json:"status"`
	AssignedTechIDs []string `json:"assignedTechIds"`

	// Legacy assignment spellings, normalized at this boundary only.
	AssignedTo          *string  `json:"assignedTo,omitempty"`
	TechnicianID        *string  `json:"technicianId,omitempty"`
	AssignedTechnicians []string `json:"assignedTechnicians,omitempty"`
}

// CanonicalTechIDs merges every known assignment spelling into one
// de-duplicated slice, preferring the canonical field when present.
func (p JobPayload) CanonicalTechIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range p.AssignedTechIDs {
		add(id)
	}
	if p.AssignedTo != nil {
		add(*p.AssignedTo)
	}
	if p.TechnicianID != nil {
		add(*p.TechnicianID)
	}
	for _, id := range p.AssignedTechnicians {
		add(id)
	}
	return ids
}

// AutoAssignRequest triggers a batch assignment pass for one day.
type AutoAssignRequest struct {
	Date     string   `json:"date" validate:"required,datetime=2006-01-02"`
	JobIDs   []string `json:"jobIds"`
	Timezone string   `json:"timezone"`
	Apply    bool     `json:"apply"`
	Notify   bool     `json:"notify"`
}

// ScoreRequest scores every eligible technician against one job.
type ScoreRequest struct {
	JobID    string      `json:"jobId"`
	Job      *JobPayload `json:"job,omitempty"`
	Date     string      `json:"date" validate:"required,datetime=2006-01-02"`
	Timezone string      `json:"timezone"`
}

// NextSlotQuery finds the next open booking window for a technician.
type NextSlotQuery struct {
	TechID          string `form:"techId" json:"techId" validate:"required"`
	DurationMinutes int    `form:"durationMinutes" json:"durationMinutes" validate:"required,min=1"`
	StartDate       string `form:"startDate" json:"startDate" validate:"required,datetime=2006-01-02"`
	Timezone        string `form:"timezone" json:"timezone"`
	MaxDays         int    `form:"maxDays" json:"maxDays" validate:"omitempty,min=1,max=60"`
}

// SuggestionPreferences tunes the suggestion engine per request.
type SuggestionPreferences struct {
	MaxJobsPerDay     int      `json:"maxJobsPerDay" validate:"omitempty,min=1"`
	PreferredTimes    []string `json:"preferredTimes"`
	CustomerPreferred string   `json:"customerPreferred"`
}

// SuggestionsRequest asks for ranked day/time candidates for one job.
type SuggestionsRequest struct {
	Job         JobPayload            `json:"job" validate:"required"`
	StartDate   string                `json:"startDate" validate:"required,datetime=2006-01-02"`
	Timezone    string                `json:"timezone"`
	HorizonDays int                   `json:"horizonDays" validate:"omitempty,min=1,max=60"`
	Preferences SuggestionPreferences `json:"preferences"`
}

// SlotCheckRequest validates one manually offered time slot.
type SlotCheckRequest struct {
	Job       JobPayload `json:"job" validate:"required"`
	TechID    string     `json:"techId" validate:"required"`
	Date      string     `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string     `json:"startTime" validate:"required"`
	Timezone  string     `json:"timezone"`
}

// ValidateRequest cross-checks an assigned crew against job requirements.
type ValidateRequest struct {
	JobID    string `json:"jobId" validate:"required"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Timezone string `json:"timezone"`
}

// RouteOrderRequest orders a technician's day by location.
type RouteOrderRequest struct {
	TechID       string `json:"techId" validate:"required"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	UseOptimizer bool   `json:"useOptimizer"`
}

// AssignRequest applies one assignment decision.
type AssignRequest struct {
	JobID    string   `json:"jobId" validate:"required"`
	TechIDs  []string `json:"techIds" validate:"required,min=1"`
	Override bool     `json:"override"`
	Notify   bool     `json:"notify"`
}

// UnassignRequest clears assignment from a job.
type UnassignRequest struct {
	JobID   string   `json:"jobId" validate:"required"`
	TechIDs []string `json:"techIds"`
}

// BulkAssignItem pairs one job with its crew.
type BulkAssignItem struct {
	JobID   string   `json:"jobId" validate:"required"`
	TechIDs []string `json:"techIds" validate:"required,min=1"`
}

// BulkAssignRequest applies several assignment decisions atomically.
type BulkAssignRequest struct {
	Items  []BulkAssignItem `json:"items" validate:"required,min=1,dive"`
	Notify bool             `json:"notify"`
}

// RescheduleItem moves one job to a new date/time.
type RescheduleItem struct {
	JobID     string  `json:"jobId" validate:"required"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime *string `json:"startTime,omitempty"`
}

// BatchRescheduleRequest moves several jobs atomically.
type BatchRescheduleRequest struct {
	Items []RescheduleItem `json:"items" validate:"required,min=1,dive"`
}

// CancelCleanupRequest cancels a job and clears its assignment state.
type CancelCleanupRequest struct {
	JobID  string `json:"jobId" validate:"required"`
	Reason string `json:"reason"`
}

// StaffingQuery selects a day for the staffing summary.
type StaffingQuery struct {
	Date     string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Timezone string `form:"timezone" json:"timezone"`
}

// RouteSheetQuery selects a technician's day for export.
type RouteSheetQuery struct {
	TechID string `form:"techId" json:"techId" validate:"required"`
	Date   string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Format string `form:"format" json:"format" validate:"omitempty,oneof=pdf csv"`
}
