package models

// TechScore is the outcome of scoring one technician against one job.
// Scores are additive; hard blocks are carried as flags rather than errors.
type TechScore struct {
	TechID            string   `json:"tech_id"`
	TechName          string   `json:"tech_name"`
	Score             int      `json:"score"`
	Reasons           []string `json:"reasons"`
	Warnings          []string `json:"warnings"`
	IsRecommended     bool     `json:"is_recommended"`
	HasWarnings       bool     `json:"has_warnings"`
	HasTimeConflict   bool     `json:"has_time_conflict"`
	HasTravelConflict bool     `json:"has_travel_conflict"`
	IsBlocked         bool     `json:"is_blocked"`
}

// Assignment is the per-job outcome of an auto-assignment pass. It is
// ephemeral computation output, never persisted as its own entity.
type Assignment struct {
	JobID            string   `json:"job_id"`
	TechIDs          []string `json:"tech_ids"`
	Score            int      `json:"score"`
	Reasons          []string `json:"reasons"`
	Warnings         []string `json:"warnings"`
	Failed           bool     `json:"failed"`
	FailureReason    string   `json:"failure_reason,omitempty"`
	RequiredCrewSize int      `json:"required_crew_size"`
	AssignedCrewSize int      `json:"assigned_crew_size"`
	IsFullyStaffed   bool     `json:"is_fully_staffed"`
}

// AssignmentSummary aggregates one auto-assignment pass.
type AssignmentSummary struct {
	Total              int `json:"total"`
	Assigned           int `json:"assigned"`
	Unassigned         int `json:"unassigned"`
	FullyStaffed       int `json:"fully_staffed"`
	Understaffed       int `json:"understaffed"`
	WithTravelWarnings int `json:"with_travel_warnings"`
}

// AutoAssignResult is the full output of one batch pass.
type AutoAssignResult struct {
	Assignments []Assignment      `json:"assignments"`
	Successful  []Assignment      `json:"successful"`
	Failed      []Assignment      `json:"failed"`
	Summary     AssignmentSummary `json:"summary"`
}

// SlotSuggestion describes the first open booking window found for a technician.
type SlotSuggestion struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	DayName   string `json:"day_name"`
}

// DaySuggestion is one ranked day/time candidate from the suggestion engine.
type DaySuggestion struct {
	Date       string   `json:"date"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	DayName    string   `json:"day_name"`
	Score      int      `json:"score"`
	Penalties  int      `json:"penalties"`
	IsMultiDay bool     `json:"is_multi_day"`
	DayCount   int      `json:"day_count,omitempty"`
	Notes      []string `json:"notes,omitempty"`
}

// MultiDaySegment is the portion of a job scheduled on one specific day,
// bounded by minutes since midnight local to the technician.
type MultiDaySegment struct {
	Date         string `json:"date"`
	StartMinutes int    `json:"start_minutes"`
	EndMinutes   int    `json:"end_minutes"`
}

// MultiDaySchedule is an ordered plan of day-segments covering a long job.
type MultiDaySchedule struct {
	TotalMinutes int               `json:"total_minutes"`
	Segments     []MultiDaySegment `json:"segments"`
}

// MultiDayConflict reports an overlap between a planned segment and an existing job.
type MultiDayConflict struct {
	Date          string `json:"date"`
	JobID         string `json:"job_id"`
	SegmentStart  int    `json:"segment_start"`
	SegmentEnd    int    `json:"segment_end"`
	ExistingStart int    `json:"existing_start"`
	ExistingEnd   int    `json:"existing_end"`
}

// ConflictItem is one finding from the aggregate conflict check.
type ConflictItem struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	Overridable bool   `json:"overridable"`
}

// ConflictReport aggregates availability findings for one tech/job/date.
type ConflictReport struct {
	HasErrors   bool           `json:"has_errors"`
	HasWarnings bool           `json:"has_warnings"`
	Items       []ConflictItem `json:"items"`
}

// RouteLeg is one hop of an ordered route.
type RouteLeg struct {
	FromJobID       string  `json:"from_job_id"`
	ToJobID         string  `json:"to_job_id"`
	DistanceMiles   float64 `json:"distance_miles"`
	DurationMinutes int     `json:"duration_minutes"`
}

// RoutePlan is an ordered day route for one technician.
type RoutePlan struct {
	OrderedJobIDs []string   `json:"ordered_job_ids"`
	TotalDistance float64    `json:"total_distance_miles"`
	TotalDuration int        `json:"total_duration_minutes"`
	Legs          []RouteLeg `json:"legs,omitempty"`
	Fallback      bool       `json:"fallback"`
}

// ValidationIssue is one finding from assignment validation.
type ValidationIssue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ValidationReport cross-checks an assigned crew against job requirements.
type ValidationReport struct {
	Valid             bool              `json:"valid"`
	RequiredCrewSize  int               `json:"required_crew_size"`
	AssignedCrewSize  int               `json:"assigned_crew_size"`
	TechScores        []TechScore       `json:"tech_scores"`
	Issues            []ValidationIssue `json:"issues"`
	SuggestedTechIDs  []string          `json:"suggested_tech_ids,omitempty"`
	SuggestedVehicles []Vehicle         `json:"suggested_vehicles,omitempty"`
}

// StaffingSummary aggregates crew demand versus capacity for one day.
type StaffingSummary struct {
	Date           string `json:"date"`
	JobCount       int    `json:"job_count"`
	RequiredCrew   int    `json:"required_crew"`
	AssignedCrew   int    `json:"assigned_crew"`
	AvailableTechs int    `json:"available_techs"`
	CanCoverDemand bool   `json:"can_cover_demand"`
}

// DistanceResult is the outcome of a distance lookup between two locations.
type DistanceResult struct {
	DistanceMiles   float64 `json:"distance_miles"`
	DurationMinutes int     `json:"duration_minutes"`
}
