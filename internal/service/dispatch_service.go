package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fieldserve/dispatch-api/internal/dto"
	"github.com/fieldserve/dispatch-api/internal/models"
	appErrors "github.com/fieldserve/dispatch-api/pkg/errors"
	"github.com/fieldserve/dispatch-api/pkg/export"
	"github.com/fieldserve/dispatch-api/pkg/jobs"
)

type dispatchJobRepository interface {
	FindByID(ctx context.Context, id string) (*models.Job, error)
	ListScheduledBetween(ctx context.Context, from, to string) ([]models.Job, error)
	ListUnassignedByDate(ctx context.Context, date string) ([]models.Job, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Job, error)
	AssignWithTx(ctx context.Context, tx *sqlx.Tx, jobID string, techIDs []string, date, startTime *string) error
	ClearAssignmentWithTx(ctx context.Context, tx *sqlx.Tx, jobID string, techIDs []string) error
	RescheduleWithTx(ctx context.Context, tx *sqlx.Tx, jobID, date string, startTime *string) error
	CancelWithTx(ctx context.Context, tx *sqlx.Tx, jobID, reason string) error
	SetMultiDay(ctx context.Context, jobID string, schedule *models.MultiDaySchedule) error
}

type dispatchTechRepository interface {
	FindByID(ctx context.Context, id string) (*models.Technician, error)
	ListActive(ctx context.Context) ([]models.Technician, error)
}

type dispatchTimeOffRepository interface {
	ListOverlapping(ctx context.Context, from, to string) ([]models.TimeOffEntry, error)
}

type dispatchVehicleRepository interface {
	ListActive(ctx context.Context) ([]models.Vehicle, error)
}

type dispatchTxProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type dispatchMetrics interface {
	ObserveAssignment(outcome string)
	ObserveScoring(duration time.Duration, candidates int)
	ObserveSlotSearch(daysScanned int)
}

// DispatchConfig tunes engine defaults per deployment.
type DispatchConfig struct {
	DefaultTimezone       string
	DefaultBufferMinutes  int
	SlotSearchDays        int
	SuggestionHorizonDays int
	Weights               ScoreWeights
}

// DispatchService orchestrates the scheduling engine over persisted
// snapshots and translates decisions into atomic writes. All algorithmic
// work happens in the pure package-level functions; this type only loads
// snapshots, runs them, and applies results.
type DispatchService struct {
	jobs      dispatchJobRepository
	techs     dispatchTechRepository
	timeOff   dispatchTimeOffRepository
	vehicles  dispatchVehicleRepository
	tx        dispatchTxProvider
	distance  DistanceResolver
	optimizer RouteOptimizer
	learning  LearningScorer
	notify    *jobs.Queue
	metrics   dispatchMetrics
	validator *validator.Validate
	logger    *zap.Logger
	config    DispatchConfig
	now       func() time.Time
}

// NewDispatchService wires dispatch dependencies. Capabilities (distance,
// optimizer, learning, notify, metrics) may be nil; the engine degrades to
// its synchronous defaults.
func NewDispatchService(
	jobRepo dispatchJobRepository,
	techRepo dispatchTechRepository,
	timeOffRepo dispatchTimeOffRepository,
	vehicleRepo dispatchVehicleRepository,
	tx dispatchTxProvider,
	distance DistanceResolver,
	optimizer RouteOptimizer,
	learning LearningScorer,
	notifyQueue *jobs.Queue,
	metrics dispatchMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg DispatchConfig,
) *DispatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "UTC"
	}
	if cfg.SlotSearchDays <= 0 {
		cfg.SlotSearchDays = DefaultSlotSearchDays
	}
	if cfg.SuggestionHorizonDays <= 0 {
		cfg.SuggestionHorizonDays = DefaultSuggestionHorizonDays
	}
	return &DispatchService{
		jobs:      jobRepo,
		techs:     techRepo,
		timeOff:   timeOffRepo,
		vehicles:  vehicleRepo,
		tx:        tx,
		distance:  distance,
		optimizer: optimizer,
		learning:  learning,
		notify:    notifyQueue,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// snapshot is all persisted state one engine run needs, loaded up front so
// the pure functions see a consistent view.
type snapshot struct {
	techs    []models.Technician
	jobs     []models.Job
	timeOff  []models.TimeOffEntry
	vehicles []models.Vehicle
}

func (s *DispatchService) loadSnapshot(ctx context.Context, from, to string, withVehicles bool) (*snapshot, error) {
	techs, err := s.techs.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load technicians")
	}
	jobList, err := s.jobs.ListScheduledBetween(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled jobs")
	}
	timeOff, err := s.timeOff.ListOverlapping(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time off")
	}
	snap := &snapshot{techs: techs, jobs: jobList, timeOff: timeOff}
	if withVehicles && s.vehicles != nil {
		vehicles, err := s.vehicles.ListActive(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vehicles")
		}
		snap.vehicles = vehicles
	}
	return snap, nil
}

// AutoAssign runs one batch pass for the date, optionally applying the
// resulting assignments atomically.
func (s *DispatchService) AutoAssign(ctx context.Context, req dto.AutoAssignRequest) (*models.AutoAssignResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid auto-assign payload")
	}

	var unassigned []models.Job
	var err error
	if len(req.JobIDs) > 0 {
		unassigned, err = s.jobs.ListByIDs(ctx, req.JobIDs)
	} else {
		unassigned, err = s.jobs.ListUnassignedByDate(ctx, req.Date)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unassigned jobs")
	}
	if len(unassigned) == 0 {
		return &models.AutoAssignResult{
			Assignments: []models.Assignment{},
			Successful:  []models.Assignment{},
			Failed:      []models.Assignment{},
		}, nil
	}

	snap, err := s.loadSnapshot(ctx, req.Date, req.Date, false)
	if err != nil {
		return nil, err
	}

	started := s.now()
	result := AutoAssignAll(unassigned, snap.techs, snap.jobs, req.Date, snap.timeOff, s.config.Weights)
	if s.metrics != nil {
		s.metrics.ObserveScoring(s.now().Sub(started), len(snap.techs)*len(unassigned))
		for range result.Successful {
			s.metrics.ObserveAssignment("assigned")
		}
		for range result.Failed {
			s.metrics.ObserveAssignment("failed")
		}
	}

	if req.Apply && len(result.Successful) > 0 {
		if err := s.applyAssignments(ctx, req.Date, result.Successful); err != nil {
			return nil, err
		}
		if req.Notify {
			s.enqueueNotifications(result.Successful)
		}
	}

	s.logger.Info("auto-assign pass complete",
		zap.String("date", req.Date),
		zap.Int("total", result.Summary.Total),
		zap.Int("assigned", result.Summary.Assigned),
		zap.Int("unassigned", result.Summary.Unassigned),
	)
	return &result, nil
}

// applyAssignments persists a batch of assignment decisions in one
// transaction. Partial application is never observable: any failure rolls
// the whole batch back and surfaces as a whole-operation error.
func (s *DispatchService) applyAssignments(ctx context.Context, date string, assignments []models.Assignment) error {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, assignment := range assignments {
		d := date
		if err = s.jobs.AssignWithTx(ctx, tx, assignment.JobID, assignment.TechIDs, &d, nil); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to assign job %s", assignment.JobID))
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit assignment batch")
		return err
	}
	return nil
}

func (s *DispatchService) enqueueNotifications(assignments []models.Assignment) {
	if s.notify == nil {
		return
	}
	for _, assignment := range assignments {
		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    "assignment_notification",
			Payload: assignment,
		}
		if err := s.notify.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue assignment notification",
				zap.String("job_id", assignment.JobID), zap.Error(err))
		}
	}
}

// ScoreJob scores every active technician against one job, including the
// best-effort historical learning bonus when that capability is configured.
func (s *DispatchService) ScoreJob(ctx context.Context, req dto.ScoreRequest) ([]models.TechScore, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}

	job, err := s.resolveJob(ctx, req.JobID, req.Job)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot(ctx, req.Date, req.Date, false)
	if err != nil {
		return nil, err
	}

	started := s.now()
	scores := make([]models.TechScore, 0, len(snap.techs))
	for _, tech := range snap.techs {
		scores = append(scores, ScoreTechForJobWithLearning(ctx, s.learning, tech, *job, snap.jobs, req.Date, snap.timeOff, s.config.Weights))
	}
	if s.metrics != nil {
		s.metrics.ObserveScoring(s.now().Sub(started), len(scores))
	}
	sortScoresDescending(scores)
	return scores, nil
}

// NextSlot finds the next open booking window for one technician.
func (s *DispatchService) NextSlot(ctx context.Context, query dto.NextSlotQuery) (*models.SlotSuggestion, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot query")
	}

	tech, err := s.techs.FindByID(ctx, query.TechID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load technician")
	}

	maxDays := query.MaxDays
	if maxDays <= 0 {
		maxDays = s.config.SlotSearchDays
	}
	endDate, err := addDays(query.StartDate, maxDays)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}

	jobList, err := s.jobs.ListScheduledBetween(ctx, query.StartDate, endDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled jobs")
	}
	timeOff, err := s.timeOff.ListOverlapping(ctx, query.StartDate, endDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time off")
	}

	tz := firstNonEmpty(query.Timezone, tech.Timezone, s.config.DefaultTimezone)
	slot := FindNextAvailableSlot(*tech, query.DurationMinutes, jobList, query.StartDate, tz, maxDays, s.now(), timeOff)
	if s.metrics != nil {
		s.metrics.ObserveSlotSearch(maxDays)
	}
	return slot, nil
}

// Suggestions generates ranked day/time candidates for one job.
func (s *DispatchService) Suggestions(ctx context.Context, req dto.SuggestionsRequest) ([]models.DaySuggestion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid suggestions payload")
	}

	job := s.jobFromPayload(req.Job)
	horizon := req.HorizonDays
	if horizon <= 0 {
		horizon = s.config.SuggestionHorizonDays
	}
	endDate, err := addDays(req.StartDate, horizon)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}

	snap, err := s.loadSnapshot(ctx, req.StartDate, endDate, false)
	if err != nil {
		return nil, err
	}

	opts := SuggestionOptions{
		HorizonDays:    horizon,
		MaxJobsPerDay:  req.Preferences.MaxJobsPerDay,
		PreferredTimes: req.Preferences.PreferredTimes,
		BufferMinutes:  s.config.DefaultBufferMinutes,
	}
	return GenerateSchedulingSuggestions(job, snap.techs, snap.jobs, snap.timeOff, req.StartDate, opts), nil
}

// CheckSlot validates one manually offered time slot for one technician.
func (s *DispatchService) CheckSlot(ctx context.Context, req dto.SlotCheckRequest) (*SlotCheckResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot check payload")
	}

	tech, err := s.techs.FindByID(ctx, req.TechID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load technician")
	}

	snap, err := s.loadSnapshot(ctx, req.Date, req.Date, false)
	if err != nil {
		return nil, err
	}

	job := s.jobFromPayload(req.Job)
	result := CheckForConflictsWithDistance(ctx, s.distance, job, *tech, req.Date, req.StartTime, snap.jobs, snap.timeOff)
	return &result, nil
}

// Validate cross-checks a job's assigned crew against its requirements.
func (s *DispatchService) Validate(ctx context.Context, req dto.ValidateRequest) (*models.ValidationReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validate payload")
	}

	job, err := s.resolveJob(ctx, req.JobID, nil)
	if err != nil {
		return nil, err
	}
	date := req.Date
	if date == "" && job.ScheduledDate != nil {
		date = *job.ScheduledDate
	}
	if date == "" {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "job has no scheduled date to validate against")
	}

	snap, err := s.loadSnapshot(ctx, date, date, true)
	if err != nil {
		return nil, err
	}

	var assigned []models.Technician
	for _, tech := range snap.techs {
		if job.IsAssignedTo(tech.ID) {
			assigned = append(assigned, tech)
		}
	}

	report := ValidateSchedulingAssignment(*job, assigned, snap.techs, snap.jobs, snap.timeOff, date, snap.vehicles, s.config.Weights)
	return &report, nil
}

// RouteOrder orders one technician's day by location, preferring the real
// optimizer when requested and configured.
func (s *DispatchService) RouteOrder(ctx context.Context, req dto.RouteOrderRequest) (*models.RoutePlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid route payload")
	}

	tech, dayJobs, err := s.techDay(ctx, req.TechID, req.Date)
	if err != nil {
		return nil, err
	}

	start := RouteStart{Zip: tech.HomeZip}
	var plan models.RoutePlan
	if req.UseOptimizer {
		plan = SuggestRouteOrderAsync(ctx, s.optimizer, dayJobs, start)
	} else {
		plan = SuggestRouteOrder(dayJobs, start)
	}
	return &plan, nil
}

// RouteSheet renders a technician's ordered day as a printable document.
func (s *DispatchService) RouteSheet(ctx context.Context, query dto.RouteSheetQuery) ([]byte, string, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid route sheet query")
	}

	tech, dayJobs, err := s.techDay(ctx, query.TechID, query.Date)
	if err != nil {
		return nil, "", err
	}
	plan := SuggestRouteOrder(dayJobs, RouteStart{Zip: tech.HomeZip})

	byID := make(map[string]models.Job, len(dayJobs))
	for _, job := range dayJobs {
		byID[job.ID] = job
	}
	data := export.Dataset{
		Headers: []string{"Stop", "Customer", "Address", "Start", "Duration (min)", "Crew"},
	}
	for i, id := range plan.OrderedJobIDs {
		job := byID[id]
		start := ""
		if job.StartTime != nil {
			start = *job.StartTime
		}
		data.Rows = append(data.Rows, map[string]string{
			"Stop":           fmt.Sprintf("%d", i+1),
			"Customer":       job.CustomerName,
			"Address":        job.Address,
			"Start":          start,
			"Duration (min)": fmt.Sprintf("%d", job.DurationMinutes),
			"Crew":           fmt.Sprintf("%d", job.RequiredCrewSize()),
		})
	}

	switch query.Format {
	case "csv":
		payload, err := export.NewCSVExporter().Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render route sheet")
		}
		return payload, "text/csv", nil
	default:
		title := fmt.Sprintf("Route Sheet %s %s", tech.FullName, query.Date)
		payload, err := export.NewPDFExporter().Render(data, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render route sheet")
		}
		return payload, "application/pdf", nil
	}
}

// StaffingSummary aggregates crew demand versus availability for one day.
func (s *DispatchService) StaffingSummary(ctx context.Context, query dto.StaffingQuery) (*models.StaffingSummary, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staffing query")
	}
	snap, err := s.loadSnapshot(ctx, query.Date, query.Date, false)
	if err != nil {
		return nil, err
	}
	summary := StaffingSummaryForDate(query.Date, snap.jobs, snap.techs, snap.timeOff)
	return &summary, nil
}

// PlanMultiDay builds and stores a day-segment plan for a long job, failing
// when the plan collides with the technician's existing bookings.
func (s *DispatchService) PlanMultiDay(ctx context.Context, jobID, techID, startDate string) (*models.MultiDaySchedule, error) {
	if jobID == "" || techID == "" || startDate == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "jobId, techId and startDate are required")
	}

	job, err := s.resolveJob(ctx, jobID, nil)
	if err != nil {
		return nil, err
	}
	tech, err := s.techs.FindByID(ctx, techID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load technician")
	}

	schedule := CreateMultiDaySchedule(startDate, job.DurationMinutes, tech.WorkingHours)
	if len(schedule.Segments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no working days available for the requested start date")
	}

	endDate := schedule.Segments[len(schedule.Segments)-1].Date
	existing, err := s.jobs.ListScheduledBetween(ctx, startDate, endDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled jobs")
	}
	if conflicts := CheckMultiDayConflicts(schedule.Segments, existing, techID); len(conflicts) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("plan collides with %d existing booking(s)", len(conflicts)))
	}

	if err := s.jobs.SetMultiDay(ctx, jobID, &schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store multi-day plan")
	}
	return &schedule, nil
}

// Assign applies one assignment decision, gated by the conflict checker
// unless the dispatcher overrides.
func (s *DispatchService) Assign(ctx context.Context, req dto.AssignRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assign payload")
	}

	job, err := s.resolveJob(ctx, req.JobID, nil)
	if err != nil {
		return err
	}

	if !req.Override && job.ScheduledDate != nil {
		date := *job.ScheduledDate
		snap, err := s.loadSnapshot(ctx, date, date, false)
		if err != nil {
			return err
		}
		for _, tech := range snap.techs {
			for _, techID := range req.TechIDs {
				if tech.ID != techID {
					continue
				}
				report := CheckConflicts(tech, *job, date, snap.jobs, snap.timeOff)
				if report.HasErrors {
					return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("assignment conflicts for %s; pass override to force", tech.FullName))
				}
			}
		}
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.jobs.AssignWithTx(ctx, tx, req.JobID, req.TechIDs, job.ScheduledDate, job.StartTime)
	})
}

// Unassign clears one job's crew, or specific members when given.
func (s *DispatchService) Unassign(ctx context.Context, req dto.UnassignRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unassign payload")
	}
	if _, err := s.resolveJob(ctx, req.JobID, nil); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.jobs.ClearAssignmentWithTx(ctx, tx, req.JobID, req.TechIDs)
	})
}

// BulkAssign applies several assignment decisions in one transaction.
func (s *DispatchService) BulkAssign(ctx context.Context, req dto.BulkAssignRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk assign payload")
	}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, item := range req.Items {
			if err := s.jobs.AssignWithTx(ctx, tx, item.JobID, item.TechIDs, nil, nil); err != nil {
				return fmt.Errorf("assign job %s: %w", item.JobID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if req.Notify {
		for _, item := range req.Items {
			s.enqueueNotifications([]models.Assignment{{JobID: item.JobID, TechIDs: item.TechIDs}})
		}
	}
	return nil
}

// BatchReschedule moves several jobs in one transaction.
func (s *DispatchService) BatchReschedule(ctx context.Context, req dto.BatchRescheduleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, item := range req.Items {
			if err := s.jobs.RescheduleWithTx(ctx, tx, item.JobID, item.Date, item.StartTime); err != nil {
				return fmt.Errorf("reschedule job %s: %w", item.JobID, err)
			}
		}
		return nil
	})
}

// CancelCleanup cancels a job and clears its assignment state in one
// transaction so the freed time is immediately schedulable.
func (s *DispatchService) CancelCleanup(ctx context.Context, req dto.CancelCleanupRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancel payload")
	}
	if _, err := s.resolveJob(ctx, req.JobID, nil); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.jobs.ClearAssignmentWithTx(ctx, tx, req.JobID, nil); err != nil {
			return err
		}
		return s.jobs.CancelWithTx(ctx, tx, req.JobID, req.Reason)
	})
}

// techDay loads one technician plus their ordered-day inputs.
func (s *DispatchService) techDay(ctx context.Context, techID, date string) (*models.Technician, []models.Job, error) {
	tech, err := s.techs.FindByID(ctx, techID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load technician")
	}
	jobList, err := s.jobs.ListScheduledBetween(ctx, date, date)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled jobs")
	}
	var dayJobs []models.Job
	for _, job := range JobsForDateIncludingMultiDay(jobList, date) {
		if job.IsActive() && job.IsAssignedTo(techID) {
			dayJobs = append(dayJobs, job)
		}
	}
	return tech, dayJobs, nil
}

func (s *DispatchService) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "transaction failed")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

// resolveJob loads a job by id or builds one from an inline payload,
// normalizing input durations and legacy assignment fields at this boundary.
func (s *DispatchService) resolveJob(ctx context.Context, jobID string, payload *dto.JobPayload) (*models.Job, error) {
	if payload != nil {
		job := s.jobFromPayload(*payload)
		return &job, nil
	}
	if jobID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "jobId or inline job required")
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load job")
	}
	return job, nil
}

func (s *DispatchService) jobFromPayload(payload dto.JobPayload) models.Job {
	minutes, note := parseDuration(payload.Duration)
	if note != "" {
		s.logger.Warn("job duration normalized", zap.String("job_id", payload.ID), zap.String("note", note))
	}
	status := models.JobStatus(payload.Status)
	if status == "" {
		status = models.JobStatusUnscheduled
	}
	return models.Job{
		ID:              payload.ID,
		CustomerName:    payload.CustomerName,
		Address:         payload.Address,
		Zip:             payload.Zip,
		Zone:            payload.Zone,
		Lat:             payload.Lat,
		Lng:             payload.Lng,
		ScheduledDate:   payload.ScheduledDate,
		StartTime:       payload.StartTime,
		DurationMinutes: SanitizeJobDuration(minutes).Sanitized,
		RequiredSkills:  payload.RequiredSkills,
		RequiredCerts:   payload.RequiredCerts,
		CrewSize:        payload.CrewSize,
		Status:          status,
		AssignedTechIDs: payload.CanonicalTechIDs(),
	}
}

func sortScoresDescending(scores []models.TechScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].TechID < scores[j].TechID
	})
}

func addDays(date string, days int) (string, error) {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", err
	}
	return parsed.AddDate(0, 0, days).Format("2006-01-02"), nil
}
