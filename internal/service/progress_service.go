package service

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aleks-coins-api/internal/models"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
	"github.com/noah-isme/aleks-coins-api/pkg/jobs"
)

type progressRepository interface {
	UpsertRecords(ctx context.Context, records []models.StudentPeriodRecord) error
	Get(ctx context.Context, periodKey, sectionID, studentID string) (*models.StudentPeriodRecord, error)
	ListByPeriodSection(ctx context.Context, periodKey, sectionID string) ([]models.StudentPeriodRecord, error)
}

type periodReader interface {
	GetByKey(ctx context.Context, key string) (*models.Period, error)
}

type overrideReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.DayOverride, error)
	ListAll(ctx context.Context) ([]models.DayOverride, error)
}

type refreshQueue interface {
	Enqueue(job jobs.Job) error
}

// ProgressService turns uploaded activity rows into day qualification
// records and serves override-corrected progress.
type ProgressService struct {
	repo       progressRepository
	periods    periodReader
	overrides  overrideReader
	queue      refreshQueue
	thresholds Thresholds
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
}

// NewProgressService constructs the progress service.
func NewProgressService(repo progressRepository, periods periodReader, overrides overrideReader, queue refreshQueue, thresholds Thresholds, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *ProgressService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		repo:       repo,
		periods:    periods,
		overrides:  overrides,
		queue:      queue,
		thresholds: thresholds,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
	}
}

// UploadRequest carries parsed spreadsheet rows for one period+section.
type UploadRequest struct {
	PeriodKey string             `json:"period_key" validate:"required"`
	SectionID string             `json:"section_id" validate:"required"`
	Rows      []models.UploadRow `json:"rows" validate:"required,min=1"`
}

// ProcessUpload qualifies every observed day for every row and merges the
// resulting records into the store. Rows without a student id or name are
// skipped and counted, never fatal to the batch.
func (s *ProgressService) ProcessUpload(ctx context.Context, req UploadRequest) (*models.UploadSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload payload")
	}

	period, err := s.periods.GetByKey(ctx, req.PeriodKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrMissingPeriod, "period "+req.PeriodKey+" is not configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}

	calendar, err := BuildPeriodCalendar(period.StartDate, period.EndDate, period.ExcludedDates)
	if err != nil {
		return nil, err
	}

	records := make([]models.StudentPeriodRecord, 0, len(req.Rows))
	skipped := 0
	for _, row := range req.Rows {
		studentID := strings.ToLower(strings.TrimSpace(row.StudentID))
		name := strings.TrimSpace(row.Name)
		if studentID == "" || name == "" {
			skipped++
			continue
		}
		records = append(records, s.buildRecord(req.PeriodKey, req.SectionID, studentID, name, row, calendar))
	}

	if err := s.repo.UpsertRecords(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to merge upload")
	}

	s.metrics.RecordUpload(len(records), skipped)
	if skipped > 0 {
		s.logger.Sugar().Warnw("upload rows skipped", "period", req.PeriodKey, "section", req.SectionID, "skipped", skipped)
	}
	s.notifyChanged()

	return &models.UploadSummary{Students: len(records), Skipped: skipped}, nil
}

func (s *ProgressService) buildRecord(periodKey, sectionID, studentID, name string, row models.UploadRow, calendar []models.CalendarDay) models.StudentPeriodRecord {
	var days models.DailyLog
	observed := 0
	for _, calDay := range calendar {
		raw, ok := row.Days[calDay.DayNumber]
		if !ok {
			continue
		}
		minutes := parseClockMinutes(raw.Time)
		qualified, reason := QualifyDay(minutes, raw.Topics, calDay.IsExcluded, s.thresholds)
		days = append(days, models.DayQualification{
			DayNumber:  calDay.DayNumber,
			Date:       calDay.Date.Format(dateLayout),
			Minutes:    minutes,
			Topics:     raw.Topics,
			IsExcluded: calDay.IsExcluded,
			Qualified:  qualified,
			Reason:     reason,
		})
		if calDay.DayNumber > observed {
			observed = calDay.DayNumber
		}
	}

	agg := AggregateDays(days, observed, s.thresholds)
	return models.StudentPeriodRecord{
		PeriodKey:       periodKey,
		SectionID:       sectionID,
		StudentID:       studentID,
		Name:            name,
		Email:           strings.TrimSpace(row.Email),
		Coins:           agg.Coins,
		TotalDays:       agg.TotalDays,
		PeriodDays:      agg.PeriodDays,
		PercentComplete: agg.PercentComplete,
		DailyLog:        days,
	}
}

// GetStudentProgress returns one student's record for a period+section with
// the current overrides applied and totals recomputed.
func (s *ProgressService) GetStudentProgress(ctx context.Context, studentID, periodKey, sectionID string) (*models.StudentPeriodRecord, error) {
	studentID = strings.ToLower(strings.TrimSpace(studentID))
	record, err := s.repo.Get(ctx, periodKey, sectionID, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no progress recorded for this student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}
	overrides, err := s.overrides.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overrides")
	}
	corrected := correctRecord(*record, overridesByDate(overrides), s.thresholds)
	return &corrected, nil
}

// ListSection returns every record in a period+section with overrides applied.
func (s *ProgressService) ListSection(ctx context.Context, periodKey, sectionID string) ([]models.StudentPeriodRecord, error) {
	records, err := s.repo.ListByPeriodSection(ctx, periodKey, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list section records")
	}
	overrides, err := s.overrides.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overrides")
	}
	grouped := overridesByStudent(overrides)
	corrected := make([]models.StudentPeriodRecord, len(records))
	for i, record := range records {
		corrected[i] = correctRecord(record, grouped[record.StudentID], s.thresholds)
	}
	return corrected, nil
}

func (s *ProgressService) notifyChanged() {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: jobTypeLeaderboardRefresh}); err != nil {
		s.logger.Sugar().Warnw("failed to enqueue leaderboard refresh", "error", err)
	}
}

// parseClockMinutes converts an "H:MM" or "HH:MM" activity total into
// minutes. Absent or unparseable values count as zero activity.
func parseClockMinutes(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes >= 0 {
			return minutes
		}
		return 0
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 {
		return 0
	}
	return hours*60 + minutes
}

func overridesByDate(overrides []models.DayOverride) map[string]models.DayOverride {
	byDate := make(map[string]models.DayOverride, len(overrides))
	for _, override := range overrides {
		byDate[override.Date] = override
	}
	return byDate
}

func overridesByStudent(overrides []models.DayOverride) map[string]map[string]models.DayOverride {
	grouped := make(map[string]map[string]models.DayOverride)
	for _, override := range overrides {
		studentID := strings.ToLower(override.StudentID)
		if grouped[studentID] == nil {
			grouped[studentID] = make(map[string]models.DayOverride)
		}
		grouped[studentID][override.Date] = override
	}
	return grouped
}

// correctRecord applies overrides to a stored record and recomputes its
// totals. The stored record keeps the raw computed log; corrections are
// derived on demand so they always reflect the current override set.
func correctRecord(record models.StudentPeriodRecord, overrides map[string]models.DayOverride, t Thresholds) models.StudentPeriodRecord {
	days := ApplyOverrides(record.DailyLog, overrides)
	agg := AggregateDays(days, record.TotalDays, t)
	record.DailyLog = days
	record.Coins = agg.Coins
	record.PeriodDays = agg.PeriodDays
	record.PercentComplete = agg.PercentComplete
	return record
}
