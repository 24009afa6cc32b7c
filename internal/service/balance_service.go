package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aleks-coins-api/internal/models"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
	"github.com/noah-isme/aleks-coins-api/pkg/jobs"
)

const (
	jobTypeLeaderboardRefresh = "leaderboard_refresh"
	leaderboardCacheKey       = "leaderboard:v1"
)

type balanceProgressRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentPeriodRecord, error)
	ListAll(ctx context.Context) ([]models.StudentPeriodRecord, error)
}

type adjustmentReader interface {
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.CoinAdjustment, error)
	ListActive(ctx context.Context) ([]models.CoinAdjustment, error)
}

type leaderboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// BalanceService combines post-override period coins with adjustments into
// final balances and serves the cached leaderboard.
type BalanceService struct {
	progress    balanceProgressRepository
	overrides   overrideReader
	adjustments adjustmentReader
	cache       leaderboardCache
	thresholds  Thresholds
	// degraded selects the uniform fallback when the adjustment store is
	// unreachable: compute coins-only balances for every student in the
	// call. When false the whole calculation fails instead. Never a
	// per-student mix.
	degraded bool
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  *MetricsService
}

// NewBalanceService constructs the balance service.
func NewBalanceService(progress balanceProgressRepository, overrides overrideReader, adjustments adjustmentReader, cache leaderboardCache, thresholds Thresholds, degraded bool, cacheTTL time.Duration, logger *zap.Logger, metrics *MetricsService) *BalanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceService{
		progress:    progress,
		overrides:   overrides,
		adjustments: adjustments,
		cache:       cache,
		thresholds:  thresholds,
		degraded:    degraded,
		cacheTTL:    cacheTTL,
		logger:      logger,
		metrics:     metrics,
	}
}

// BalanceResult carries one student's balance plus the degradation flag.
type BalanceResult struct {
	StudentID string `json:"student_id"`
	Balance   int    `json:"balance"`
	Degraded  bool   `json:"degraded,omitempty"`
}

// StudentBalance computes one student's final balance.
func (s *BalanceService) StudentBalance(ctx context.Context, studentID string) (*BalanceResult, error) {
	studentID = strings.ToLower(strings.TrimSpace(studentID))
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}

	records, err := s.progress.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student records")
	}
	overrides, err := s.overrides.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overrides")
	}
	byDate := overridesByDate(overrides)
	corrected := make([]models.StudentPeriodRecord, len(records))
	for i, record := range records {
		corrected[i] = correctRecord(record, byDate, s.thresholds)
	}

	adjustments, degraded, err := s.loadStudentAdjustments(ctx, studentID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBalanceComputation(degraded)
	return &BalanceResult{
		StudentID: studentID,
		Balance:   ComputeBalance(corrected, adjustments),
		Degraded:  degraded,
	}, nil
}

// Leaderboard returns every student's balance, served from cache when fresh.
func (s *BalanceService) Leaderboard(ctx context.Context) (*models.Leaderboard, error) {
	if s.cache != nil {
		var cached models.Leaderboard
		start := time.Now()
		err := s.cache.Get(ctx, leaderboardCacheKey, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return &cached, nil
		}
	}
	return s.computeLeaderboard(ctx, true)
}

// RefreshLeaderboard recomputes the leaderboard and overwrites the cache.
func (s *BalanceService) RefreshLeaderboard(ctx context.Context) error {
	_, err := s.computeLeaderboard(ctx, true)
	return err
}

// InvalidateLeaderboard drops the cached leaderboard.
func (s *BalanceService) InvalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, leaderboardCacheKey); err != nil {
		s.logger.Sugar().Warnw("failed to invalidate leaderboard cache", "error", err)
	}
}

func (s *BalanceService) computeLeaderboard(ctx context.Context, store bool) (*models.Leaderboard, error) {
	records, err := s.progress.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student records")
	}
	overrides, err := s.overrides.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overrides")
	}

	adjustments, degraded, err := s.loadAllAdjustments(ctx)
	if err != nil {
		return nil, err
	}

	overrideGroups := overridesByStudent(overrides)
	recordGroups := make(map[string][]models.StudentPeriodRecord)
	names := make(map[string]string)
	for _, record := range records {
		studentID := strings.ToLower(record.StudentID)
		recordGroups[studentID] = append(recordGroups[studentID], correctRecord(record, overrideGroups[studentID], s.thresholds))
		names[studentID] = record.Name
	}
	adjustmentGroups := make(map[string][]models.CoinAdjustment)
	for _, adjustment := range adjustments {
		studentID := strings.ToLower(adjustment.StudentID)
		adjustmentGroups[studentID] = append(adjustmentGroups[studentID], adjustment)
	}
	// adjustment-only students still get a balance entry
	for studentID := range adjustmentGroups {
		if _, ok := recordGroups[studentID]; !ok {
			recordGroups[studentID] = nil
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(recordGroups))
	for studentID, studentRecords := range recordGroups {
		entries = append(entries, models.LeaderboardEntry{
			StudentID: studentID,
			Name:      names[studentID],
			Balance:   ComputeBalance(studentRecords, adjustmentGroups[studentID]),
		})
		s.metrics.RecordBalanceComputation(degraded)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Balance != entries[j].Balance {
			return entries[i].Balance > entries[j].Balance
		}
		return entries[i].StudentID < entries[j].StudentID
	})

	leaderboard := &models.Leaderboard{Entries: entries, Degraded: degraded, GeneratedAt: time.Now().UTC()}
	if store && s.cache != nil && !degraded {
		start := time.Now()
		if err := s.cache.Set(ctx, leaderboardCacheKey, leaderboard, s.cacheTTL); err != nil {
			s.logger.Sugar().Warnw("failed to cache leaderboard", "error", err)
		} else {
			s.metrics.ObserveCacheWrite(time.Since(start))
		}
	}
	return leaderboard, nil
}

func (s *BalanceService) loadStudentAdjustments(ctx context.Context, studentID string) ([]models.CoinAdjustment, bool, error) {
	adjustments, err := s.adjustments.ListActiveByStudent(ctx, studentID)
	if err == nil {
		return adjustments, false, nil
	}
	return s.handleAdjustmentFailure(err)
}

func (s *BalanceService) loadAllAdjustments(ctx context.Context) ([]models.CoinAdjustment, bool, error) {
	adjustments, err := s.adjustments.ListActive(ctx)
	if err == nil {
		return adjustments, false, nil
	}
	return s.handleAdjustmentFailure(err)
}

func (s *BalanceService) handleAdjustmentFailure(err error) ([]models.CoinAdjustment, bool, error) {
	if !s.degraded {
		return nil, false, appErrors.Wrap(err, appErrors.ErrAdjustmentLookup.Code, appErrors.ErrAdjustmentLookup.Status, "adjustment store unreachable")
	}
	s.logger.Sugar().Warnw("adjustment store unreachable, serving coins-only balances", "error", err)
	s.metrics.RecordDegradedFallback()
	return nil, true, nil
}

// LeaderboardWorker handles queued refresh jobs.
type LeaderboardWorker struct {
	service *BalanceService
	logger  *zap.Logger
}

// NewLeaderboardWorker constructs the worker.
func NewLeaderboardWorker(service *BalanceService, logger *zap.Logger) *LeaderboardWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardWorker{service: service, logger: logger}
}

// Handle recomputes the leaderboard cache.
func (w *LeaderboardWorker) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != jobTypeLeaderboardRefresh {
		w.logger.Sugar().Warnw("unknown job type", "type", job.Type)
		return nil
	}
	return w.service.RefreshLeaderboard(ctx)
}
