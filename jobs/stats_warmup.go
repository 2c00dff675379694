package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/boardworks/boardworks/internal/invoices"
	jobmetrics "github.com/boardworks/boardworks/internal/jobs"
)

// StatisticsSource is satisfied by the invoice service.
type StatisticsSource interface {
	Statistics(ctx context.Context, filter invoices.StatisticsFilter) (invoices.Summary, error)
}

// StatsWarmupJob pre-populates the statistics cache for the dashboard windows.
type StatsWarmupJob struct {
	Stats    StatisticsSource
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Location *time.Location
	clock    func() time.Time
}

// NewStatsWarmupJob wires dependencies for the warmup handler.
func NewStatsWarmupJob(stats StatisticsSource, loc *time.Location, logger *slog.Logger, metrics *jobmetrics.Metrics) *StatsWarmupJob {
	return &StatsWarmupJob{Stats: stats, Logger: logger, Metrics: metrics, Location: loc, clock: time.Now}
}

// Handle processes warmup tasks.
func (j *StatsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Stats == nil {
		return errors.New("stats warmup: handler not configured")
	}
	var payload StatsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskInvoicesStatsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	scopes := append([]*uuid.UUID{nil}, regionPointers(payload.RegionIDs)...)
	warmed := 0
	for _, region := range scopes {
		for _, filter := range j.windows(region) {
			scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
			_, err := j.Stats.Statistics(scopeCtx, filter)
			cancel()
			if err != nil {
				resultErr = err
				logger.Error("warm statistics", slog.Any("error", err))
				return resultErr
			}
			warmed++
		}
	}
	logger.Info("completed stats warmup", slog.Int("filters", warmed))
	return resultErr
}

// windows returns the all-time, month-to-date and year-to-date filters.
func (j *StatsWarmupJob) windows(region *uuid.UUID) []invoices.StatisticsFilter {
	loc := j.Location
	if loc == nil {
		loc = time.UTC
	}
	now := j.now().In(loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	nextMonth := monthStart.AddDate(0, 1, 0)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
	nextYear := yearStart.AddDate(1, 0, 0)
	return []invoices.StatisticsFilter{
		{RegionID: region},
		{RegionID: region, From: &monthStart, To: &nextMonth},
		{RegionID: region, From: &yearStart, To: &nextYear},
	}
}

func regionPointers(ids []uuid.UUID) []*uuid.UUID {
	out := make([]*uuid.UUID, len(ids))
	for i := range ids {
		out[i] = &ids[i]
	}
	return out
}

func (j *StatsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInvoicesStatsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskInvoicesStatsWarmup))
}

func (j *StatsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *StatsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}
