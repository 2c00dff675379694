package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/boardworks/boardworks/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// OverdueSweeper is satisfied by the invoice service.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// Enqueuer submits follow-up tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// OverdueSweepJob flags SENT invoices whose due date has passed.
type OverdueSweepJob struct {
	Sweeper  OverdueSweeper
	Enqueuer Enqueuer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewOverdueSweepJob wires dependencies for the sweep handler. enqueuer may be
// nil, which disables the follow-up statistics warmup.
func NewOverdueSweepJob(sweeper OverdueSweeper, enqueuer Enqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueSweepJob {
	return &OverdueSweepJob{Sweeper: sweeper, Enqueuer: enqueuer, Logger: logger, Metrics: metrics}
}

// Handle processes sweep tasks. The sweep is a single bulk update, so a retry
// after failure starts from a consistent state.
func (j *OverdueSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sweeper == nil {
		return errors.New("overdue sweep: handler not configured")
	}
	var payload SweepOverduePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskInvoicesSweepOverdue)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("triggered_by", payload.TriggeredBy))
	start := time.Now()
	marked, err := j.Sweeper.SweepOverdue(ctx)
	if err != nil {
		resultErr = err
		logger.Error("overdue sweep failed", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddOverdueMarked(marked)
	logger.Info("completed overdue sweep", slog.Int64("marked", marked), slog.Duration("duration", time.Since(start)))

	if marked > 0 && payload.WarmStats && j.Enqueuer != nil {
		task, err := NewStatsWarmupTask(StatsWarmupPayload{})
		if err != nil {
			resultErr = err
			return resultErr
		}
		if _, err := j.Enqueuer.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
			logger.Warn("enqueue stats warmup", slog.Any("error", err))
		}
	}
	return resultErr
}

func (j *OverdueSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInvoicesSweepOverdue))
	}
	return slog.Default().With(slog.String("job", TaskInvoicesSweepOverdue))
}

func (j *OverdueSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
