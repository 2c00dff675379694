package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoicesSweepOverdue moves SENT invoices past due to OVERDUE.
	TaskInvoicesSweepOverdue = "invoices:sweep_overdue"
	// TaskInvoicesStatsWarmup pre-populates the invoice statistics cache.
	TaskInvoicesStatsWarmup = "invoices:stats_warmup"
)

// SweepOverduePayload describes a sweep run.
type SweepOverduePayload struct {
	TriggeredBy string `json:"triggered_by,omitempty"`
	// WarmStats enqueues a statistics warmup when the sweep changed anything.
	WarmStats bool `json:"warm_stats,omitempty"`
}

// StatsWarmupPayload lists the regions to warm in addition to the all-region view.
type StatsWarmupPayload struct {
	RegionIDs []uuid.UUID `json:"region_ids,omitempty"`
}

// NewSweepOverdueTask constructs an Asynq task.
func NewSweepOverdueTask(payload SweepOverduePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicesSweepOverdue, data, asynq.MaxRetry(3)), nil
}

// NewStatsWarmupTask constructs an Asynq task.
func NewStatsWarmupTask(payload StatsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicesStatsWarmup, data, asynq.MaxRetry(1)), nil
}
