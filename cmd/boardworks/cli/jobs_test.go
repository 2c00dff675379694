package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardworks/boardworks/jobs"
)

func TestBuildTaskSweepOverdue(t *testing.T) {
	for _, name := range []string{"sweep-overdue", jobs.TaskInvoicesSweepOverdue} {
		task, err := BuildTask(name, TriggerOptions{WarmStats: true})
		require.NoError(t, err)
		assert.Equal(t, jobs.TaskInvoicesSweepOverdue, task.Type())

		var payload jobs.SweepOverduePayload
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		assert.Equal(t, "cli", payload.TriggeredBy)
		assert.True(t, payload.WarmStats)
	}
}

func TestBuildTaskStatsWarmup(t *testing.T) {
	region := uuid.New()
	task, err := BuildTask("stats-warmup", TriggerOptions{RegionIDs: []uuid.UUID{region}})
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskInvoicesStatsWarmup, task.Type())

	var payload jobs.StatsWarmupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, []uuid.UUID{region}, payload.RegionIDs)
}

func TestBuildTaskUnknown(t *testing.T) {
	_, err := BuildTask("analytics:anomaly_scan", TriggerOptions{})
	assert.ErrorContains(t, err, "unsupported job")
}

func TestJobsCLIRequiresConfiguration(t *testing.T) {
	_, err := NewJobsCLI(" ")
	assert.Error(t, err)

	var c *JobsCLI
	_, err = c.Trigger(context.Background(), "sweep-overdue", TriggerOptions{})
	assert.Error(t, err)
	_, err = c.InspectQueue(context.Background())
	assert.Error(t, err)
	_, err = c.ListScheduled(context.Background(), 5)
	assert.Error(t, err)
}
