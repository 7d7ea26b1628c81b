package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("commission-overdue-sweep", 250*time.Millisecond, nil)
	m.ObserveRun("commission-overdue-sweep", 10*time.Millisecond, errors.New("boom"))
	m.ObserveRun("", time.Millisecond, nil)
	m.CycleSkipped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("commission-overdue-sweep", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("commission-overdue-sweep", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("commission-overdue-sweep")), 0.0)

	count, err := testutil.GatherAndCount(reg, "ethoparts_cron_job_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCronJobMetricsNilIsNoop(t *testing.T) {
	var m *CronJobMetrics
	assert.NotPanics(t, func() {
		m.ObserveRun("job", time.Second, nil)
		m.CycleSkipped()
	})
	assert.Nil(t, NewCronJobMetrics(nil))
}
