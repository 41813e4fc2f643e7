package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCronJobMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveRun("line-item-gc", 250*time.Millisecond, nil)
	m.ObserveRun("line-item-gc", time.Second, fmt.Errorf("sweep: %w", context.DeadlineExceeded))
	m.ObserveRun("", time.Millisecond, errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	cases := []struct {
		labels map[string]string
		want   float64
	}{
		{map[string]string{"job": "line-item-gc", "outcome": "success"}, 1},
		{map[string]string{"job": "line-item-gc", "outcome": "timeout"}, 1},
		{map[string]string{"job": "unknown", "outcome": "failure"}, 1},
	}
	for _, tc := range cases {
		if got, err := fetchCounterValue(mfs, "cron_job_runs_total", tc.labels); err != nil || got != tc.want {
			t.Fatalf("runs %v: expected %f, got %f (%v)", tc.labels, tc.want, got, err)
		}
	}
	if got, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", map[string]string{"job": "line-item-gc"}); err != nil || got < 1.25 {
		t.Fatalf("expected duration sum >= 1.25, got %f (%v)", got, err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "cron_job_last_success_timestamp_seconds" {
			found = len(mf.GetMetric()) == 1 && mf.GetMetric()[0].GetGauge().GetValue() > 0
		}
	}
	if !found {
		t.Fatalf("expected a last-success gauge for the successful job only")
	}
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("job", time.Second, nil)
	NewCronJobMetrics(nil).ObserveRun("job", time.Second, errors.New("boom"))
}
