package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDealSaveMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewDealSaveMetrics(reg)
	metrics.ObserveDuration("create", 250*time.Millisecond)
	metrics.IncSuccess("create")
	metrics.IncFailure("update", "line_items")
	metrics.IncFailure("update", "")
	metrics.AddLineItemsReplaced(3)
	metrics.AddLineItemsReplaced(0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "deal_save_success_total", map[string]string{"op": "create"}); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "deal_save_failure_total", map[string]string{"op": "update", "step": "line_items"}); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if _, err := fetchCounterValue(mfs, "deal_save_failure_total", map[string]string{"op": "update", "step": "unknown"}); err != nil {
		t.Fatalf("blank step should be labelled unknown: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "deal_line_items_replaced_total", nil); err != nil {
		t.Fatalf("fetch replaced: %v", err)
	} else if got != 3 {
		t.Fatalf("expected replaced=3, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "deal_save_duration_seconds", map[string]string{"op": "create"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilDealSaveMetricsIsNoop(t *testing.T) {
	var m *DealSaveMetrics
	m.ObserveDuration("create", time.Second)
	m.IncSuccess("create")
	m.IncFailure("create", "parent")
	m.AddLineItemsReplaced(1)

	NewDealSaveMetrics(nil).IncSuccess("create")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
