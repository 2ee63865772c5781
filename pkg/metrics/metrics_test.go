package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestJobMetricsExportsRunsAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	jobs := NewJobMetrics(reg)
	jobs.ObserveRun("cart_sweep", 250*time.Millisecond, 3, nil)
	jobs.ObserveRun("cart_sweep", 10*time.Millisecond, 0, errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := counterValue(t, mfs, "shopnearby_job_runs_total", map[string]string{"job": "cart_sweep", "result": "success"}); got != 1 {
		t.Fatalf("expected one success, got %f", got)
	}
	if got := counterValue(t, mfs, "shopnearby_job_runs_total", map[string]string{"job": "cart_sweep", "result": "failure"}); got != 1 {
		t.Fatalf("expected one failure, got %f", got)
	}
	if got := counterValue(t, mfs, "shopnearby_job_items_total", map[string]string{"job": "cart_sweep"}); got != 3 {
		t.Fatalf("expected 3 processed items, got %f", got)
	}
	mf := findMetricFamily(mfs, "shopnearby_job_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatalf("expected duration histogram samples")
	}
}

func TestStorefrontCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewStorefront(reg)
	s.CartMutation("add_item", nil)
	s.CartMutation("add_item", nil)
	s.CartMutation("set_quantity", errors.New("limit"))
	s.CouponResult("applied")
	s.CouponResult("")
	s.CheckoutOutcome("cod", "succeeded")
	s.PersistFailure("save")
	s.SetActiveCarts(4)
	s.ChatMessage("user")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := counterValue(t, mfs, "shopnearby_cart_mutations_total", map[string]string{"op": "add_item", "result": "success"}); got != 2 {
		t.Fatalf("expected 2 add_item successes, got %f", got)
	}
	if got := counterValue(t, mfs, "shopnearby_cart_mutations_total", map[string]string{"op": "set_quantity", "result": "failure"}); got != 1 {
		t.Fatalf("expected set_quantity failure, got %f", got)
	}
	if got := counterValue(t, mfs, "shopnearby_coupon_applications_total", map[string]string{"result": "unknown"}); got != 1 {
		t.Fatalf("empty label should normalize to unknown, got %f", got)
	}
	if got := counterValue(t, mfs, "shopnearby_checkout_outcomes_total", map[string]string{"method": "cod", "status": "succeeded"}); got != 1 {
		t.Fatalf("expected checkout outcome, got %f", got)
	}
	gauge := findMetricFamily(mfs, "shopnearby_cart_sessions_active")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Fatalf("expected active carts gauge of 4")
	}
}

func TestNilRecordersAreNoops(t *testing.T) {
	var s *Storefront
	s.CartMutation("add_item", nil)
	s.SetActiveCarts(1)
	var j *JobMetrics
	j.ObserveRun("x", time.Second, 1, nil)
	NewStorefront(nil).CouponResult("applied")
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("%s", fmt.Sprintf("metric %q missing labels %v", name, labels))
	return 0
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
