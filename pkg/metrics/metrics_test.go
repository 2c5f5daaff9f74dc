package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.Observe("leaderboard_snapshot", 250*time.Millisecond, nil)
	m.Observe("leaderboard_snapshot", time.Millisecond, errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	assertCounter(t, mfs, "storefront_job_success_total", "job", "leaderboard_snapshot", 1)
	assertCounter(t, mfs, "storefront_job_failure_total", "job", "leaderboard_snapshot", 1)

	sum, err := fetchHistogramSum(mfs, "storefront_job_duration_seconds", "job", "leaderboard_snapshot")
	if err != nil {
		t.Fatalf("fetch duration: %v", err)
	}
	if sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestCheckoutMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.OrderCreated(SourceCheckout, 3)
	m.OrderCreated(SourceBuyNow, 1)
	m.Failed(SourceCheckout, "INSUFFICIENT_STOCK")
	m.FloorViolation()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	assertCounter(t, mfs, "storefront_orders_created_total", "source", SourceCheckout, 1)
	assertCounter(t, mfs, "storefront_orders_created_total", "source", SourceBuyNow, 1)
	assertCounter(t, mfs, "storefront_checkout_failures_total", "code", "INSUFFICIENT_STOCK", 1)
	assertCounter(t, mfs, "storefront_stock_floor_violations_total", "", "", 1)
	assertCounter(t, mfs, "storefront_loyalty_points_awarded_total", "", "", 4)
}

func TestNilRecordersAreNoops(t *testing.T) {
	var cron *CronJobMetrics
	cron.Observe("x", time.Second, nil)
	var checkout *CheckoutMetrics
	checkout.OrderCreated(SourceCheckout, 1)
	checkout.FloorViolation()
	NewOutboxMetrics(nil).Published("order_created")
	NewOutboxMetrics(nil).Parked("order_created", "rejected")
}

func TestHandlerExposesRegistry(t *testing.T) {
	reg := NewRegistry()
	NewOutboxMetrics(reg).Published("order_created")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `storefront_outbox_published_total{event_type="order_created"} 1`) {
		t.Fatalf("published counter missing from exposition")
	}
}

func assertCounter(t *testing.T, mfs []*dto.MetricFamily, name, label, value string, want float64) {
	t.Helper()
	got, err := fetchCounterValue(mfs, name, label, value)
	if err != nil {
		t.Fatalf("fetch %s: %v", name, err)
	}
	if got != want {
		t.Fatalf("expected %s=%v, got %v", name, want, got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if label == "" || matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, l := range labels {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
