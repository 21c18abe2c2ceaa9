package perf

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/zarforum/zarforum/internal/jobs"
	_ "github.com/zarforum/zarforum/testing"
)

func TestStatsWarmupThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	// Warmup runs every ten minutes; it has to stay fast and boring.
	for i := 0; i < 60; i++ {
		tracker := metrics.Track("stats:warmup")
		time.Sleep(12 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending warmup tracker: %v", err)
		}
	}

	// The nightly session sweep may be slower but must fit the 2s budget.
	for i := 0; i < 15; i++ {
		tracker := metrics.Track("sessions:sweep")
		time.Sleep(40 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending sweep tracker: %v", err)
		}
	}

	// Inject a few redis timeouts to make sure failures are counted.
	for i := 0; i < 3; i++ {
		tracker := metrics.Track("stats:warmup")
		time.Sleep(15 * time.Millisecond)
		if err := tracker.End(errors.New("timeout")); err == nil {
			t.Fatal("expected error to propagate")
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "zarforum_jobs_total", map[string]string{"job": "stats:warmup", "status": "success"})
	failure := metricValue(t, families, "zarforum_jobs_total", map[string]string{"job": "stats:warmup", "status": "failure"})
	if success+failure == 0 {
		t.Fatal("no warmup executions recorded")
	}
	ratio := success / (success + failure)
	if ratio < 0.9 {
		t.Fatalf("warmup success ratio too low: %f", ratio)
	}

	sweepDuration := histogramMean(t, families, "zarforum_job_duration_seconds", map[string]string{"job": "sessions:sweep"})
	if sweepDuration > 2.0 {
		t.Fatalf("session sweep duration above budget: %f", sweepDuration)
	}

	warmupDuration := histogramMean(t, families, "zarforum_job_duration_seconds", map[string]string{"job": "stats:warmup"})
	if warmupDuration > 0.5 {
		t.Fatalf("warmup duration above budget: %f", warmupDuration)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
