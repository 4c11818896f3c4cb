package metrics

import (
	"testing"
	"time"
)

func TestIncrementRefresh(t *testing.T) {
	m := New()
	m.IncrementRefresh(true, 4, 1, 120)
	m.IncrementRefresh(false, 0, 0, 80)

	s := m.Snapshot()
	if s.Refreshes.Total != 2 || s.Refreshes.Failed != 1 {
		t.Errorf("Expected 2 refreshes with 1 failure, got %d/%d", s.Refreshes.Total, s.Refreshes.Failed)
	}
	if s.Refreshes.ProjectsEstimated != 4 || s.Refreshes.DegradedEstimates != 1 {
		t.Errorf("Unexpected project counters: %+v", s.Refreshes)
	}
	if s.Refreshes.AvgLatencyMs != 100 {
		t.Errorf("Expected avg latency 100, got %f", s.Refreshes.AvgLatencyMs)
	}
	if s.Refreshes.LastRefresh == "" {
		t.Error("Expected last refresh to be set")
	}
}

func TestTrackEndpoint(t *testing.T) {
	m := New()
	m.TrackEndpoint("/api/v1/estimates", "GET", 200, 10)
	m.TrackEndpoint("/api/v1/estimates", "GET", 502, 30)

	s := m.Snapshot()
	em, ok := s.Endpoints["GET /api/v1/estimates"]
	if !ok {
		t.Fatal("Expected endpoint metrics")
	}
	if em.Requests != 2 || em.Errors != 1 {
		t.Errorf("Unexpected endpoint metrics: %+v", em)
	}
	if em.ErrorRate != 50 || em.AvgLatencyMs != 20 {
		t.Errorf("Unexpected rates: %+v", em)
	}
}

func TestCheckRefreshHealth(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		last time.Time
		want string
	}{
		{"never refreshed", time.Time{}, "degraded"},
		{"fresh", now.Add(-10 * time.Minute), "healthy"},
		{"stale", now.Add(-3 * time.Hour), "degraded"},
	}

	for _, tt := range tests {
		got := CheckRefreshHealth(tt.last, time.Hour, now)
		if got.Status != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got.Status)
		}
	}
}

func TestDetermineOverallStatus(t *testing.T) {
	tests := []struct {
		components map[string]HealthStatus
		want       string
	}{
		{map[string]HealthStatus{"a": {Status: "healthy"}}, "healthy"},
		{map[string]HealthStatus{"a": {Status: "healthy"}, "b": {Status: "degraded"}}, "degraded"},
		{map[string]HealthStatus{"a": {Status: "degraded"}, "b": {Status: "unhealthy"}}, "unhealthy"},
	}

	for _, tt := range tests {
		if got := DetermineOverallStatus(tt.components); got != tt.want {
			t.Errorf("Expected %s, got %s", tt.want, got)
		}
	}
}

func TestCheckDatabaseHealthNil(t *testing.T) {
	if got := CheckDatabaseHealth(nil); got.Status != "unhealthy" {
		t.Errorf("Expected unhealthy for nil db, got %s", got.Status)
	}
}
