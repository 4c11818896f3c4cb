package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/model"
)

type fakeRefresher struct {
	calls int32
	done  chan struct{}
	err   error
}

func (f *fakeRefresher) Recalculate(ctx context.Context) (*model.Dashboard, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.done != nil {
		select {
		case f.done <- struct{}{}:
		default:
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.Dashboard{RunID: "run"}, nil
}

func TestStartRunsImmediately(t *testing.T) {
	f := &fakeRefresher{done: make(chan struct{}, 1)}
	s := New(f, "@every 1h", true)
	if err := s.Start(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer s.Stop()

	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected immediate refresh")
	}

	next := s.NextRun()
	if next.IsZero() || time.Until(next) < 59*time.Minute {
		t.Errorf("Expected next run about an hour away, got %v", next)
	}
}

func TestScheduledRun(t *testing.T) {
	f := &fakeRefresher{done: make(chan struct{}, 1), err: errors.New("upstream")}
	s := New(f, "@every 1s", false)
	if err := s.Start(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer s.Stop()

	select {
	case <-f.done:
	case <-time.After(3 * time.Second):
		t.Fatal("Expected scheduled refresh")
	}
}

func TestInvalidSchedule(t *testing.T) {
	s := New(&fakeRefresher{}, "not a schedule", false)
	if err := s.Start(); err == nil {
		t.Error("Expected error for invalid schedule")
	}
}

func TestSchedule(t *testing.T) {
	s := New(&fakeRefresher{}, "0 0 6 * * *", false)
	if err := s.Start(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer s.Stop()

	if s.Schedule() != "0 0 6 * * *" {
		t.Errorf("Expected schedule to be kept, got %s", s.Schedule())
	}
	if next := s.NextRun(); next.IsZero() || next.Hour() != 6 {
		t.Errorf("Expected next run at 06:00, got %v", next)
	}
}
