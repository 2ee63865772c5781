package cron

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
	"github.com/angelmondragon/shopnearby-backend/pkg/metrics"
)

type testJob struct {
	name      string
	err       error
	processed int
	runs      atomic.Int32
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) (int, error) {
	t.runs.Add(1)
	return t.processed, t.err
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: &logs})
	reg := prometheus.NewRegistry()
	success := &testJob{name: "success", processed: 3}
	failure := &testJob{name: "fail", err: errors.New("boom")}

	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(success, failure),
		Metrics:  metrics.NewJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	service.RunOnce(context.Background())

	if success.runs.Load() != 1 || failure.runs.Load() != 1 {
		t.Fatalf("expected each job to run once, got %d/%d", success.runs.Load(), failure.runs.Load())
	}
	if !strings.Contains(logs.String(), "job failed") {
		t.Fatalf("expected failure to be logged, got %s", logs.String())
	}
	if n := testutil.CollectAndCount(reg); n == 0 {
		t.Fatal("expected job metrics to be exported")
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}})
	job := &testJob{name: "tick"}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(job),
		Interval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for job.runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("job did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestNewServiceRequiresLogger(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing logger to fail")
	}
}
