package scheduler

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestScheduler(t *testing.T, onJob Handler) *Scheduler {
	t.Helper()
	storePath := filepath.Join(t.TempDir(), "jobs.json")
	return New(storePath, onJob)
}

func TestAddJobPersistsAndComputesNextRun(t *testing.T) {
	s := newTestScheduler(t, nil)

	at := time.Now().Add(time.Hour).UnixMilli()
	job, err := s.AddJob(Job{
		Name:     "reminder",
		Schedule: Schedule{Kind: KindAt, AtMS: &at},
		Payload:  Payload{Kind: PayloadAgentTurn, Message: "remind me"},
	})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if job.ID == "" {
		t.Error("expected a generated job id")
	}
	if job.State.NextRunAtMS == nil || *job.State.NextRunAtMS != at {
		t.Errorf("NextRunAtMS = %v, want %d", job.State.NextRunAtMS, at)
	}

	jobs := s.ListJobs(true)
	if len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("ListJobs = %+v, want one job with id %s", jobs, job.ID)
	}
}

func TestRunJobInvokesHandler(t *testing.T) {
	var calls int32
	s := newTestScheduler(t, func(job *Job) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "done", nil
	})

	at := time.Now().Add(time.Hour).UnixMilli()
	job, err := s.AddJob(Job{
		Name:     "ping",
		Schedule: Schedule{Kind: KindAt, AtMS: &at},
		Payload:  Payload{Kind: PayloadAgentTurn, Message: "ping"},
	})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	if err := s.RunJob(job.ID); err != nil {
		t.Fatalf("RunJob: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for (atomic.LoadInt32(&calls) == 0 || s.ListJobs(true)[0].State.RunCount == 0) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}

	jobs := s.ListJobs(true)
	if jobs[0].State.LastStatus != StatusOK {
		t.Errorf("LastStatus = %q, want %q", jobs[0].State.LastStatus, StatusOK)
	}
	if jobs[0].State.RunCount != 1 {
		t.Errorf("RunCount = %d, want 1", jobs[0].State.RunCount)
	}
}

func TestRunJobUnknownIDErrors(t *testing.T) {
	s := newTestScheduler(t, nil)
	if err := s.RunJob("nonexistent"); err == nil {
		t.Fatal("expected an error for an unknown job id")
	}
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler(t, nil)
	at := time.Now().Add(time.Hour).UnixMilli()
	job, err := s.AddJob(Job{Schedule: Schedule{Kind: KindAt, AtMS: &at}})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	if !s.RemoveJob(job.ID) {
		t.Fatal("expected RemoveJob to report the job existed")
	}
	if s.RemoveJob(job.ID) {
		t.Fatal("expected second RemoveJob to report false")
	}
	if len(s.ListJobs(true)) != 0 {
		t.Error("expected no jobs after removal")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	s := newTestScheduler(t, nil)
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
