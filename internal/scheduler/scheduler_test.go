package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerTickFiresDueJob(t *testing.T) {
	var calls int32
	s := New(func(ctx context.Context, skill, msg string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	}, "")

	if err := s.AddJob(Job{Name: "j1", SkillName: "chat", Message: "hi", CronExpr: "* * * * *", Enabled: true}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	s.tick(context.Background(), time.Now())
	waitForCondition(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })
}

func TestSchedulerSkipsDisabledJob(t *testing.T) {
	var calls int32
	s := New(func(ctx context.Context, skill, msg string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	}, "")

	_ = s.AddJob(Job{Name: "j1", CronExpr: "* * * * *", Enabled: false})
	s.tick(context.Background(), time.Now())
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("disabled job should not fire")
	}
}

func TestSchedulerSkipsOverlappingFiring(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	s := New(func(ctx context.Context, skill, msg string) (string, error) {
		atomic.AddInt32(&calls, 1)
		started <- struct{}{}
		<-release
		return "ok", nil
	}, "")

	_ = s.AddJob(Job{Name: "slow", CronExpr: "* * * * *", Enabled: true})

	now := time.Now()
	s.tick(context.Background(), now)
	<-started // first firing is now running

	// A second tick at the same due minute must be skipped since the
	// first firing has not finished.
	s.tick(context.Background(), now)
	time.Sleep(50 * time.Millisecond)
	close(release)

	waitForCondition(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })
}

func TestSchedulerWritesLogOutput(t *testing.T) {
	dir := t.TempDir()
	done := make(chan struct{})
	s := New(func(ctx context.Context, skill, msg string) (string, error) {
		defer close(done)
		return "result text", nil
	}, dir)

	_ = s.AddJob(Job{Name: "logged", CronExpr: "* * * * *", Enabled: true, LogOutput: true})
	s.tick(context.Background(), time.Now())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}

	// Each run writes <job>-<unix seconds>.log.
	var logPath string
	waitForCondition(t, time.Second, func() bool {
		matches, _ := filepath.Glob(filepath.Join(dir, "logged-*.log"))
		if len(matches) != 1 {
			return false
		}
		logPath = matches[0]
		return true
	})

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(content) == 0 {
		t.Fatal("expected non-empty log output")
	}
}

func TestSchedulerAddJobRejectsInvalidCron(t *testing.T) {
	s := New(nil, "")
	if err := s.AddJob(Job{Name: "bad", CronExpr: "not a cron expr"}); err == nil {
		t.Fatal("expected an error for a malformed cron expression")
	}
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition not met before timeout")
	}
}
