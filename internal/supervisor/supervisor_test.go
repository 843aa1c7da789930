package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	logx "loggingbot/pkg/logx"
)

func TestStopWaitsForGoroutines(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithLogger(logx.Nop()))
	stopped := make(chan struct{})
	s.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	select {
	case <-stopped:
	default:
		t.Fatal("goroutine still running after Stop")
	}
}

func TestCancelOnErrorCollectsFailures(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithCancelOnError())
	s.Go("bad", func(context.Context) error { return errors.New("boom") })
	s.Go("panics", func(ctx context.Context) error {
		<-ctx.Done()
		panic("late")
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"bad: boom", "panic in panics: late"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestWaitHonoursDeadline(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	s.Go("stuck", func(context.Context) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop() = %v, want deadline exceeded", err)
	}
}
