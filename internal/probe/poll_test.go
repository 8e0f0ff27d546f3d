package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPoll_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg     PollConfig
		wantErr error
	}{
		"zero interval": {
			cfg:     PollConfig{Name: "svc", Interval: 0, Timeout: 5 * time.Second},
			wantErr: ErrIntervalNotPositive,
		},
		"negative interval": {
			cfg:     PollConfig{Name: "svc", Interval: -time.Second, Timeout: 5 * time.Second},
			wantErr: ErrIntervalNotPositive,
		},
		"zero timeout": {
			cfg:     PollConfig{Name: "svc", Interval: 100 * time.Millisecond, Timeout: 0},
			wantErr: ErrTimeoutNotPositive,
		},
		"negative timeout": {
			cfg:     PollConfig{Name: "svc", Interval: 100 * time.Millisecond, Timeout: -time.Second},
			wantErr: ErrTimeoutNotPositive,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := Poll(context.Background(), tc.cfg, func(context.Context, int) (bool, error) {
				t.Error("check must not run with an invalid config")
				return false, nil
			})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Poll() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestPoll_EmptyName(t *testing.T) {
	t.Parallel()

	err := Poll(context.Background(), PollConfig{Interval: time.Millisecond, Timeout: time.Second},
		func(context.Context, int) (bool, error) { return true, nil })
	if err == nil {
		t.Fatal("expected an error for an empty name")
	}
}

func TestPoll_ProcessExited(t *testing.T) {
	t.Parallel()

	exited := make(chan struct{})
	close(exited)

	start := time.Now()
	err := Poll(context.Background(), PollConfig{
		Interval:      100 * time.Millisecond,
		Timeout:       10 * time.Second,
		Name:          "torrserver",
		ProcessExited: exited,
	}, func(context.Context, int) (bool, error) {
		t.Error("check must not run once the process has exited")
		return false, nil
	})

	if !errors.Is(err, ErrProcessExited) {
		t.Fatalf("Poll() = %v, want ErrProcessExited", err)
	}
	if errors.Is(err, ErrReadinessTimeout) {
		t.Error("process exit must not be reported as a readiness timeout")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected fast abort, took %v", elapsed)
	}
}

func TestPoll_ReadyAfterAttempts(t *testing.T) {
	t.Parallel()

	var attempts []int
	err := Poll(context.Background(), PollConfig{
		Interval: 10 * time.Millisecond,
		Timeout:  5 * time.Second,
		Name:     "torrserver",
	}, func(_ context.Context, attempt int) (bool, error) {
		attempts = append(attempts, attempt)
		return attempt == 3, nil
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Errorf("attempts = %v, want [1 2 3]", attempts)
	}
}

func TestPoll_CheckErrorAborts(t *testing.T) {
	t.Parallel()

	fatal := errors.New("bad credentials")
	calls := 0
	err := Poll(context.Background(), PollConfig{
		Interval: 10 * time.Millisecond,
		Timeout:  5 * time.Second,
		Name:     "torrserver",
	}, func(context.Context, int) (bool, error) {
		calls++
		return false, fatal
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("Poll() = %v, want the check error", err)
	}
	if calls != 1 {
		t.Errorf("check called %d times, want 1", calls)
	}
}

func TestPoll_TimeoutIsReadinessTimeout(t *testing.T) {
	t.Parallel()

	const timeout = 300 * time.Millisecond
	const interval = 20 * time.Millisecond

	start := time.Now()
	err := Poll(context.Background(), PollConfig{
		Interval: interval,
		Timeout:  timeout,
		Name:     "torrserver",
		Target:   "127.0.0.1:8090",
	}, func(context.Context, int) (bool, error) {
		return false, nil
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrReadinessTimeout) {
		t.Fatalf("Poll() = %v, want ErrReadinessTimeout", err)
	}
	if elapsed < timeout-interval {
		t.Errorf("gave up after %v, before the %v deadline", elapsed, timeout)
	}
	if elapsed > timeout+time.Second {
		t.Errorf("gave up after %v, long past the %v deadline", elapsed, timeout)
	}
}

func TestPoll_CallerCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := Poll(ctx, PollConfig{
		Interval: 10 * time.Millisecond,
		Timeout:  10 * time.Second,
		Name:     "torrserver",
	}, func(context.Context, int) (bool, error) {
		return false, nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Poll() = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrReadinessTimeout) {
		t.Error("caller cancellation must not be reported as a readiness timeout")
	}
}
