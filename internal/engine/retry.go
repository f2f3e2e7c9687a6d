package engine

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/datallboy/dltool/internal/domain"
	"github.com/datallboy/dltool/internal/infra/logger"
)

type RetryPolicy struct {
	Attempts int
	MinDelay time.Duration
	MaxDelay time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 5,
		MinDelay: time.Second,
		MaxDelay: 8 * time.Second,
	}
}

// Delay is the wait after the given failed attempt (1-based): MinDelay,
// doubling each time, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.MinDelay
	for i := 1; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	return min(d, p.MaxDelay)
}

// Executor runs a task until it succeeds, fails with a structural error or
// runs out of attempts. Each attempt holds one slot; backoff holds none.
type Executor struct {
	policy RetryPolicy
	slots  *semaphore.Weighted
	log    *logger.Logger
}

func NewExecutor(policy RetryPolicy, slots *semaphore.Weighted, log *logger.Logger) *Executor {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if slots == nil {
		slots = semaphore.NewWeighted(1)
	}
	return &Executor{policy: policy, slots: slots, log: log}
}

// Execute returns the final outcome of task. When slotHeld is true the
// caller already acquired a slot for the first attempt.
func (e *Executor) Execute(ctx context.Context, task *Task, slotHeld bool) domain.Outcome {
	out := domain.Outcome{Item: task.Item}

	for attempt := 1; ; attempt++ {
		if !slotHeld {
			if err := e.slots.Acquire(ctx, 1); err != nil {
				out.Status = domain.StatusCancelled
				out.Err = err
				return out
			}
		}
		slotHeld = false

		err := task.Run(ctx)
		e.slots.Release(1)

		out.Attempts = attempt
		out.Bytes += task.Written()
		out.Err = err

		switch {
		case err == nil:
			out.Status = domain.StatusCompleted
			if task.State() == StateSkip {
				out.Status = domain.StatusSkipped
			}
			return out
		case ctx.Err() != nil:
			out.Status = domain.StatusCancelled
			return out
		case !domain.IsRetryable(err):
			e.log.Error("[FAIL] %s: %v", task.Item.FileName, err)
			out.Status = domain.StatusFailed
			return out
		case attempt >= e.policy.Attempts:
			e.log.Error("[FAIL] %s failed after %d attempts: %v", task.Item.FileName, attempt, err)
			out.Status = domain.StatusFailed
			return out
		}

		delay := e.policy.Delay(attempt)
		e.log.Warn("[Retry] %s: attempt %d/%d failed, retrying in %s: %v",
			task.Item.FileName, attempt, e.policy.Attempts, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			out.Status = domain.StatusCancelled
			out.Err = ctx.Err()
			return out
		case <-timer.C:
		}
	}
}
