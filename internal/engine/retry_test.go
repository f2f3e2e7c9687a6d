package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/datallboy/dltool/internal/domain"
	"github.com/datallboy/dltool/internal/infra/logger"
	"github.com/datallboy/dltool/internal/transport"
)

func TestRetryPolicyDelay(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 1*time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(4))
	assert.Equal(t, 8*time.Second, p.Delay(10))
	assert.Equal(t, 1*time.Second, p.Delay(0))
}

func TestExecutorTransientThenSuccess(t *testing.T) {
	remote := newFakeRemote()
	item := remote.add("Game A.zip", payload(1000))
	remote.getErrs[item.URL] = []error{transport.ErrServerError}
	task := newTestTask(t, remote, item, nil)

	exec := NewExecutor(fastRetry(5), nil, logger.Nop())
	out := exec.Execute(context.Background(), task, false)

	assert.Equal(t, domain.StatusCompleted, out.Status)
	assert.Equal(t, 2, out.Attempts)
	assert.NoError(t, out.Err)
	assert.Equal(t, int64(1000), out.Bytes)
}

func TestExecutorAccumulatesResumedBytes(t *testing.T) {
	remote := newFakeRemote()
	item := remote.add("Game A.zip", payload(1000))
	remote.cutAfter[item.URL] = []int{250, 250}
	task := newTestTask(t, remote, item, nil)

	out := NewExecutor(fastRetry(5), nil, logger.Nop()).Execute(context.Background(), task, false)

	assert.Equal(t, domain.StatusCompleted, out.Status)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, int64(1000), out.Bytes)

	calls := remote.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []int64{0, 250, 500}, []int64{calls[0].start, calls[1].start, calls[2].start})
}

func TestExecutorExhaustsAttempts(t *testing.T) {
	remote := newFakeRemote()
	item := remote.add("Game A.zip", payload(100))
	remote.getErrs[item.URL] = []error{errConnReset, errConnReset, errConnReset, errConnReset}
	task := newTestTask(t, remote, item, nil)

	out := NewExecutor(fastRetry(3), nil, logger.Nop()).Execute(context.Background(), task, false)

	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.Equal(t, 3, out.Attempts)
	assert.ErrorIs(t, out.Err, domain.ErrTransport)
	assert.Len(t, remote.calls(), 3)

	failed := domain.NotDownloaded([]domain.Outcome{out})
	require.Len(t, failed, 1)
	assert.Equal(t, "Game A.zip", failed[0].FileName)
}

func TestExecutorDoesNotRetryStructuralErrors(t *testing.T) {
	remote := newFakeRemote()
	item := remote.add("Game A.zip", payload(100))
	item.FileName = "../Game A.zip"
	task := newTestTask(t, remote, item, nil)

	out := NewExecutor(fastRetry(5), nil, logger.Nop()).Execute(context.Background(), task, false)

	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.Equal(t, 1, out.Attempts)
	assert.ErrorIs(t, out.Err, domain.ErrOutputUnusable)
}

func TestExecutorSkippedOutcome(t *testing.T) {
	remote := newFakeRemote()
	task := newTestTask(t, remote, remote.add("Game A.zip", payload(10)), nil)
	require.NoError(t, task.Run(context.Background()))

	out := NewExecutor(fastRetry(5), nil, logger.Nop()).Execute(context.Background(), task, false)
	assert.Equal(t, domain.StatusSkipped, out.Status)
	assert.Equal(t, 1, out.Attempts)
	assert.Zero(t, out.Bytes)
}

func TestExecutorReleasesSlotDuringBackoff(t *testing.T) {
	remote := newFakeRemote()
	item := remote.add("Game A.zip", payload(10))
	remote.getErrs[item.URL] = []error{errConnReset}
	task := newTestTask(t, remote, item, nil)

	slots := semaphore.NewWeighted(1)
	policy := RetryPolicy{Attempts: 2, MinDelay: 200 * time.Millisecond, MaxDelay: 200 * time.Millisecond}
	exec := NewExecutor(policy, slots, logger.Nop())

	done := make(chan domain.Outcome, 1)
	go func() { done <- exec.Execute(context.Background(), task, false) }()

	// While the task sleeps between attempts the only slot is free
	require.Eventually(t, func() bool {
		if slots.TryAcquire(1) {
			slots.Release(1)
			return len(remote.calls()) == 1
		}
		return false
	}, time.Second, 5*time.Millisecond)

	out := <-done
	assert.Equal(t, domain.StatusCompleted, out.Status)
	assert.Equal(t, 2, out.Attempts)
}

func TestExecutorCancelledDuringBackoff(t *testing.T) {
	remote := newFakeRemote()
	item := remote.add("Game A.zip", payload(10))
	remote.getErrs[item.URL] = []error{errConnReset}
	task := newTestTask(t, remote, item, nil)

	policy := RetryPolicy{Attempts: 3, MinDelay: time.Minute, MaxDelay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	out := NewExecutor(policy, nil, logger.Nop()).Execute(ctx, task, false)
	assert.Equal(t, domain.StatusCancelled, out.Status)
	assert.Equal(t, 1, out.Attempts)
	assert.ErrorIs(t, out.Err, context.Canceled)
}
