package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// body guards a response body with the inactivity watchdog and, when set,
// the shared bandwidth limiter.
type body struct {
	rc      io.ReadCloser
	ctx     context.Context
	wd      *watchdog
	limiter *rate.Limiter
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.wd.Kick()
		if werr := b.throttle(n); werr != nil {
			return n, b.cause(werr)
		}
	}
	if err != nil && err != io.EOF {
		return n, b.cause(err)
	}
	return n, err
}

func (b *body) throttle(n int) error {
	if b.limiter == nil {
		return nil
	}

	burst := b.limiter.Burst()
	for n > 0 {
		k := min(n, burst)
		if err := b.limiter.WaitN(b.ctx, k); err != nil {
			return err
		}
		b.wd.Kick()
		n -= k
	}
	return nil
}

func (b *body) cause(err error) error {
	return idleCause(b.ctx, b.wd.timeout, err)
}

// idleCause replaces the generic cancellation error with the watchdog's
// deadline when the watchdog fired.
func idleCause(ctx context.Context, timeout time.Duration, err error) error {
	if c := context.Cause(ctx); errors.Is(c, os.ErrDeadlineExceeded) {
		return fmt.Errorf("no data received for %s: %w", timeout, c)
	}
	return err
}

func (b *body) Close() error {
	b.wd.Stop()
	return b.rc.Close()
}
