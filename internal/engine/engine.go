// Package engine downloads matched items with bounded concurrency, resuming
// partial files and retrying transient failures.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/datallboy/dltool/internal/domain"
	"github.com/datallboy/dltool/internal/infra/logger"
)

const DefaultChunkSize = 1 << 20

type Options struct {
	OutDir      string
	Concurrency int
	ChunkSize   int
	Retry       RetryPolicy
}

type Engine struct {
	opts      Options
	transport Transport
	fs        FileSystem
	log       *logger.Logger
	events    chan<- domain.ProgressEvent
}

func New(opts Options, tr Transport, fsys FileSystem, log *logger.Logger) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Engine{opts: opts, transport: tr, fs: fsys, log: log}
}

// WithProgress sends progress events to ch. The consumer must keep reading
// until Run returns.
func (e *Engine) WithProgress(ch chan<- domain.ProgressEvent) *Engine {
	e.events = ch
	return e
}

// Run downloads matched and returns one outcome per item, in input order.
// On cancellation the items that did not finish are marked cancelled and
// ctx.Err() is returned. If the output directory disappears the run stops
// and the error wraps domain.ErrEnvironment.
func (e *Engine) Run(ctx context.Context, matched []domain.MatchedItem) ([]domain.Outcome, error) {
	outcomes := make([]domain.Outcome, len(matched))

	runCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	slots := semaphore.NewWeighted(int64(e.opts.Concurrency))
	exec := NewExecutor(e.opts.Retry, slots, e.log)

	var wg sync.WaitGroup
	for i, item := range matched {
		if err := slots.Acquire(runCtx, 1); err != nil {
			for j := i; j < len(matched); j++ {
				outcomes[j] = domain.Outcome{Item: matched[j], Status: domain.StatusCancelled, Err: context.Cause(runCtx)}
			}
			break
		}

		wg.Go(func() {
			task := NewTask(item, e.opts.OutDir, e.transport, e.fs, e.opts.ChunkSize, e.events)
			e.log.Debug("Starting %s", item.FileName)

			o := exec.Execute(runCtx, task, true)
			if o.Status == domain.StatusFailed && errors.Is(o.Err, domain.ErrOutputUnusable) && !e.fs.DirExists(e.opts.OutDir) {
				abort(fmt.Errorf("%w: output directory %s is no longer accessible", domain.ErrEnvironment, e.opts.OutDir))
			}

			outcomes[i] = o
			e.finished(runCtx, o)
		})
	}
	wg.Wait()

	if cause := context.Cause(runCtx); errors.Is(cause, domain.ErrEnvironment) {
		e.log.Error("Aborting run: %v", cause)
		return outcomes, cause
	}
	return outcomes, ctx.Err()
}

func (e *Engine) finished(ctx context.Context, o domain.Outcome) {
	switch o.Status {
	case domain.StatusCompleted:
		e.log.Info("Downloaded %s", o.Item.FileName)
	case domain.StatusSkipped:
		e.log.Info("Already complete: %s", o.Item.FileName)
	}

	if e.events == nil {
		return
	}
	select {
	case e.events <- domain.ProgressEvent{Kind: domain.EventFinished, Item: o.Item, Outcome: &o}:
	case <-ctx.Done():
	}
}
