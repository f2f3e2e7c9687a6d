package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/datallboy/dltool/internal/domain"
	"github.com/datallboy/dltool/internal/transport"
)

// Transport is the HTTP capability a task needs.
type Transport interface {
	HeadSize(ctx context.Context, url string) (int64, error)
	GetRange(ctx context.Context, url string, start int64) (io.ReadCloser, error)
}

type State string

const (
	StatePending      State = "pending"
	StateSizing       State = "sizing"
	StateSkip         State = "skip" // Already complete on disk
	StateTransferring State = "transferring"
	StateVerifying    State = "verifying"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Task moves one matched item from the remote server to outDir/FileName.
// A task runs one attempt at a time; the partial file on disk is the only
// state carried between attempts.
type Task struct {
	Item domain.MatchedItem
	Path string

	transport Transport
	fs        FileSystem
	chunkSize int
	events    chan<- domain.ProgressEvent

	state   State
	written int64
}

func NewTask(item domain.MatchedItem, outDir string, tr Transport, fsys FileSystem, chunkSize int, events chan<- domain.ProgressEvent) *Task {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Task{
		Item:      item,
		Path:      filepath.Join(outDir, item.FileName),
		transport: tr,
		fs:        fsys,
		chunkSize: chunkSize,
		events:    events,
		state:     StatePending,
	}
}

func (t *Task) State() State { return t.state }

// Written is the number of bytes the last attempt wrote to disk.
func (t *Task) Written() int64 { return t.written }

// Run performs one attempt. A nil error means the file is complete, either
// because it was transferred (StateDone) or already present (StateSkip).
func (t *Task) Run(ctx context.Context) error {
	t.state = StatePending
	t.written = 0

	err := t.run(ctx)
	if err != nil {
		t.state = StateFailed
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func (t *Task) run(ctx context.Context) error {
	if !isPlainFileName(t.Item.FileName) {
		return fmt.Errorf("%w: unsafe file name %q", domain.ErrOutputUnusable, t.Item.FileName)
	}

	t.state = StateSizing
	remoteSize, err := t.transport.HeadSize(ctx, t.Item.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSizeProbeFailed, err)
	}

	localSize, err := t.fs.Size(t.Path)
	if err != nil {
		return err
	}

	if localSize > 0 && localSize == remoteSize {
		t.state = StateSkip
		return nil
	}

	if localSize > remoteSize {
		if err := t.fs.Remove(t.Path); err != nil {
			return err
		}
		return fmt.Errorf("%w: %d bytes on disk, %d remote", domain.ErrLocalOversized, localSize, remoteSize)
	}

	t.state = StateTransferring
	t.emit(ctx, domain.ProgressEvent{Kind: domain.EventStarted, Item: t.Item, Bytes: localSize, Total: remoteSize})

	body, err := t.transport.GetRange(ctx, t.Item.URL, localSize)
	if err != nil {
		if errors.Is(err, transport.ErrRangeNotSupported) {
			// The next attempt starts from zero with a full GET
			if rmErr := t.fs.Remove(t.Path); rmErr != nil {
				return rmErr
			}
		}
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer body.Close()

	out, err := t.fs.Open(t.Path, localSize > 0)
	if err != nil {
		return err
	}

	copyErr := t.copy(ctx, out, body)
	closeErr := out.Close()
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return closeErr
	}

	t.state = StateVerifying
	finalSize, err := t.fs.Size(t.Path)
	if err != nil {
		return err
	}
	if finalSize != remoteSize {
		if err := t.fs.Remove(t.Path); err != nil {
			return err
		}
		return fmt.Errorf("%w: expected %d bytes, got %d", domain.ErrSizeMismatch, remoteSize, finalSize)
	}

	t.state = StateDone
	return nil
}

// copy streams body to out one chunk at a time. Write errors come back as
// returned by the FileSystem; read errors are transport errors.
func (t *Task) copy(ctx context.Context, out io.Writer, body io.Reader) error {
	buf := make([]byte, t.chunkSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			w, werr := out.Write(buf[:n])
			t.written += int64(w)
			if w > 0 {
				t.emit(ctx, domain.ProgressEvent{Kind: domain.EventProgress, Item: t.Item, Bytes: int64(w)})
			}
			if werr != nil {
				return werr
			}
			if w < n {
				return io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("%w: %w", domain.ErrTransport, rerr)
		}
	}
}

func (t *Task) emit(ctx context.Context, ev domain.ProgressEvent) {
	if t.events == nil {
		return
	}
	select {
	case t.events <- ev:
	case <-ctx.Done():
	}
}

func isPlainFileName(name string) bool {
	return name != "" && filepath.IsLocal(name) && filepath.Base(name) == name
}
