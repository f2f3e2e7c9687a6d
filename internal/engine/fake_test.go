package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/datallboy/dltool/internal/domain"
)

var errConnReset = errors.New("connection reset by peer")

type getCall struct {
	url   string
	start int64
}

// fakeRemote serves files from memory and records what it was asked for.
type fakeRemote struct {
	mu    sync.Mutex
	files map[string][]byte

	headErrs map[string][]error // consumed one per HEAD
	getErrs  map[string][]error // consumed one per GET
	cutAfter map[string][]int   // stream this many bytes, then fail; consumed one per GET
	extra    map[string][]byte  // appended to every body

	heads int
	gets  []getCall

	readDelay time.Duration
	block     bool // GET waits for ctx cancellation

	active    int
	maxActive int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		files:    make(map[string][]byte),
		headErrs: make(map[string][]error),
		getErrs:  make(map[string][]error),
		cutAfter: make(map[string][]int),
		extra:    make(map[string][]byte),
	}
}

func (f *fakeRemote) add(name string, data []byte) domain.MatchedItem {
	url := "http://remote/" + name
	f.files[url] = data
	return domain.MatchedItem{AvailableItem: domain.AvailableItem{Name: name, FileName: name, URL: url}}
}

func pop[T any](m map[string][]T, key string) (T, bool) {
	var zero T
	q := m[key]
	if len(q) == 0 {
		return zero, false
	}
	m[key] = q[1:]
	return q[0], true
}

func (f *fakeRemote) HeadSize(ctx context.Context, url string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.heads++
	if err, ok := pop(f.headErrs, url); ok {
		return 0, err
	}
	data, ok := f.files[url]
	if !ok {
		return 0, fmt.Errorf("not found: %s", url)
	}
	return int64(len(data)), nil
}

func (f *fakeRemote) GetRange(ctx context.Context, url string, start int64) (io.ReadCloser, error) {
	f.mu.Lock()
	f.gets = append(f.gets, getCall{url: url, start: start})
	if err, ok := pop(f.getErrs, url); ok {
		f.mu.Unlock()
		return nil, err
	}
	data := append(append([]byte(nil), f.files[url][start:]...), f.extra[url]...)
	cut, hasCut := pop(f.cutAfter, url)
	block := f.block

	f.active++
	f.maxActive = max(f.maxActive, f.active)
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		f.release()
		return nil, ctx.Err()
	}

	var r io.Reader = bytes.NewReader(data)
	if hasCut {
		r = io.MultiReader(bytes.NewReader(data[:cut]), errReader{errConnReset})
	}
	return &fakeBody{r: r, f: f, delay: f.readDelay}, nil
}

func (f *fakeRemote) release() {
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
}

func (f *fakeRemote) calls() []getCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]getCall(nil), f.gets...)
}

type fakeBody struct {
	r     io.Reader
	f     *fakeRemote
	delay time.Duration
	once  sync.Once
}

func (b *fakeBody) Read(p []byte) (int, error) {
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	return b.r.Read(p)
}

func (b *fakeBody) Close() error {
	b.once.Do(b.f.release)
	return nil
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func payload(n int) []byte {
	return bytes.Repeat([]byte("dltool-"), n/7+1)[:n]
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{Attempts: attempts, MinDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}
