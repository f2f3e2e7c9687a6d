// Package progress renders download progress from the engine's event stream.
// The reporter is the only reader of that stream and the only owner of the
// counters it derives.
package progress

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/datallboy/dltool/internal/domain"
)

type Options struct {
	// TotalItems is the number of items the run will report on.
	TotalItems int

	// Output is where the status line goes.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often the status line is redrawn.
	// Default: 500ms
	UpdateInterval time.Duration
}

// ActiveItem is a transfer in progress.
type ActiveItem struct {
	FileName string `json:"file_name"`
	Done     int64  `json:"done"`
	Total    int64  `json:"total"`
}

// Snapshot is a point-in-time copy of the reporter state.
type Snapshot struct {
	TotalItems     int                   `json:"total_items"`
	Finished       int                   `json:"finished"`
	ByStatus       map[domain.Status]int `json:"by_status"`
	Bytes          int64                 `json:"bytes"`
	BytesPerSecond float64               `json:"bytes_per_second"`
	Active         []ActiveItem          `json:"active"`
	StartedAt      time.Time             `json:"started_at"`
}

type Reporter struct {
	opts Options

	mu         sync.Mutex
	byStatus   map[domain.Status]int
	finished   int
	bytes      int64
	active     map[string]*ActiveItem
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
	speed      float64
}

func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	now := time.Now()
	return &Reporter{
		opts:       opts,
		byStatus:   make(map[domain.Status]int),
		active:     make(map[string]*ActiveItem),
		startTime:  now,
		lastUpdate: now,
	}
}

// Run consumes events until the channel is closed, redrawing the status
// line on every tick and once more at the end.
func (r *Reporter) Run(events <-chan domain.ProgressEvent) {
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				r.printProgress()
				fmt.Fprintln(r.opts.Output)
				return
			}
			r.apply(ev)
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Reporter) apply(ev domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ev.Item.FileName
	switch ev.Kind {
	case domain.EventStarted:
		r.active[key] = &ActiveItem{FileName: key, Done: ev.Bytes, Total: ev.Total}
	case domain.EventProgress:
		r.bytes += ev.Bytes
		if a, ok := r.active[key]; ok {
			a.Done += ev.Bytes
		}
	case domain.EventFinished:
		delete(r.active, key)
		r.finished++
		if ev.Outcome != nil {
			r.byStatus[ev.Outcome.Status]++
		}
	}
}

// Snapshot returns a copy of the current state; safe for concurrent use.
func (r *Reporter) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		TotalItems:     r.opts.TotalItems,
		Finished:       r.finished,
		ByStatus:       make(map[domain.Status]int, len(r.byStatus)),
		Bytes:          r.bytes,
		BytesPerSecond: r.speed,
		Active:         make([]ActiveItem, 0, len(r.active)),
		StartedAt:      r.startTime,
	}
	for k, v := range r.byStatus {
		s.ByStatus[k] = v
	}
	for _, a := range r.active {
		s.Active = append(s.Active, *a)
	}
	sort.Slice(s.Active, func(i, j int) bool { return s.Active[i].FileName < s.Active[j].FileName })

	return s
}

func (r *Reporter) printProgress() {
	r.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	r.speed = float64(r.bytes-r.lastBytes) / elapsed
	r.lastUpdate = now
	r.lastBytes = r.bytes

	line := fmt.Sprintf("\r[dltool] %d/%d items | %s | %s/s | %d active",
		r.finished, r.opts.TotalItems,
		humanize.IBytes(uint64(r.bytes)),
		humanize.IBytes(uint64(r.speed)),
		len(r.active),
	)
	r.mu.Unlock()

	fmt.Fprintf(r.opts.Output, "%-72s", line)
}
