package store

import (
	"time"

	"github.com/datallboy/dltool/internal/domain"
	"github.com/datallboy/dltool/internal/report"
)

// Run is one stored run.
type Run struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Wanted      int       `json:"wanted"`
	Matched     int       `json:"matched"`
	Missing     int       `json:"missing"`
	Completed   int       `json:"completed"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Cancelled   int       `json:"cancelled"`
	Bytes       int64     `json:"bytes"`
	Interrupted bool      `json:"interrupted"`
}

// Outcome is the stored result of one item of a run.
type Outcome struct {
	Index    int           `json:"index"`
	Name     string        `json:"name"`
	FileName string        `json:"file_name"`
	Status   domain.Status `json:"status"`
	Attempts int           `json:"attempts"`
	Bytes    int64         `json:"bytes"`
	Error    string        `json:"error,omitempty"`
}

// runDBO maps to the runs table
type runDBO struct {
	ID          string `db:"id"`
	Label       string `db:"label"`
	StartedAt   int64  `db:"started_at"`
	FinishedAt  int64  `db:"finished_at"`
	Wanted      int    `db:"wanted"`
	Matched     int    `db:"matched"`
	Missing     int    `db:"missing"`
	Completed   int    `db:"completed"`
	Skipped     int    `db:"skipped"`
	Failed      int    `db:"failed"`
	Cancelled   int    `db:"cancelled"`
	Bytes       int64  `db:"bytes"`
	Interrupted bool   `db:"interrupted"`
}

// Mapper: Summary to DBO
func (r *runDBO) FromSummary(s *report.Summary) {
	counts := s.Counts()

	r.ID = s.RunID
	r.Label = s.Label
	r.StartedAt = s.StartedAt.UnixMilli()
	r.FinishedAt = s.FinishedAt.UnixMilli()
	r.Wanted = s.Wanted
	r.Matched = len(s.Matched)
	r.Missing = len(s.Missing)
	r.Completed = counts[domain.StatusCompleted]
	r.Skipped = counts[domain.StatusSkipped]
	r.Failed = counts[domain.StatusFailed]
	r.Cancelled = counts[domain.StatusCancelled]
	r.Bytes = s.BytesTransferred()
	r.Interrupted = s.Cancelled
}

// Mapper: DBO to Run
func (r *runDBO) ToRun() Run {
	return Run{
		ID:          r.ID,
		Label:       r.Label,
		StartedAt:   time.UnixMilli(r.StartedAt),
		FinishedAt:  time.UnixMilli(r.FinishedAt),
		Wanted:      r.Wanted,
		Matched:     r.Matched,
		Missing:     r.Missing,
		Completed:   r.Completed,
		Skipped:     r.Skipped,
		Failed:      r.Failed,
		Cancelled:   r.Cancelled,
		Bytes:       r.Bytes,
		Interrupted: r.Interrupted,
	}
}

func (r *runDBO) scanArgs() []any {
	return []any{
		&r.ID, &r.Label, &r.StartedAt, &r.FinishedAt, &r.Wanted, &r.Matched, &r.Missing,
		&r.Completed, &r.Skipped, &r.Failed, &r.Cancelled, &r.Bytes, &r.Interrupted,
	}
}

func fromOutcome(o domain.Outcome) Outcome {
	return Outcome{
		Index:    o.Item.Index,
		Name:     o.Item.Name,
		FileName: o.Item.FileName,
		Status:   o.Status,
		Attempts: o.Attempts,
		Bytes:    o.Bytes,
		Error:    o.ErrorString(),
	}
}
