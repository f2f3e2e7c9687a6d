// Package report builds the end-of-run summary. Names the listing never had
// and items that failed to download are reported as separate lists.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/segmentio/ksuid"

	"github.com/datallboy/dltool/internal/domain"
)

// Logger is the subset of the application logger the summary writes to.
type Logger interface {
	Info(f string, v ...any)
	Warn(f string, v ...any)
}

// Printer writes every line to W, whatever the console log level is.
type Printer struct {
	W io.Writer
}

func (p Printer) Info(f string, v ...any) { fmt.Fprintf(p.W, f+"\n", v...) }
func (p Printer) Warn(f string, v ...any) { fmt.Fprintf(p.W, f+"\n", v...) }

type Summary struct {
	RunID      string
	Label      string
	StartedAt  time.Time
	FinishedAt time.Time

	Wanted   int
	Matched  []domain.MatchedItem
	Missing  []string
	Outcomes []domain.Outcome

	Cancelled bool
}

func New(label string, wanted int, matched []domain.MatchedItem, missing []string) *Summary {
	return &Summary{
		RunID:     ksuid.New().String(),
		Label:     label,
		StartedAt: time.Now(),
		Wanted:    wanted,
		Matched:   matched,
		Missing:   missing,
	}
}

// Finish records the engine outcomes.
func (s *Summary) Finish(outcomes []domain.Outcome, cancelled bool) {
	s.Outcomes = outcomes
	s.Cancelled = cancelled
	s.FinishedAt = time.Now()
}

func (s *Summary) NotDownloaded() []domain.MatchedItem {
	return domain.NotDownloaded(s.Outcomes)
}

func (s *Summary) Counts() map[domain.Status]int {
	return domain.CountByStatus(s.Outcomes)
}

func (s *Summary) BytesTransferred() int64 {
	var total int64
	for _, o := range s.Outcomes {
		total += o.Bytes
	}
	return total
}

// LogCounts prints the reconciliation numbers.
func (s *Summary) LogCounts(log Logger) {
	log.Info("Amount of wanted ROMs in DAT-file   : %d", s.Wanted)
	log.Info("Amount of found ROMs at server      : %d", len(s.Matched))
	if len(s.Missing) > 0 {
		log.Info("Amount of missing ROMs at server    : %d", len(s.Missing))
	}
}

// LogMissing lists the wanted names the listing does not have.
func (s *Summary) LogMissing(log Logger) {
	if len(s.Missing) == 0 {
		return
	}
	log.Warn("ROMs not available on the server:")
	for _, name := range s.Missing {
		log.Warn("  %s", name)
	}
}

// Log prints the full end-of-run report.
func (s *Summary) Log(log Logger) {
	s.LogCounts(log)

	counts := s.Counts()
	log.Info("Downloaded: %d, already present: %d, failed: %d, cancelled: %d (%s transferred)",
		counts[domain.StatusCompleted], counts[domain.StatusSkipped],
		counts[domain.StatusFailed], counts[domain.StatusCancelled],
		humanize.IBytes(uint64(s.BytesTransferred())))

	s.LogMissing(log)

	if failed := s.NotDownloaded(); len(failed) > 0 {
		log.Warn("ROMs that failed to download:")
		for _, it := range failed {
			log.Warn("  %s", it.FileName)
		}
	}
}
