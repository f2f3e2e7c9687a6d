package domain

import "sort"

type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped" // Already complete on disk, nothing transferred
	StatusFailed    Status = "failed"  // Failed permanently after all attempts
	StatusCancelled Status = "cancelled"
)

// Outcome is the final result for one matched item.
type Outcome struct {
	Item     MatchedItem `json:"item"`
	Status   Status      `json:"status"`
	Attempts int         `json:"attempts"`
	Bytes    int64       `json:"bytes"` // Bytes transferred during this run
	Err      error       `json:"-"`
}

// Succeeded is true for completed and skipped outcomes.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusCompleted || o.Status == StatusSkipped
}

// ErrorString is the last error message, or empty.
func (o Outcome) ErrorString() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// NotDownloaded returns the items that failed permanently, in manifest order.
func NotDownloaded(outcomes []Outcome) []MatchedItem {
	var failed []MatchedItem
	for _, o := range outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o.Item)
		}
	}

	sort.SliceStable(failed, func(i, j int) bool {
		return failed[i].Index < failed[j].Index
	})
	return failed
}

// CountByStatus tallies outcomes per status.
func CountByStatus(outcomes []Outcome) map[Status]int {
	counts := make(map[Status]int, 4)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return counts
}
