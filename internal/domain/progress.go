package domain

type EventKind int

const (
	// EventStarted is sent once a transfer knows both sizes
	EventStarted EventKind = iota
	// EventProgress carries a chunk of bytes written to disk
	EventProgress
	// EventFinished carries the final outcome of an item
	EventFinished
)

// ProgressEvent is sent by download tasks to the single progress consumer.
type ProgressEvent struct {
	Kind EventKind
	Item MatchedItem

	// Bytes is the chunk size for EventProgress, or the bytes already on disk for EventStarted
	Bytes int64
	// Total is the remote size, set on EventStarted
	Total int64

	Outcome *Outcome
}
