package events

import "time"

// ArtboardScheduledContext is the context for the artboardScheduled hook
type ArtboardScheduledContext struct {
	DocumentID string
	ArtboardID string
	Kind       string
	At         time.Time
}

// PlaceholderAppliedContext is the context for the placeholderApplied hook
type PlaceholderAppliedContext struct {
	DocumentID string
	ArtboardID string
	Kind       string
	Applied    int
	Unchanged  int
	Skipped    int
	Deferred   int
	Failed     int
}

// ChangeDiscardedContext is the context for the changeDiscarded hook
type ChangeDiscardedContext struct {
	DocumentID string
	Path       string
	Reason     string
}

// PaginationRebuiltContext is the context for the paginationRebuilt hook
type PaginationRebuiltContext struct {
	DocumentID string
	Entries    int
	Writes     int
}

type StateResetContext struct {
	DocumentID string
}
