package driving

import "context"

// ExtractionRunner processes pending extraction attempts.
type ExtractionRunner interface {
	// ProcessPending runs every Pending attempt once and returns how many
	// were processed.
	ProcessPending(ctx context.Context) (int, error)

	// Run processes pending attempts until ctx is cancelled, waking on
	// Notify or on its poll interval.
	Run(ctx context.Context) error

	// Notify wakes a running worker.
	Notify()
}
