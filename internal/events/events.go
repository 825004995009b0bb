// Package events defines the two bus payloads that connect the pipeline
// stages and the Publisher used to emit them. Both topics carry JSON and are
// delivered at-least-once; consumers are responsible for their own
// idempotence.
package events

import "time"

// WatchEventTrigger is published on the watch_events subject after a raw
// batch has been persisted. It tells the state estimator that unprocessed
// data exists; it is a trigger, not the data itself.
type WatchEventTrigger struct {
	UserID       string    `json:"user_id"`
	FetchedAt    time.Time `json:"fetched_at"`
	TraceID      string    `json:"trace_id"`
	TotalSamples int       `json:"total_samples"`
}

// StateEstimateEvent is published on the state_estimates subject, one per
// user whose derived state was refreshed by a transform run.
type StateEstimateEvent struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}
