package model

import (
	"encoding/json"
	"time"
)

// Interaction event types the pipeline acts on. Unknown event types are
// stored verbatim and ignored downstream (forward compatibility with newer
// clients).
const (
	EventShown               = "shown"
	EventTapped              = "tapped"
	EventDismissed           = "dismissed"
	EventFlowCompleted       = "flow_completed"
	EventFlowReset           = "flow_reset"
	EventFlowRequested       = "flow_requested"
	EventInterventionSaved   = "intervention_saved"
	EventInterventionUnsaved = "intervention_unsaved"
)

// Reset scopes accepted by POST /user/reset.
const (
	ResetScopeAll   = "all"
	ResetScopeFlows = "flows"
	ResetScopeSaved = "saved"
)

// ValidResetScope reports whether s is one of the accepted reset scopes.
func ValidResetScope(s string) bool {
	return s == ResetScopeAll || s == ResetScopeFlows || s == ResetScopeSaved
}

// AppInteraction is the body of POST /app_interactions.
type AppInteraction struct {
	TraceID                string          `json:"trace_id"`
	UserID                 string          `json:"user_id"`
	InterventionInstanceID string          `json:"intervention_instance_id,omitempty"`
	EventType              string          `json:"event_type"`
	Timestamp              time.Time       `json:"timestamp"`
	Payload                json.RawMessage `json:"payload,omitempty"`
}

// FlowCompletedPayload is the payload of a flow_completed event.
type FlowCompletedPayload struct {
	FlowID      string `json:"flow_id"`
	FlowVersion string `json:"flow_version"`
}

// FlowResetPayload is the payload of a flow_reset event.
type FlowResetPayload struct {
	Scope string `json:"scope"`
}

// FlowRequestedPayload is the payload of a flow_requested event.
type FlowRequestedPayload struct {
	FlowID string `json:"flow_id"`
}

// SavedInterventionPayload is the payload of intervention_saved and
// intervention_unsaved events.
type SavedInterventionPayload struct {
	InterventionKey string `json:"intervention_key"`
}
