package model

import "time"

// Operation is one queued unit of document-editing work. It is created by
// the queue on submission and mutated only by the queue's own admission,
// completion, and cancellation bookkeeping.
type Operation struct {
	ID       string          `json:"id"`
	Type     OperationType   `json:"type"`
	Priority int             `json:"priority"`
	Handler  string          `json:"handler"`
	Method   string          `json:"method"`
	Args     map[string]any  `json:"args,omitempty"`
	Status   OperationStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Result and Error are mutually exclusive; exactly one is populated
	// when the operation reaches completed or failed.
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Duration returns the wall time between start and completion,
// or zero if the operation has not run to a terminal state.
func (o *Operation) Duration() time.Duration {
	if o.StartedAt == nil || o.CompletedAt == nil {
		return 0
	}
	return o.CompletedAt.Sub(*o.StartedAt)
}

// OperationRequest is the submission payload for one operation.
type OperationRequest struct {
	Type     OperationType  `json:"type"`
	Handler  string         `json:"handler"`
	Method   string         `json:"method"`
	Args     map[string]any `json:"args,omitempty"`
	Priority int            `json:"priority,omitempty"`
}

// QueueStats is a point-in-time snapshot of queue occupancy.
type QueueStats struct {
	Total         int `json:"total_operations"`
	Pending       int `json:"pending"`
	Running       int `json:"running"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	Cancelled     int `json:"cancelled"`
	MaxConcurrent int `json:"max_concurrent"`
	QueueLength   int `json:"queue_length"`
}
