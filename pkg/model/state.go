package model

// OperationStatus represents the lifecycle state of an Operation.
type OperationStatus string

const (
	StatusPending   OperationStatus = "pending"
	StatusRunning   OperationStatus = "running"
	StatusCompleted OperationStatus = "completed"
	StatusFailed    OperationStatus = "failed"
	StatusCancelled OperationStatus = "cancelled"
)

// String returns the string representation of the status.
func (s OperationStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the operation is in a final state.
// A terminal status is never left once entered.
func (s OperationStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ValidStatusTransitions defines the allowed status transitions for Operations.
var ValidStatusTransitions = map[OperationStatus][]OperationStatus{
	StatusPending: {StatusRunning, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransitionTo returns true if moving from the current status to next is valid.
func (s OperationStatus) CanTransitionTo(next OperationStatus) bool {
	for _, allowed := range ValidStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OperationType identifies which document family an operation edits.
type OperationType string

const (
	TypeSpreadsheet  OperationType = "spreadsheet"
	TypePresentation OperationType = "presentation"
	TypeTextDocument OperationType = "textdoc"
)

// String returns the string representation of the operation type.
func (t OperationType) String() string {
	return string(t)
}
