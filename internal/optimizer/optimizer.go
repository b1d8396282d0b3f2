// Package optimizer merges individually-submitted document edits into
// fewer, larger batches before execution. Each document family has its own
// optimizer with per-operation-type merge policies; batches are ephemeral
// groupings, not queue entities.
package optimizer

// Stats summarizes how much merging an optimizer achieved. It is used to
// validate that batching is actually reducing call volume.
type Stats struct {
	TotalOperations int      `json:"total_operations"`
	Batches         int      `json:"batches"`
	AvgBatchSize    float64  `json:"avg_batch_size"`
	OperationTypes  []string `json:"operation_types"`
	Slides          int      `json:"slides,omitempty"`
}
