package executor

import "context"

// Aggregated payload shapes passed to native bulk methods.

// CellWrite pairs a cell reference with the value to write.
type CellWrite struct {
	Ref   string `json:"ref"`
	Value any    `json:"value"`
}

// ShapeSpec describes one shape to insert on a slide.
type ShapeSpec struct {
	Kind     string         `json:"kind"`
	Content  any            `json:"content,omitempty"`
	Position map[string]any `json:"position,omitempty"`
	Size     map[string]any `json:"size,omitempty"`
}

// TextUpdate pairs a shape id with its replacement text.
type TextUpdate struct {
	ShapeID string `json:"shape_id"`
	Content any    `json:"content"`
}

// ShapeFormat pairs a shape id with the formatting options to apply.
type ShapeFormat struct {
	ShapeID string         `json:"shape_id"`
	Options map[string]any `json:"options"`
}

// Single-item capability contracts. A handler façade implements the
// contracts for the edits it supports; the adapter falls back to these
// when no bulk counterpart exists.

// CellWriter writes a single cell value.
type CellWriter interface {
	WriteCell(ctx context.Context, ref string, value any) (any, error)
}

// RangeMerger merges one cell range.
type RangeMerger interface {
	MergeRange(ctx context.Context, ref string) (any, error)
}

// RangeFormatter applies formatting options to one range.
type RangeFormatter interface {
	FormatRange(ctx context.Context, ref string, options map[string]any) (any, error)
}

// ShapeAdder inserts one shape on a slide.
type ShapeAdder interface {
	AddShape(ctx context.Context, slide int, spec ShapeSpec) (any, error)
}

// TextUpdater replaces the text of one shape.
type TextUpdater interface {
	UpdateShapeText(ctx context.Context, slide int, shapeID string, content any) (any, error)
}

// ShapeFormatter applies formatting options to one shape.
type ShapeFormatter interface {
	FormatShape(ctx context.Context, slide int, shapeID string, options map[string]any) (any, error)
}

// ShapeMover repositions one shape.
type ShapeMover interface {
	MoveShape(ctx context.Context, slide int, shapeID string, position map[string]any) (any, error)
}

// Bulk capability contracts. The adapter probes for these with a type
// assertion and, when present, issues one call for the whole batch.

// BulkCellWriter writes many cells in one call.
type BulkCellWriter interface {
	WriteCells(ctx context.Context, writes []CellWrite) (any, error)
}

// BulkRangeMerger merges many ranges in one call.
type BulkRangeMerger interface {
	MergeRanges(ctx context.Context, refs []string) (any, error)
}

// BulkShapeAdder inserts many shapes on one slide in one call.
type BulkShapeAdder interface {
	AddShapes(ctx context.Context, slide int, specs []ShapeSpec) (any, error)
}

// BulkTextUpdater replaces the text of many shapes in one call.
type BulkTextUpdater interface {
	UpdateShapeTexts(ctx context.Context, slide int, updates []TextUpdate) (any, error)
}

// BulkShapeFormatter formats many shapes in one call.
type BulkShapeFormatter interface {
	FormatShapes(ctx context.Context, slide int, formats []ShapeFormat) (any, error)
}
