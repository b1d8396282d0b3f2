package executor

import (
	"context"
	"fmt"

	"github.com/me/docbatch/internal/optimizer"
)

// ExecuteSlideBatch runs one presentation batch against a handler.
// Optimizer batches never span slides, so the slide index of the first
// descriptor applies to the whole batch. Shape insertions, text updates
// and shape formats have bulk forms; moves always execute per item.
func ExecuteSlideBatch(ctx context.Context, batch []optimizer.SlideOp, handler any) BatchResult {
	if len(batch) == 0 {
		return BatchResult{}
	}
	slide := batch[0].SlideIndex

	switch batch[0].Type {
	case optimizer.SlideAddShape:
		return executeShapeAdds(ctx, slide, batch, handler)
	case optimizer.SlideModifyText:
		return executeTextUpdates(ctx, slide, batch, handler)
	case optimizer.SlideFormatShape:
		return executeShapeFormats(ctx, slide, batch, handler)
	case optimizer.SlideMoveShape:
		return executeShapeMoves(ctx, slide, batch, handler)
	default:
		return BatchResult{
			BatchSize: len(batch),
			Outcomes:  unsupported(slideTargets(slide, batch), fmt.Sprintf("operation type %q", batch[0].Type)),
		}
	}
}

// slideTargets labels each descriptor by shape id, or by slide position
// for insertions that have no id yet.
func slideTargets(slide int, batch []optimizer.SlideOp) []string {
	targets := make([]string, 0, len(batch))
	for i, op := range batch {
		if op.ShapeID != "" {
			targets = append(targets, op.ShapeID)
			continue
		}
		targets = append(targets, fmt.Sprintf("slide[%d].shape[%d]", slide, i))
	}
	return targets
}

// shapeSpec lifts the optimizer descriptor into the insertion payload.
// Kind, position and size travel in the descriptor's option map.
func shapeSpec(op optimizer.SlideOp) ShapeSpec {
	spec := ShapeSpec{Kind: "text_box", Content: op.Content}
	if op.Options == nil {
		return spec
	}
	if kind, ok := op.Options["shape_type"].(string); ok && kind != "" {
		spec.Kind = kind
	}
	if pos, ok := op.Options["position"].(map[string]any); ok {
		spec.Position = pos
	}
	if size, ok := op.Options["size"].(map[string]any); ok {
		spec.Size = size
	}
	return spec
}

func executeShapeAdds(ctx context.Context, slide int, batch []optimizer.SlideOp, handler any) BatchResult {
	targets := slideTargets(slide, batch)

	if bulk, ok := handler.(BulkShapeAdder); ok {
		specs := make([]ShapeSpec, 0, len(batch))
		for _, op := range batch {
			specs = append(specs, shapeSpec(op))
		}
		result, err := bulk.AddShapes(ctx, slide, specs)
		return BatchResult{BatchSize: len(batch), Bulk: true, Outcomes: bulkOutcomes(targets, result, err)}
	}

	single, ok := handler.(ShapeAdder)
	if !ok {
		return BatchResult{BatchSize: len(batch), Outcomes: unsupported(targets, "shape insertions")}
	}
	outcomes := make([]Outcome, 0, len(batch))
	for i, op := range batch {
		result, err := single.AddShape(ctx, slide, shapeSpec(op))
		outcomes = append(outcomes, singleOutcome(targets[i], result, err))
	}
	return BatchResult{BatchSize: len(batch), Outcomes: outcomes}
}

func executeTextUpdates(ctx context.Context, slide int, batch []optimizer.SlideOp, handler any) BatchResult {
	targets := slideTargets(slide, batch)

	if bulk, ok := handler.(BulkTextUpdater); ok {
		updates := make([]TextUpdate, 0, len(batch))
		for _, op := range batch {
			updates = append(updates, TextUpdate{ShapeID: op.ShapeID, Content: op.Content})
		}
		result, err := bulk.UpdateShapeTexts(ctx, slide, updates)
		return BatchResult{BatchSize: len(batch), Bulk: true, Outcomes: bulkOutcomes(targets, result, err)}
	}

	single, ok := handler.(TextUpdater)
	if !ok {
		return BatchResult{BatchSize: len(batch), Outcomes: unsupported(targets, "text updates")}
	}
	outcomes := make([]Outcome, 0, len(batch))
	for _, op := range batch {
		result, err := single.UpdateShapeText(ctx, slide, op.ShapeID, op.Content)
		outcomes = append(outcomes, singleOutcome(op.ShapeID, result, err))
	}
	return BatchResult{BatchSize: len(batch), Outcomes: outcomes}
}

func executeShapeFormats(ctx context.Context, slide int, batch []optimizer.SlideOp, handler any) BatchResult {
	targets := slideTargets(slide, batch)

	if bulk, ok := handler.(BulkShapeFormatter); ok {
		formats := make([]ShapeFormat, 0, len(batch))
		for _, op := range batch {
			formats = append(formats, ShapeFormat{ShapeID: op.ShapeID, Options: op.Options})
		}
		result, err := bulk.FormatShapes(ctx, slide, formats)
		return BatchResult{BatchSize: len(batch), Bulk: true, Outcomes: bulkOutcomes(targets, result, err)}
	}

	single, ok := handler.(ShapeFormatter)
	if !ok {
		return BatchResult{BatchSize: len(batch), Outcomes: unsupported(targets, "shape formats")}
	}
	outcomes := make([]Outcome, 0, len(batch))
	for _, op := range batch {
		result, err := single.FormatShape(ctx, slide, op.ShapeID, op.Options)
		outcomes = append(outcomes, singleOutcome(op.ShapeID, result, err))
	}
	return BatchResult{BatchSize: len(batch), Outcomes: outcomes}
}

func executeShapeMoves(ctx context.Context, slide int, batch []optimizer.SlideOp, handler any) BatchResult {
	single, ok := handler.(ShapeMover)
	if !ok {
		return BatchResult{BatchSize: len(batch), Outcomes: unsupported(slideTargets(slide, batch), "shape moves")}
	}
	outcomes := make([]Outcome, 0, len(batch))
	for _, op := range batch {
		position, _ := op.Options["position"].(map[string]any)
		result, err := single.MoveShape(ctx, slide, op.ShapeID, position)
		outcomes = append(outcomes, singleOutcome(op.ShapeID, result, err))
	}
	return BatchResult{BatchSize: len(batch), Outcomes: outcomes}
}
