package executor

import (
	"context"
	"fmt"

	"github.com/me/docbatch/internal/optimizer"
)

// ExecuteSheetBatch runs one spreadsheet batch against a handler. The
// handler is probed for the bulk contract matching the batch's type;
// value writes and range merges have bulk forms, formats and formulas
// always execute per item.
func ExecuteSheetBatch(ctx context.Context, batch []optimizer.SheetOp, handler any) BatchResult {
	if len(batch) == 0 {
		return BatchResult{}
	}

	targets := make([]string, 0, len(batch))
	for _, op := range batch {
		targets = append(targets, op.Ref)
	}

	switch batch[0].Type {
	case optimizer.SheetSetValue:
		return executeCellWrites(ctx, batch, targets, handler)
	case optimizer.SheetMergeCells:
		return executeRangeMerges(ctx, batch, targets, handler)
	case optimizer.SheetFormat:
		return executeRangeFormats(ctx, batch, handler)
	case optimizer.SheetFormula:
		// Formulas write through the cell-value path, one cell at a time;
		// formula payloads are never aggregated.
		return executeFormulaWrites(ctx, batch, handler)
	default:
		return BatchResult{
			BatchSize: len(batch),
			Outcomes:  unsupported(targets, fmt.Sprintf("operation type %q", batch[0].Type)),
		}
	}
}

func executeCellWrites(ctx context.Context, batch []optimizer.SheetOp, targets []string, handler any) BatchResult {
	if bulk, ok := handler.(BulkCellWriter); ok {
		writes := make([]CellWrite, 0, len(batch))
		for _, op := range batch {
			writes = append(writes, CellWrite{Ref: op.Ref, Value: op.Value})
		}
		result, err := bulk.WriteCells(ctx, writes)
		return BatchResult{BatchSize: len(batch), Bulk: true, Outcomes: bulkOutcomes(targets, result, err)}
	}

	single, ok := handler.(CellWriter)
	if !ok {
		return BatchResult{BatchSize: len(batch), Outcomes: unsupported(targets, "cell writes")}
	}
	outcomes := make([]Outcome, 0, len(batch))
	for _, op := range batch {
		result, err := single.WriteCell(ctx, op.Ref, op.Value)
		outcomes = append(outcomes, singleOutcome(op.Ref, result, err))
	}
	return BatchResult{BatchSize: len(batch), Outcomes: outcomes}
}

func executeRangeMerges(ctx context.Context, batch []optimizer.SheetOp, targets []string, handler any) BatchResult {
	if bulk, ok := handler.(BulkRangeMerger); ok {
		result, err := bulk.MergeRanges(ctx, targets)
		return BatchResult{BatchSize: len(batch), Bulk: true, Outcomes: bulkOutcomes(targets, result, err)}
	}

	single, ok := handler.(RangeMerger)
	if !ok {
		return BatchResult{BatchSize: len(batch), Outcomes: unsupported(targets, "range merges")}
	}
	outcomes := make([]Outcome, 0, len(batch))
	for _, op := range batch {
		result, err := single.MergeRange(ctx, op.Ref)
		outcomes = append(outcomes, singleOutcome(op.Ref, result, err))
	}
	return BatchResult{BatchSize: len(batch), Outcomes: outcomes}
}

func executeRangeFormats(ctx context.Context, batch []optimizer.SheetOp, handler any) BatchResult {
	single, ok := handler.(RangeFormatter)
	if !ok {
		targets := make([]string, 0, len(batch))
		for _, op := range batch {
			targets = append(targets, op.Ref)
		}
		return BatchResult{BatchSize: len(batch), Outcomes: unsupported(targets, "range formats")}
	}
	outcomes := make([]Outcome, 0, len(batch))
	for _, op := range batch {
		result, err := single.FormatRange(ctx, op.Ref, op.Options)
		outcomes = append(outcomes, singleOutcome(op.Ref, result, err))
	}
	return BatchResult{BatchSize: len(batch), Outcomes: outcomes}
}

func executeFormulaWrites(ctx context.Context, batch []optimizer.SheetOp, handler any) BatchResult {
	single, ok := handler.(CellWriter)
	if !ok {
		targets := make([]string, 0, len(batch))
		for _, op := range batch {
			targets = append(targets, op.Ref)
		}
		return BatchResult{BatchSize: len(batch), Outcomes: unsupported(targets, "formula writes")}
	}
	outcomes := make([]Outcome, 0, len(batch))
	for _, op := range batch {
		result, err := single.WriteCell(ctx, op.Ref, op.Value)
		outcomes = append(outcomes, singleOutcome(op.Ref, result, err))
	}
	return BatchResult{BatchSize: len(batch), Outcomes: outcomes}
}
