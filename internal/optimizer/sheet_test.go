package optimizer

import (
	"testing"
)

func TestCellIndex(t *testing.T) {
	tests := []struct {
		ref     string
		wantRow int
		wantCol int
	}{
		{"A1", 1, 1},
		{"B2", 2, 2},
		{"Z1", 1, 26},
		{"AA1", 1, 27},
		{"AZ3", 3, 52},
		{"BA10", 10, 53},
		{"Sheet1!C4", 4, 3},
		{"Data!AA100", 100, 27},
		{"a1", 1, 1},
		{"", 0, 0},
		{"123", 0, 0},
		{"ABC", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			row, col := CellIndex(tt.ref)
			if row != tt.wantRow || col != tt.wantCol {
				t.Errorf("CellIndex(%q) = (%d, %d), want (%d, %d)", tt.ref, row, col, tt.wantRow, tt.wantCol)
			}
		})
	}
}

// TestOptimize_AdjacentCellsMergeIntoOneBatch: A1, A2, B1, B2 are mutually
// within one step of each other in row-major order, so all four writes
// collapse into a single batch.
func TestOptimize_AdjacentCellsMergeIntoOneBatch(t *testing.T) {
	o := NewSheet()
	for _, ref := range []string{"A1", "A2", "B1", "B2"} {
		o.Add(SheetSetValue, ref, "v", nil)
	}

	batches := o.Optimize()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	if len(batches[0]) != 4 {
		t.Errorf("batch size = %d, want 4", len(batches[0]))
	}
}

// TestOptimize_DistantCellsSplit: A1 and Z1 are 25 columns apart, so the
// writes stay in separate batches.
func TestOptimize_DistantCellsSplit(t *testing.T) {
	o := NewSheet()
	o.Add(SheetSetValue, "A1", 1, nil)
	o.Add(SheetSetValue, "Z1", 2, nil)

	batches := o.Optimize()
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	for i, b := range batches {
		if len(b) != 1 {
			t.Errorf("batch %d size = %d, want 1", i, len(b))
		}
	}
}

func TestOptimize_RowMajorSortBeforeWalking(t *testing.T) {
	o := NewSheet()
	// Submitted out of order; row-major sorting makes them one run.
	for _, ref := range []string{"B2", "A1", "B1", "A2"} {
		o.Add(SheetSetValue, ref, "v", nil)
	}

	batches := o.Optimize()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	got := make([]string, 0, 4)
	for _, op := range batches[0] {
		got = append(got, op.Ref)
	}
	want := []string{"A1", "B1", "A2", "B2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("batch order = %v, want %v", got, want)
			break
		}
	}
}

func TestOptimize_MergesGroupBySheet(t *testing.T) {
	o := NewSheet()
	o.Add(SheetMergeCells, "Sheet1!A1:B2", nil, nil)
	o.Add(SheetMergeCells, "Sheet2!C1:D2", nil, nil)
	o.Add(SheetMergeCells, "Sheet1!E1:F2", nil, nil)
	o.Add(SheetMergeCells, "A5:B6", nil, nil) // bare ref defaults to Sheet1

	batches := o.Optimize()
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2 (one per sheet)", len(batches))
	}
	if len(batches[0]) != 3 {
		t.Errorf("Sheet1 batch size = %d, want 3", len(batches[0]))
	}
	if len(batches[1]) != 1 {
		t.Errorf("Sheet2 batch size = %d, want 1", len(batches[1]))
	}
}

func TestOptimize_MixedTypesKeepFirstSubmissionOrder(t *testing.T) {
	o := NewSheet()
	o.Add(SheetFormat, "A1", nil, map[string]any{"bold": true})
	o.Add(SheetSetValue, "A1", 1, nil)
	o.Add(SheetSetValue, "A2", 2, nil)
	o.Add(SheetMergeCells, "Sheet1!B1:C2", nil, nil)

	batches := o.Optimize()
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if batches[0][0].Type != SheetFormat {
		t.Errorf("first batch type = %s, want format", batches[0][0].Type)
	}
	if batches[1][0].Type != SheetSetValue {
		t.Errorf("second batch type = %s, want set_value", batches[1][0].Type)
	}
	if batches[2][0].Type != SheetMergeCells {
		t.Errorf("third batch type = %s, want merge_cells", batches[2][0].Type)
	}
}

func TestOptimize_Empty(t *testing.T) {
	o := NewSheet()
	if batches := o.Optimize(); batches != nil {
		t.Errorf("Optimize() on empty buffer = %v, want nil", batches)
	}
	stats := o.Stats()
	if stats.TotalOperations != 0 || stats.Batches != 0 {
		t.Errorf("Stats() on empty buffer = %+v", stats)
	}
}

func TestSheetStats(t *testing.T) {
	o := NewSheet()
	o.Add(SheetSetValue, "A1", 1, nil)
	o.Add(SheetSetValue, "A2", 2, nil)
	o.Add(SheetSetValue, "Z9", 3, nil)
	o.Add(SheetMergeCells, "Sheet1!B1:C2", nil, nil)

	stats := o.Stats()
	if stats.TotalOperations != 4 {
		t.Errorf("total = %d, want 4", stats.TotalOperations)
	}
	// Two adjacency batches for values plus one merge batch.
	if stats.Batches != 3 {
		t.Errorf("batches = %d, want 3", stats.Batches)
	}
	if want := 4.0 / 3.0; stats.AvgBatchSize != want {
		t.Errorf("avg batch size = %v, want %v", stats.AvgBatchSize, want)
	}
	if len(stats.OperationTypes) != 2 {
		t.Errorf("operation types = %v, want 2 entries", stats.OperationTypes)
	}
}

func TestClearResetsBuffer(t *testing.T) {
	o := NewSheet()
	o.Add(SheetSetValue, "A1", 1, nil)
	o.Clear()
	if o.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", o.Len())
	}
}
