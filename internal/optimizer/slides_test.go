package optimizer

import (
	"fmt"
	"testing"
)

// TestOptimize_ShapeChunking: 23 shape insertions on one slide with chunk
// size 10 produce batches of 10, 10, 3 in submission order.
func TestOptimize_ShapeChunking(t *testing.T) {
	o := NewSlides(10)
	for i := 0; i < 23; i++ {
		o.Add(SlideAddShape, 0, "", fmt.Sprintf("shape %d", i), nil)
	}

	batches := o.Optimize()
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	for i, wantSize := range []int{10, 10, 3} {
		if len(batches[i]) != wantSize {
			t.Errorf("batch %d size = %d, want %d", i, len(batches[i]), wantSize)
		}
	}
	// Submission order is preserved across chunk boundaries.
	if batches[0][0].Content != "shape 0" {
		t.Errorf("first chunk starts with %v, want shape 0", batches[0][0].Content)
	}
	if batches[2][0].Content != "shape 20" {
		t.Errorf("last chunk starts with %v, want shape 20", batches[2][0].Content)
	}
}

func TestNewSlides_DefaultChunk(t *testing.T) {
	o := NewSlides(0)
	for i := 0; i < DefaultShapeChunk+1; i++ {
		o.Add(SlideAddShape, 0, "", i, nil)
	}
	if batches := o.Optimize(); len(batches) != 2 {
		t.Errorf("got %d batches, want 2 with default chunk", len(batches))
	}
}

func TestOptimize_TextUpdatesGroupByShape(t *testing.T) {
	o := NewSlides(0)
	o.Add(SlideModifyText, 0, "shape_a", "first", nil)
	o.Add(SlideModifyText, 0, "shape_b", "other", nil)
	o.Add(SlideModifyText, 0, "shape_a", "second", nil)

	batches := o.Optimize()
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if len(batches[0]) != 2 || batches[0][0].ShapeID != "shape_a" {
		t.Errorf("first batch = %v, want both shape_a updates", batches[0])
	}
	// Relative order within the shape_a group is preserved.
	if batches[0][0].Content != "first" || batches[0][1].Content != "second" {
		t.Errorf("shape_a updates out of order: %v, %v", batches[0][0].Content, batches[0][1].Content)
	}
}

func TestOptimize_FormatsGroupByOptionSet(t *testing.T) {
	o := NewSlides(0)
	bold := map[string]any{"bold": true, "size": 14}
	boldReordered := map[string]any{"size": 14, "bold": true}
	italic := map[string]any{"italic": true}

	o.Add(SlideFormatShape, 0, "s1", nil, bold)
	o.Add(SlideFormatShape, 0, "s2", nil, italic)
	o.Add(SlideFormatShape, 0, "s3", nil, boldReordered)
	o.Add(SlideFormatShape, 0, "s4", nil, nil)

	batches := o.Optimize()
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3 (bold, italic, default)", len(batches))
	}
	if len(batches[0]) != 2 {
		t.Errorf("bold batch size = %d, want 2 (key order must not matter)", len(batches[0]))
	}
}

func TestOptionKey(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		want    string
	}{
		{"nil", nil, "default"},
		{"empty", map[string]any{}, "default"},
		{"single", map[string]any{"bold": true}, "bold=true"},
		{"sorted keys", map[string]any{"size": 14, "bold": true}, "bold=true;size=14"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OptionKey(tt.options); got != tt.want {
				t.Errorf("OptionKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOptimize_GroupsBySlideFirst(t *testing.T) {
	o := NewSlides(0)
	o.Add(SlideAddShape, 0, "", "a", nil)
	o.Add(SlideAddShape, 1, "", "b", nil)
	o.Add(SlideAddShape, 0, "", "c", nil)

	batches := o.Optimize()
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2 (one per slide)", len(batches))
	}
	if batches[0][0].SlideIndex != 0 || len(batches[0]) != 2 {
		t.Errorf("first batch should hold both slide-0 inserts, got %v", batches[0])
	}
	if batches[1][0].SlideIndex != 1 {
		t.Errorf("second batch slide = %d, want 1", batches[1][0].SlideIndex)
	}
}

func TestOptimize_MoveShapesStayOneBatchPerType(t *testing.T) {
	o := NewSlides(0)
	o.Add(SlideMoveShape, 0, "s1", nil, map[string]any{"position": map[string]any{"x": 1}})
	o.Add(SlideMoveShape, 0, "s2", nil, map[string]any{"position": map[string]any{"x": 2}})

	batches := o.Optimize()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	if len(batches[0]) != 2 {
		t.Errorf("move batch size = %d, want 2", len(batches[0]))
	}
}

func TestSlidesStats(t *testing.T) {
	o := NewSlides(10)
	for i := 0; i < 12; i++ {
		o.Add(SlideAddShape, 0, "", i, nil)
	}
	o.Add(SlideModifyText, 1, "s1", "hello", nil)

	stats := o.Stats()
	if stats.TotalOperations != 13 {
		t.Errorf("total = %d, want 13", stats.TotalOperations)
	}
	// Two chunks on slide 0, one text group on slide 1.
	if stats.Batches != 3 {
		t.Errorf("batches = %d, want 3", stats.Batches)
	}
	if stats.Slides != 2 {
		t.Errorf("slides = %d, want 2", stats.Slides)
	}
}
