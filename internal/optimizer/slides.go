package optimizer

import (
	"fmt"
	"sort"
	"strings"
)

// SlideOpType enumerates presentation edit kinds with distinct merge
// policies.
type SlideOpType string

const (
	SlideAddShape    SlideOpType = "add_shape"
	SlideModifyText  SlideOpType = "modify_text"
	SlideFormatShape SlideOpType = "format_shape"
	SlideMoveShape   SlideOpType = "move_shape"
)

// DefaultShapeChunk is the capacity window for shape-insertion batches.
const DefaultShapeChunk = 10

// SlideOp describes one requested presentation edit.
type SlideOp struct {
	Type       SlideOpType    `json:"type"`
	SlideIndex int            `json:"slide_index"`
	ShapeID    string         `json:"shape_id,omitempty"`
	Content    any            `json:"content,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

// Slides accumulates presentation edits and merges them into batches.
// Edits group by slide first; within a slide, shape insertions chunk into
// fixed-size windows, text updates group by target shape, and formats
// group by identical option sets.
type Slides struct {
	ops   []SlideOp
	chunk int
}

// NewSlides creates an empty presentation optimizer. A chunk size of zero
// or less selects DefaultShapeChunk.
func NewSlides(chunk int) *Slides {
	if chunk <= 0 {
		chunk = DefaultShapeChunk
	}
	return &Slides{chunk: chunk}
}

// Add appends one edit to the accumulation buffer.
func (o *Slides) Add(t SlideOpType, slideIndex int, shapeID string, content any, options map[string]any) {
	o.ops = append(o.ops, SlideOp{
		Type:       t,
		SlideIndex: slideIndex,
		ShapeID:    shapeID,
		Content:    content,
		Options:    options,
	})
}

// AddOp appends a pre-built descriptor.
func (o *Slides) AddOp(op SlideOp) {
	o.ops = append(o.ops, op)
}

// Len reports how many edits are buffered.
func (o *Slides) Len() int {
	return len(o.ops)
}

// Clear empties the accumulation buffer.
func (o *Slides) Clear() {
	o.ops = nil
}

// Optimize returns the buffered edits grouped into merge-compatible
// batches, slide by slide in first-submission order.
func (o *Slides) Optimize() [][]SlideOp {
	if len(o.ops) == 0 {
		return nil
	}

	var slideOrder []int
	bySlide := make(map[int][]SlideOp)
	for _, op := range o.ops {
		if _, seen := bySlide[op.SlideIndex]; !seen {
			slideOrder = append(slideOrder, op.SlideIndex)
		}
		bySlide[op.SlideIndex] = append(bySlide[op.SlideIndex], op)
	}

	var batches [][]SlideOp
	for _, idx := range slideOrder {
		batches = append(batches, o.optimizeSlide(bySlide[idx])...)
	}
	return batches
}

// optimizeSlide applies the per-type merge policies to one slide's edits.
func (o *Slides) optimizeSlide(ops []SlideOp) [][]SlideOp {
	if len(ops) <= 1 {
		if len(ops) == 0 {
			return nil
		}
		return [][]SlideOp{ops}
	}

	var typeOrder []SlideOpType
	byType := make(map[SlideOpType][]SlideOp)
	for _, op := range ops {
		if _, seen := byType[op.Type]; !seen {
			typeOrder = append(typeOrder, op.Type)
		}
		byType[op.Type] = append(byType[op.Type], op)
	}

	var batches [][]SlideOp

	if adds, ok := byType[SlideAddShape]; ok {
		batches = append(batches, chunkOps(adds, o.chunk)...)
	}
	if texts, ok := byType[SlideModifyText]; ok {
		batches = append(batches, groupByShape(texts)...)
	}
	if formats, ok := byType[SlideFormatShape]; ok {
		batches = append(batches, groupByOptionKey(formats)...)
	}
	for _, t := range typeOrder {
		switch t {
		case SlideAddShape, SlideModifyText, SlideFormatShape:
			continue
		}
		batches = append(batches, byType[t])
	}
	return batches
}

// chunkOps splits shape insertions into fixed-size windows, preserving
// submission order. No adjacency test applies.
func chunkOps(ops []SlideOp, size int) [][]SlideOp {
	var batches [][]SlideOp
	for start := 0; start < len(ops); start += size {
		end := start + size
		if end > len(ops) {
			end = len(ops)
		}
		batches = append(batches, ops[start:end])
	}
	return batches
}

// groupByShape groups text updates by their target shape, keeping
// relative order within each group.
func groupByShape(ops []SlideOp) [][]SlideOp {
	var order []string
	byShape := make(map[string][]SlideOp)
	for _, op := range ops {
		if _, seen := byShape[op.ShapeID]; !seen {
			order = append(order, op.ShapeID)
		}
		byShape[op.ShapeID] = append(byShape[op.ShapeID], op)
	}
	batches := make([][]SlideOp, 0, len(order))
	for _, id := range order {
		batches = append(batches, byShape[id])
	}
	return batches
}

// groupByOptionKey collapses format edits with identical option sets into
// one batch each.
func groupByOptionKey(ops []SlideOp) [][]SlideOp {
	var order []string
	byKey := make(map[string][]SlideOp)
	for _, op := range ops {
		key := OptionKey(op.Options)
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], op)
	}
	batches := make([][]SlideOp, 0, len(order))
	for _, key := range order {
		batches = append(batches, byKey[key])
	}
	return batches
}

// OptionKey derives a canonical grouping key from an option set: the
// options rendered in sorted key order. Nil and empty sets share the
// "default" key.
func OptionKey(options map[string]any) string {
	if len(options) == 0 {
		return "default"
	}
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s=%v", k, options[k])
	}
	return b.String()
}

// Stats reports merge effectiveness for the buffered edits, including how
// many distinct slides they touch.
func (o *Slides) Stats() Stats {
	if len(o.ops) == 0 {
		return Stats{}
	}
	batches := o.Optimize()

	slides := make(map[int]bool)
	seen := make(map[string]bool)
	var types []string
	for _, op := range o.ops {
		slides[op.SlideIndex] = true
		if !seen[string(op.Type)] {
			seen[string(op.Type)] = true
			types = append(types, string(op.Type))
		}
	}
	sort.Strings(types)

	return Stats{
		TotalOperations: len(o.ops),
		Batches:         len(batches),
		AvgBatchSize:    float64(len(o.ops)) / float64(len(batches)),
		OperationTypes:  types,
		Slides:          len(slides),
	}
}
