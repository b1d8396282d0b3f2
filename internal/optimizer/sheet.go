package optimizer

import (
	"sort"
	"strings"
)

// SheetOpType enumerates spreadsheet edit kinds with distinct merge
// policies.
type SheetOpType string

const (
	SheetSetValue   SheetOpType = "set_value"
	SheetMergeCells SheetOpType = "merge_cells"
	SheetFormat     SheetOpType = "format"
	SheetFormula    SheetOpType = "formula"
)

// SheetOp describes one requested spreadsheet edit. Ref is a cell or range
// address, optionally qualified with a sheet name ("Sheet2!B3").
type SheetOp struct {
	Type    SheetOpType    `json:"type"`
	Ref     string         `json:"ref"`
	Value   any            `json:"value,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Sheet accumulates spreadsheet edits and merges them into batches.
// Value writes merge by spatial adjacency, cell merges group per sheet,
// everything else stays one batch per type.
type Sheet struct {
	ops []SheetOp
}

// NewSheet creates an empty spreadsheet optimizer.
func NewSheet() *Sheet {
	return &Sheet{}
}

// Add appends one edit to the accumulation buffer.
func (o *Sheet) Add(t SheetOpType, ref string, value any, options map[string]any) {
	o.ops = append(o.ops, SheetOp{Type: t, Ref: ref, Value: value, Options: options})
}

// AddOp appends a pre-built descriptor.
func (o *Sheet) AddOp(op SheetOp) {
	o.ops = append(o.ops, op)
}

// Len reports how many edits are buffered.
func (o *Sheet) Len() int {
	return len(o.ops)
}

// Clear empties the accumulation buffer.
func (o *Sheet) Clear() {
	o.ops = nil
}

// Optimize returns the buffered edits grouped into merge-compatible
// batches. Each batch holds operations of a single type. Types appear in
// first-submission order.
func (o *Sheet) Optimize() [][]SheetOp {
	if len(o.ops) == 0 {
		return nil
	}

	typeOrder, byType := groupSheetOpsByType(o.ops)

	var batches [][]SheetOp
	for _, t := range typeOrder {
		ops := byType[t]
		switch t {
		case SheetMergeCells:
			batches = append(batches, groupBySheet(ops)...)
		case SheetSetValue:
			batches = append(batches, groupAdjacent(ops)...)
		default:
			batches = append(batches, ops)
		}
	}
	return batches
}

// Stats reports merge effectiveness for the buffered edits.
func (o *Sheet) Stats() Stats {
	if len(o.ops) == 0 {
		return Stats{}
	}
	batches := o.Optimize()
	return Stats{
		TotalOperations: len(o.ops),
		Batches:         len(batches),
		AvgBatchSize:    float64(len(o.ops)) / float64(len(batches)),
		OperationTypes:  sheetOpTypes(o.ops),
	}
}

func groupSheetOpsByType(ops []SheetOp) ([]SheetOpType, map[SheetOpType][]SheetOp) {
	var order []SheetOpType
	byType := make(map[SheetOpType][]SheetOp)
	for _, op := range ops {
		if _, seen := byType[op.Type]; !seen {
			order = append(order, op.Type)
		}
		byType[op.Type] = append(byType[op.Type], op)
	}
	return order, byType
}

// groupBySheet puts all merges on the same sheet into one batch. Merge
// order within a sheet does not matter; the operation commutes.
func groupBySheet(ops []SheetOp) [][]SheetOp {
	var order []string
	bySheet := make(map[string][]SheetOp)
	for _, op := range ops {
		sheet := sheetOf(op.Ref)
		if _, seen := bySheet[sheet]; !seen {
			order = append(order, sheet)
		}
		bySheet[sheet] = append(bySheet[sheet], op)
	}
	batches := make([][]SheetOp, 0, len(order))
	for _, sheet := range order {
		batches = append(batches, bySheet[sheet])
	}
	return batches
}

// groupAdjacent sorts value writes into row-major order and starts a new
// batch whenever the next cell is more than one step away on either axis.
func groupAdjacent(ops []SheetOp) [][]SheetOp {
	sorted := make([]SheetOp, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, ci := CellIndex(sorted[i].Ref)
		rj, cj := CellIndex(sorted[j].Ref)
		if ri != rj {
			return ri < rj
		}
		return ci < cj
	})

	var batches [][]SheetOp
	var current []SheetOp
	for _, op := range sorted {
		if len(current) > 0 && !adjacent(current[len(current)-1].Ref, op.Ref) {
			batches = append(batches, current)
			current = nil
		}
		current = append(current, op)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// adjacent reports whether two cells are within one step of each other on
// both axes.
func adjacent(ref1, ref2 string) bool {
	r1, c1 := CellIndex(ref1)
	r2, c2 := CellIndex(ref2)
	return abs(r1-r2) <= 1 && abs(c1-c2) <= 1
}

// sheetOf extracts the sheet name from a qualified reference, defaulting
// to "Sheet1" for bare cell addresses.
func sheetOf(ref string) string {
	if i := strings.IndexByte(ref, '!'); i >= 0 {
		return ref[:i]
	}
	return "Sheet1"
}

// CellIndex decodes a cell address like "B12" or "Sheet1!AA3" into
// one-based (row, column) coordinates. Column letters use base-26
// positional notation (A=1 ... Z=26, AA=27). Unparsable addresses decode
// to (0, 0).
func CellIndex(ref string) (row, col int) {
	if i := strings.IndexByte(ref, '!'); i >= 0 {
		ref = ref[i+1:]
	}

	i := 0
	for i < len(ref) && isColLetter(ref[i]) {
		c := ref[i]
		if c >= 'a' {
			c -= 'a' - 'A'
		}
		col = col*26 + int(c-'A'+1)
		i++
	}
	if i == 0 {
		return 0, 0
	}
	for j := i; j < len(ref); j++ {
		if ref[j] < '0' || ref[j] > '9' {
			break
		}
		row = row*10 + int(ref[j]-'0')
	}
	if row == 0 {
		return 0, 0
	}
	return row, col
}

func isColLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func sheetOpTypes(ops []SheetOp) []string {
	seen := make(map[string]bool)
	var types []string
	for _, op := range ops {
		if !seen[string(op.Type)] {
			seen[string(op.Type)] = true
			types = append(types, string(op.Type))
		}
	}
	sort.Strings(types)
	return types
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
