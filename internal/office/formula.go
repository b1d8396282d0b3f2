// Package office provides in-memory document façades that operation
// handlers dispatch into: a spreadsheet, a presentation and a text
// document. Each façade exposes a method-dispatch entry point for the
// queue and the per-kind capability methods the batch executor probes
// for.
package office

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/me/docbatch/internal/optimizer"
)

// FormulaEngine evaluates spreadsheet formulas using a JavaScript
// runtime. Cell references in the formula are rewritten to lookup
// calls before evaluation, so "=A1+B2*2" becomes
// "cell("A1")+cell("B2")*2".
type FormulaEngine struct {
	prelude string
}

// formulaPrelude defines the aggregate functions available inside
// formulas. Each takes the array produced by a range reference.
const formulaPrelude = `
function SUM(values) {
	var total = 0;
	for (var i = 0; i < values.length; i++) {
		var v = Number(values[i]);
		if (!isNaN(v)) { total += v; }
	}
	return total;
}
function AVERAGE(values) {
	if (values.length === 0) { return 0; }
	return SUM(values) / values.length;
}
function COUNT(values) {
	var n = 0;
	for (var i = 0; i < values.length; i++) {
		if (values[i] !== null && values[i] !== undefined && values[i] !== "") { n++; }
	}
	return n;
}
function MIN(values) {
	var m = null;
	for (var i = 0; i < values.length; i++) {
		var v = Number(values[i]);
		if (!isNaN(v) && (m === null || v < m)) { m = v; }
	}
	return m;
}
function MAX(values) {
	var m = null;
	for (var i = 0; i < values.length; i++) {
		var v = Number(values[i]);
		if (!isNaN(v) && (m === null || v > m)) { m = v; }
	}
	return m;
}
function IF(cond, then, otherwise) {
	return cond ? then : otherwise;
}
`

// NewFormulaEngine creates a formula evaluator.
func NewFormulaEngine() *FormulaEngine {
	return &FormulaEngine{prelude: formulaPrelude}
}

// IsFormula reports whether a cell value is a formula.
func IsFormula(value any) bool {
	s, ok := value.(string)
	return ok && strings.HasPrefix(s, "=")
}

// Evaluate computes a formula against a cell lookup. The lookup
// receives a normalized single-cell reference and returns the stored
// value, or nil when the cell is empty.
func (e *FormulaEngine) Evaluate(formula string, lookup func(ref string) any) (any, error) {
	body := strings.TrimPrefix(formula, "=")
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("empty formula")
	}

	vm := goja.New()
	if _, err := vm.RunString(e.prelude); err != nil {
		return nil, fmt.Errorf("formula prelude: %w", err)
	}
	if err := vm.Set("cell", func(ref string) any {
		return lookup(ref)
	}); err != nil {
		return nil, fmt.Errorf("set cell: %w", err)
	}
	if err := vm.Set("cells", func(ref string) []any {
		return expandRange(ref, lookup)
	}); err != nil {
		return nil, fmt.Errorf("set cells: %w", err)
	}

	rewritten := rewriteRefs(body)
	val, err := vm.RunString(rewritten)
	if err != nil {
		return nil, fmt.Errorf("formula error in %q: %w", formula, err)
	}
	if val == goja.Undefined() {
		return nil, fmt.Errorf("formula %q returned undefined", formula)
	}
	return val.Export(), nil
}

// rewriteRefs replaces cell and range references with lookup calls.
// A reference is a run of letters followed by digits (A1, AZ10),
// optionally preceded by a sheet qualifier (Data!A1) and optionally
// extended to a range (A1:B2). Tokens inside string literals and plain
// identifiers such as function names pass through untouched.
func rewriteRefs(expr string) string {
	var out strings.Builder
	i := 0
	for i < len(expr) {
		c := expr[i]

		// Skip string literals verbatim.
		if c == '"' || c == '\'' {
			quote := c
			out.WriteByte(c)
			i++
			for i < len(expr) && expr[i] != quote {
				out.WriteByte(expr[i])
				i++
			}
			if i < len(expr) {
				out.WriteByte(expr[i])
				i++
			}
			continue
		}

		if isRefLetter(c) {
			start := i
			end, isRange, ok := scanRef(expr, i)
			if ok {
				ref := expr[start:end]
				if isRange {
					out.WriteString(`cells("` + ref + `")`)
				} else {
					out.WriteString(`cell("` + ref + `")`)
				}
				i = end
				continue
			}
			// Not a reference; copy the identifier through.
			for i < len(expr) && isIdentChar(expr[i]) {
				out.WriteByte(expr[i])
				i++
			}
			continue
		}

		out.WriteByte(c)
		i++
	}
	return out.String()
}

// scanRef tries to read a cell or range reference starting at i.
// Returns the end index, whether the reference is a range, and whether
// a reference was found at all.
func scanRef(expr string, i int) (end int, isRange, ok bool) {
	// Leading identifier run: either the cell itself or a sheet name.
	j := i
	for j < len(expr) && isIdentChar(expr[j]) {
		j++
	}

	if j < len(expr) && expr[j] == '!' {
		// Sheet-qualified: any identifier works as the sheet name, the
		// part after '!' must be a cell.
		k, cellFound := scanCell(expr, j+1)
		if !cellFound {
			return 0, false, false
		}
		j = k
	} else {
		// Bare reference: the whole run must parse as one cell.
		k, cellFound := scanCell(expr, i)
		if !cellFound || k != j {
			return 0, false, false
		}
	}

	// Optional range extension.
	if j < len(expr) && expr[j] == ':' {
		k, cellFound := scanCell(expr, j+1)
		if cellFound {
			return k, true, true
		}
	}

	// A reference must not continue into a longer identifier.
	if j < len(expr) && isIdentChar(expr[j]) {
		return 0, false, false
	}
	return j, false, true
}

// scanCell reads letters-then-digits starting at i, the shape of one
// cell coordinate or a sheet name segment.
func scanCell(expr string, i int) (end int, ok bool) {
	j := i
	for j < len(expr) && isRefLetter(expr[j]) {
		j++
	}
	if j == i {
		return 0, false
	}
	digits := j
	for j < len(expr) && expr[j] >= '0' && expr[j] <= '9' {
		j++
	}
	if j == digits {
		return 0, false
	}
	return j, true
}

func isRefLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentChar(c byte) bool {
	return isRefLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// expandRange walks a rectangular range reference row by row and
// collects the stored value of every cell in it.
func expandRange(ref string, lookup func(ref string) any) []any {
	sheet := ""
	body := ref
	if idx := strings.LastIndexByte(ref, '!'); idx >= 0 {
		sheet = ref[:idx+1]
		body = ref[idx+1:]
	}
	parts := strings.SplitN(body, ":", 2)
	if len(parts) != 2 {
		return []any{lookup(ref)}
	}

	r1, c1 := optimizer.CellIndex(parts[0])
	r2, c2 := optimizer.CellIndex(parts[1])
	if r1 == 0 || r2 == 0 {
		return nil
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}

	values := make([]any, 0, (r2-r1+1)*(c2-c1+1))
	for row := r1; row <= r2; row++ {
		for col := c1; col <= c2; col++ {
			values = append(values, lookup(fmt.Sprintf("%s%s%d", sheet, columnName(col), row)))
		}
	}
	return values
}

// columnName converts a 1-based column index back to its letter form.
func columnName(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}
