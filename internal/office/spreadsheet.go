package office

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/me/docbatch/internal/executor"
	"github.com/me/docbatch/internal/queue"
)

// Spreadsheet is an in-memory workbook. Cell values live in a flat map
// keyed by normalized reference ("Sheet1!A1"); formulas are computed on
// write and both the source and the computed value are retained.
//
// Spreadsheet implements queue.Handler for method dispatch and the
// executor's cell-write and range-merge contracts, including the bulk
// forms.
type Spreadsheet struct {
	mu       sync.Mutex
	cells    map[string]any
	formulas map[string]string
	merges   []string
	formats  map[string]map[string]any

	engine *FormulaEngine
	logger *slog.Logger
}

// NewSpreadsheet creates an empty workbook.
func NewSpreadsheet(logger *slog.Logger) *Spreadsheet {
	return &Spreadsheet{
		cells:    make(map[string]any),
		formulas: make(map[string]string),
		formats:  make(map[string]map[string]any),
		engine:   NewFormulaEngine(),
		logger:   logger.With("component", "spreadsheet"),
	}
}

// NormalizeRef qualifies a bare reference with the default sheet and
// uppercases the cell coordinates. "a1" becomes "Sheet1!A1".
func NormalizeRef(ref string) string {
	sheet := "Sheet1"
	body := ref
	if idx := strings.LastIndexByte(ref, '!'); idx >= 0 {
		sheet = ref[:idx]
		body = ref[idx+1:]
	}
	return sheet + "!" + strings.ToUpper(body)
}

// Invoke routes a queued operation to the workbook.
func (s *Spreadsheet) Invoke(ctx context.Context, method string, args map[string]any) (any, error) {
	switch method {
	case "set_value":
		ref, err := stringArg(args, "cell")
		if err != nil {
			return nil, err
		}
		return s.WriteCell(ctx, ref, args["value"])
	case "get_value":
		ref, err := stringArg(args, "cell")
		if err != nil {
			return nil, err
		}
		return s.Value(ref), nil
	case "set_formula":
		ref, err := stringArg(args, "cell")
		if err != nil {
			return nil, err
		}
		formula, err := stringArg(args, "formula")
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(formula, "=") {
			formula = "=" + formula
		}
		return s.WriteCell(ctx, ref, formula)
	case "merge_cells":
		ref, err := stringArg(args, "range")
		if err != nil {
			return nil, err
		}
		return s.MergeRange(ctx, ref)
	case "format_range":
		ref, err := stringArg(args, "range")
		if err != nil {
			return nil, err
		}
		options, err := mapArg(args, "options")
		if err != nil {
			return nil, err
		}
		return s.FormatRange(ctx, ref, options)
	default:
		return nil, fmt.Errorf("%w: %q", queue.ErrUnknownMethod, method)
	}
}

// WriteCell stores one cell value. Formula strings are evaluated
// immediately against the current cell contents.
func (s *Spreadsheet) WriteCell(ctx context.Context, ref string, value any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ref, value)
}

// WriteCells stores many cells in one call. Any formula failure fails
// the whole call; earlier writes in the slice are kept.
func (s *Spreadsheet) WriteCells(ctx context.Context, writes []executor.CellWrite) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range writes {
		if _, err := s.writeLocked(w.Ref, w.Value); err != nil {
			return nil, fmt.Errorf("write %s: %w", w.Ref, err)
		}
	}
	s.logger.Debug("bulk cell write", "cells", len(writes))
	return len(writes), nil
}

func (s *Spreadsheet) writeLocked(ref string, value any) (any, error) {
	key := NormalizeRef(ref)
	if !IsFormula(value) {
		s.cells[key] = value
		delete(s.formulas, key)
		return value, nil
	}

	formula := value.(string)
	computed, err := s.engine.Evaluate(formula, func(r string) any {
		return s.cells[NormalizeRef(r)]
	})
	if err != nil {
		return nil, err
	}
	s.cells[key] = computed
	s.formulas[key] = formula
	return computed, nil
}

// MergeRange records one merged range.
func (s *Spreadsheet) MergeRange(ctx context.Context, ref string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := NormalizeRef(ref)
	s.merges = append(s.merges, key)
	return key, nil
}

// MergeRanges records many merged ranges in one call.
func (s *Spreadsheet) MergeRanges(ctx context.Context, refs []string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range refs {
		s.merges = append(s.merges, NormalizeRef(ref))
	}
	s.logger.Debug("bulk merge", "ranges", len(refs))
	return len(refs), nil
}

// FormatRange layers formatting options onto a range. Later options for
// the same key win.
func (s *Spreadsheet) FormatRange(ctx context.Context, ref string, options map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := NormalizeRef(ref)
	existing := s.formats[key]
	if existing == nil {
		existing = make(map[string]any, len(options))
		s.formats[key] = existing
	}
	for k, v := range options {
		existing[k] = v
	}
	return key, nil
}

// Value returns the stored value of one cell, or nil when empty.
func (s *Spreadsheet) Value(ref string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cells[NormalizeRef(ref)]
}

// Formula returns the formula source behind a cell, if any.
func (s *Spreadsheet) Formula(ref string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.formulas[NormalizeRef(ref)]
	return f, ok
}

// Merges returns the recorded merged ranges in application order.
func (s *Spreadsheet) Merges() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.merges))
	copy(out, s.merges)
	return out
}

// Format returns the accumulated formatting options for a range.
func (s *Spreadsheet) Format(ref string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.formats[NormalizeRef(ref)]
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// CellCount returns the number of populated cells.
func (s *Spreadsheet) CellCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cells)
}
