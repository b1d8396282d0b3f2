package office

import (
	"testing"
)

func TestRewriteRefs(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A1+B2", `cell("A1")+cell("B2")`},
		{"A1*2", `cell("A1")*2`},
		{"SUM(A1:A3)", `SUM(cells("A1:A3"))`},
		{"Data!B2+1", `cell("Data!B2")+1`},
		{"SUM(Data!A1:A3)", `SUM(cells("Data!A1:A3"))`},
		{`"A1"+B1`, `"A1"+cell("B1")`},
		{"foo_bar+A1", `foo_bar+cell("A1")`},
		{"1+2", "1+2"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := rewriteRefs(tt.in); got != tt.want {
				t.Errorf("rewriteRefs(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormulaEngine_Evaluate(t *testing.T) {
	cells := map[string]any{
		"A1": 1.0,
		"A2": 2.0,
		"A3": 3.0,
		"B1": "hello",
	}
	lookup := func(ref string) any { return cells[ref] }
	engine := NewFormulaEngine()

	tests := []struct {
		name    string
		formula string
		want    any
	}{
		{"arithmetic", "=A1+A2*2", int64(5)},
		{"sum range", "=SUM(A1:A3)", int64(6)},
		{"average", "=AVERAGE(A1:A3)", int64(2)},
		{"count skips empty", "=COUNT(A1:A4)", int64(3)},
		{"min max", "=MAX(A1:A3)-MIN(A1:A3)", int64(2)},
		{"conditional", `=IF(A1 > 0, "yes", "no")`, "yes"},
		{"string concat", `=B1+" world"`, "hello world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(tt.formula, lookup)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tt.formula, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v (%T), want %v (%T)", tt.formula, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestFormulaEngine_Errors(t *testing.T) {
	engine := NewFormulaEngine()
	lookup := func(string) any { return nil }

	if _, err := engine.Evaluate("=", lookup); err == nil {
		t.Error("empty formula should fail")
	}
	if _, err := engine.Evaluate("=SUM(", lookup); err == nil {
		t.Error("malformed formula should fail")
	}
}

func TestExpandRange(t *testing.T) {
	var seen []string
	lookup := func(ref string) any {
		seen = append(seen, ref)
		return nil
	}
	expandRange("A1:B2", lookup)
	want := []string{"A1", "B1", "A2", "B2"}
	if len(seen) != len(want) {
		t.Fatalf("visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("visited %v, want %v", seen, want)
			break
		}
	}
}

func TestExpandRange_SheetQualifier(t *testing.T) {
	var seen []string
	lookup := func(ref string) any {
		seen = append(seen, ref)
		return nil
	}
	expandRange("Data!A1:A2", lookup)
	if len(seen) != 2 || seen[0] != "Data!A1" || seen[1] != "Data!A2" {
		t.Errorf("visited %v, want [Data!A1 Data!A2]", seen)
	}
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{1, "A"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{53, "BA"},
	}
	for _, tt := range tests {
		if got := columnName(tt.col); got != tt.want {
			t.Errorf("columnName(%d) = %q, want %q", tt.col, got, tt.want)
		}
	}
}
