package core

import (
	"context"
	"math"
	"testing"
)

// analyzeSource 解析内存源码并执行单元分析
func analyzeSource(t *testing.T, language, src string) []FunctionResult {
	t.Helper()

	name := "test.cpp"
	if language == "c" {
		name = "test.c"
	}
	unit, err := ParseSource(context.Background(), name, language, []byte(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return AnalyzeUnit(NewAnalysisContext(unit))
}

func TestAnalyzeGuardedDeref(t *testing.T) {
	results := analyzeSource(t, "cpp", `
void f(int* p) {
    if (p) {
        *p = 1;
    }
}
`)

	f := resultByName(t, results, "f")
	if len(f.Node.Hazards) != 1 {
		t.Fatalf("hazards = %d, want 1", len(f.Node.Hazards))
	}
	if len(f.Preconditions) != 0 {
		t.Errorf("guarded deref must not produce a precondition, got %d", len(f.Preconditions))
	}
	if len(f.Guards) != 1 {
		t.Fatalf("guards = %d, want 1", len(f.Guards))
	}
	if f.Guards[0].Condition != "p" {
		t.Errorf("guard condition = %q, want p", f.Guards[0].Condition)
	}
}

func TestAnalyzeUnguardedDeref(t *testing.T) {
	results := analyzeSource(t, "cpp", `
void g(int* p) {
    *p = 1;
}
`)

	g := resultByName(t, results, "g")
	if len(g.Preconditions) != 1 {
		t.Fatalf("preconditions = %d, want 1", len(g.Preconditions))
	}
	q := g.Preconditions[0]
	if q.ID != "g.precond.ptr_valid" {
		t.Errorf("id = %q", q.ID)
	}
	if q.Content != "Pointer p must not be null" {
		t.Errorf("content = %q", q.Content)
	}
	if q.Expr != "p != nullptr" {
		t.Errorf("formal spec = %q", q.Expr)
	}
	if q.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", q.Confidence)
	}
	if q.Provenance != ProvenancePatternUnguarded {
		t.Errorf("provenance = %s", q.Provenance)
	}
}

func TestAnalyzeUnguardedDivision(t *testing.T) {
	results := analyzeSource(t, "cpp", `
int h(int a, int b) {
    return a / b;
}
`)

	h := resultByName(t, results, "h")
	if len(h.Preconditions) != 1 {
		t.Fatalf("preconditions = %d, want 1", len(h.Preconditions))
	}
	q := h.Preconditions[0]
	if q.ID != "h.precond.divisor_nonzero" {
		t.Errorf("id = %q", q.ID)
	}
	if q.Operand != "b" {
		t.Errorf("operand = %q, want b", q.Operand)
	}
	if q.Expr != "b != 0" {
		t.Errorf("formal spec = %q", q.Expr)
	}
	if q.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", q.Confidence)
	}
}

func TestAnalyzeGuardedDivision(t *testing.T) {
	results := analyzeSource(t, "cpp", `
int d(int a, int b) {
    if (b != 0) {
        return a / b;
    }
    return 0;
}
`)

	d := resultByName(t, results, "d")
	if len(d.Preconditions) != 0 {
		t.Errorf("guarded division must not produce a precondition, got %d", len(d.Preconditions))
	}
	if len(d.Guards) != 1 {
		t.Fatalf("guards = %d, want 1", len(d.Guards))
	}
	if d.Guards[0].Condition != "b != 0" {
		t.Errorf("guard condition = %q", d.Guards[0].Condition)
	}
}

func TestAnalyzeGuardedArrayAccess(t *testing.T) {
	results := analyzeSource(t, "cpp", `
int pick(int* a, int i, int n) {
    if (i < n) {
        return a[i];
    }
    return 0;
}
`)

	pick := resultByName(t, results, "pick")
	if len(pick.Preconditions) != 0 {
		t.Errorf("bounds-checked access must not produce a precondition, got %d", len(pick.Preconditions))
	}
	if len(pick.Guards) != 1 {
		t.Errorf("guards = %d, want 1", len(pick.Guards))
	}
}

// TestAnalyzeLoopBodyGuard 循环条件守卫循环体内的危险点：
// 危险点必须归属循环体语句块而不是持有整个循环节点的循环头，
// 否则前驱回溯越过条件块导致漏判
func TestAnalyzeLoopBodyGuard(t *testing.T) {
	results := analyzeSource(t, "cpp", `
void drain(int* p) {
    while (p) {
        *p = 0;
    }
}
`)

	drain := resultByName(t, results, "drain")
	if len(drain.Preconditions) != 0 {
		t.Errorf("loop condition guards the body, got %d preconditions", len(drain.Preconditions))
	}
	if len(drain.Guards) != 1 {
		t.Errorf("guards = %d, want 1", len(drain.Guards))
	}
}

func TestAnalyzeCastNeverGuarded(t *testing.T) {
	// 守卫对转换类危险点无效，条件包裹下仍产生前置条件
	results := analyzeSource(t, "cpp", `
void convert(void* p) {
    if (p) {
        int* q = reinterpret_cast<int*>(p);
    }
}
`)

	convert := resultByName(t, results, "convert")
	if len(convert.Preconditions) != 1 {
		t.Fatalf("preconditions = %d, want 1", len(convert.Preconditions))
	}
	q := convert.Preconditions[0]
	if q.ID != "convert.precond.cast_safe" {
		t.Errorf("id = %q", q.ID)
	}
	if q.Expr != "is_compatible(source_type, target_type)" {
		t.Errorf("formal spec = %q", q.Expr)
	}
	if q.Confidence != 0.90 {
		t.Errorf("confidence = %v, want 0.90", q.Confidence)
	}
}

func TestAnalyzeCSource(t *testing.T) {
	results := analyzeSource(t, "c", `
void f(int* p) {
    if (p != 0) {
        *p = 1;
    }
}
void g(int* p) {
    *p = 1;
}
`)

	f := resultByName(t, results, "f")
	if len(f.Preconditions) != 0 || len(f.Guards) != 1 {
		t.Errorf("f: preconditions = %d, guards = %d, want 0/1", len(f.Preconditions), len(f.Guards))
	}

	g := resultByName(t, results, "g")
	if len(g.Preconditions) != 1 {
		t.Errorf("g: preconditions = %d, want 1", len(g.Preconditions))
	}
}

func TestAnalyzeThenPropagate(t *testing.T) {
	results := analyzeSource(t, "cpp", `
void g(int* p) {
    *p = 1;
}
void caller(int* p) {
    g(p);
}
void safeCaller(int* p) {
    if (p) {
        g(p);
    }
}
`)

	stats := Propagate(results, DefaultReviewFloor)

	caller := resultByName(t, results, "caller")
	if len(caller.Preconditions) != 1 {
		t.Fatalf("caller preconditions = %d, want 1", len(caller.Preconditions))
	}
	q := caller.Preconditions[0]
	if q.ID != "caller.propagated.ptr_valid" {
		t.Errorf("id = %q", q.ID)
	}
	if q.Content != "Inherited from g: Pointer p must not be null" {
		t.Errorf("content = %q", q.Content)
	}
	if math.Abs(q.Confidence-0.9025) > 1e-9 {
		t.Errorf("confidence = %v, want 0.9025", q.Confidence)
	}
	if q.Hops != 1 || q.From != "g" {
		t.Errorf("hops = %d from = %q, want 1/g", q.Hops, q.From)
	}

	safe := resultByName(t, results, "safeCaller")
	if len(safe.Preconditions) != 0 {
		t.Errorf("guarded call site must not inherit, got %d", len(safe.Preconditions))
	}
	if stats.Satisfied != 1 {
		t.Errorf("satisfied = %d, want 1", stats.Satisfied)
	}
}

func TestAnalyzeFunctionWithoutHazards(t *testing.T) {
	results := analyzeSource(t, "cpp", `
int add(int a, int b) {
    return a + b;
}
`)

	add := resultByName(t, results, "add")
	if len(add.Node.Hazards) != 0 || len(add.Preconditions) != 0 {
		t.Errorf("pure arithmetic must not produce hazards or preconditions")
	}
	if len(add.Node.Params) != 2 || add.Node.Params[0] != "a" || add.Node.Params[1] != "b" {
		t.Errorf("params = %v, want [a b]", add.Node.Params)
	}
}
