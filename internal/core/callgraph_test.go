package core

import "testing"

func callsOf(t *testing.T, src, function string) []CallEdge {
	t.Helper()
	return resultByName(t, analyzeSource(t, "cpp", src), function).Node.Calls
}

func edgeTo(t *testing.T, edges []CallEdge, callee string) *CallEdge {
	t.Helper()
	for i := range edges {
		if edges[i].Callee == callee {
			return &edges[i]
		}
	}
	t.Fatalf("no edge to %s in %d edges", callee, len(edges))
	return nil
}

func TestCollectDirectCall(t *testing.T) {
	calls := callsOf(t, `
void helper(int n);
void driver(int n) {
    helper(n + 1);
}
`, "driver")

	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	e := calls[0]
	if e.Caller != "driver" || e.Callee != "helper" {
		t.Errorf("edge = %s -> %s", e.Caller, e.Callee)
	}
	if e.IsVirtual {
		t.Errorf("direct call must not be marked virtual")
	}
	if len(e.Arguments) != 1 || e.Arguments[0] != "n + 1" {
		t.Errorf("arguments = %v", e.Arguments)
	}
}

func TestCollectMemberCallMarkedVirtual(t *testing.T) {
	calls := callsOf(t, `
struct Task { void run(); };
void drive(Task* t) {
    t->run();
}
`, "drive")

	e := edgeTo(t, calls, "run")
	if !e.IsVirtual {
		t.Errorf("member call through pointer must be marked virtual")
	}
}

func TestCollectQualifiedCall(t *testing.T) {
	calls := callsOf(t, `
namespace util { void log(int level); }
void emit() {
    util::log(2);
}
`, "emit")

	e := edgeTo(t, calls, "util::log")
	if e.IsVirtual {
		t.Errorf("qualified call is direct, not virtual")
	}
}

func TestCollectNewExpression(t *testing.T) {
	// 带实参的构造调用产生边，默认构造不产生
	calls := callsOf(t, `
struct Buffer { Buffer(int size); };
struct Empty { Empty(); };
void build() {
    Buffer* b = new Buffer(64);
    Empty* e = new Empty();
}
`, "build")

	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1 (default construction drops the edge)", len(calls))
	}
	e := calls[0]
	if e.Callee != "Buffer" {
		t.Errorf("callee = %q, want Buffer", e.Callee)
	}
	if len(e.Arguments) != 1 || e.Arguments[0] != "64" {
		t.Errorf("arguments = %v, want [64]", e.Arguments)
	}
}

func TestCollectCastIsNotACall(t *testing.T) {
	calls := callsOf(t, `
long repack(void* p) {
    return reinterpret_cast<long>(p);
}
`, "repack")

	if len(calls) != 0 {
		t.Errorf("named casts must not appear in the call graph, got %d edges", len(calls))
	}
}
