package core

import "testing"

// linearBlocks 构造线性前驱链 0 <- 1 <- ... <- n-1
func linearBlocks(n int) []CondBlock {
	blocks := make([]CondBlock, n)
	for i := 0; i < n; i++ {
		blocks[i] = CondBlock{ID: i}
		if i > 0 {
			blocks[i].Preds = []int{i - 1}
		}
	}
	return blocks
}

func TestFindGuardInPredecessorChain(t *testing.T) {
	hazard := HazardSite{ID: 7, Kind: HazardPointerDeref, Operand: "p"}

	blocks := linearBlocks(4)
	blocks[1].Terminator = comparison("!=", "p", "nullptr")

	g := FindGuard(hazard, 3, blocks)
	if g == nil {
		t.Fatalf("expected guard in predecessor chain")
	}
	if g.BlockID != 1 {
		t.Errorf("guard found in block %d, want 1", g.BlockID)
	}
	if g.HazardID != 7 {
		t.Errorf("guard hazard id = %d, want 7", g.HazardID)
	}
	if g.Condition != "p != nullptr" {
		t.Errorf("guard condition = %q", g.Condition)
	}
}

func TestFindGuardRespectsVisitBound(t *testing.T) {
	hazard := HazardSite{Kind: HazardPointerDeref, Operand: "p"}

	// 守卫在链首，距离超过访问预算，应放弃
	far := linearBlocks(15)
	far[0].Terminator = comparison("!=", "p", "nullptr")
	if g := FindGuard(hazard, 14, far); g != nil {
		t.Errorf("guard beyond the visit bound must not be found, got block %d", g.BlockID)
	}

	// 同样的链，守卫在预算之内
	near := linearBlocks(15)
	near[12].Terminator = comparison("!=", "p", "nullptr")
	if g := FindGuard(hazard, 14, near); g == nil {
		t.Errorf("guard within the visit bound should be found")
	}
}

func TestFindGuardTerminatesOnCycle(t *testing.T) {
	hazard := HazardSite{Kind: HazardDivision, Operand: "b"}

	// 0 <-> 1 回边，无守卫：必须终止并返回未找到
	blocks := []CondBlock{
		{ID: 0, Preds: []int{1}},
		{ID: 1, Preds: []int{0}},
	}
	if g := FindGuard(hazard, 0, blocks); g != nil {
		t.Errorf("cyclic graph without guard must return nil")
	}

	// 回边上游有守卫：仍能找到
	blocks[1].Preds = []int{0, 2}
	blocks = append(blocks, CondBlock{ID: 2, Terminator: comparison("!=", "b", "0")})
	if g := FindGuard(hazard, 0, blocks); g == nil {
		t.Errorf("guard upstream of a cycle should be found")
	}
}

func TestFindGuardFirstMatchInPredecessorOrder(t *testing.T) {
	hazard := HazardSite{Kind: HazardPointerDeref, Operand: "p"}

	// 菱形汇聚：两个前驱都有匹配条件，按前驱顺序取第一个。
	// 这是近似支配判定——只有一条路径被守卫时同样会接受
	blocks := []CondBlock{
		{ID: 0},
		{ID: 1, Preds: []int{0}, Terminator: comparison("!=", "p", "nullptr")},
		{ID: 2, Preds: []int{0}, Terminator: &ImplicitBoolTest{Operand: "p"}},
		{ID: 3, Preds: []int{1, 2}},
	}

	g := FindGuard(hazard, 3, blocks)
	if g == nil {
		t.Fatalf("expected guard")
	}
	if g.BlockID != 1 {
		t.Errorf("first predecessor's guard should win, got block %d", g.BlockID)
	}
}

func TestFindGuardInvalidBlock(t *testing.T) {
	hazard := HazardSite{Kind: HazardPointerDeref, Operand: "p"}
	blocks := linearBlocks(3)

	if g := FindGuard(hazard, -1, blocks); g != nil {
		t.Errorf("unknown hazard block must fail closed")
	}
	if g := FindGuard(hazard, 99, blocks); g != nil {
		t.Errorf("out of range block must fail closed")
	}
}
