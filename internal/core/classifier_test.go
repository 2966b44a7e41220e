package core

import "testing"

func comparison(op, left, right string) *Comparison {
	return &Comparison{
		Op:    op,
		Left:  literalOperand(left),
		Right: literalOperand(right),
	}
}

func literalOperand(text string) CondOperand {
	op := CondOperand{Text: text}
	switch text {
	case "nullptr", "NULL":
		op.IsNullLit = true
	case "0":
		op.IsNullLit = true
		op.IsZeroLit = true
	}
	return op
}

func TestClassifyPointerDeref(t *testing.T) {
	hazard := HazardSite{Kind: HazardPointerDeref, Operand: "p"}

	tests := []struct {
		name string
		cond ConditionExpr
		want bool
	}{
		{"ne_nullptr", comparison("!=", "p", "nullptr"), true},
		{"ne_nullptr_reversed", comparison("!=", "nullptr", "p"), true},
		{"ne_NULL", comparison("!=", "p", "NULL"), true},
		{"ne_zero", comparison("!=", "p", "0"), true},
		{"truthiness", &ImplicitBoolTest{Operand: "p"}, true},
		{"eq_nullptr", comparison("==", "p", "nullptr"), false},
		{"other_operand", comparison("!=", "q", "nullptr"), false},
		{"non_null_rhs", comparison("!=", "p", "q"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ClassifyGuard(tt.cond, hazard)
			if got != tt.want {
				t.Errorf("ClassifyGuard(%s) = %v, want %v", tt.cond.Text(), got, tt.want)
			}
		})
	}
}

func TestClassifyDivision(t *testing.T) {
	hazard := HazardSite{Kind: HazardDivision, Operand: "b"}

	tests := []struct {
		name string
		cond ConditionExpr
		want bool
	}{
		{"ne_zero", comparison("!=", "b", "0"), true},
		{"ne_zero_reversed", comparison("!=", "0", "b"), true},
		{"eq_zero", comparison("==", "b", "0"), false},
		// 单侧不等式不构成除法证明，已知缺口
		{"greater_than_zero", comparison(">", "b", "0"), false},
		{"other_operand", comparison("!=", "a", "0"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ClassifyGuard(tt.cond, hazard)
			if got != tt.want {
				t.Errorf("ClassifyGuard(%s) = %v, want %v", tt.cond.Text(), got, tt.want)
			}
		})
	}
}

func TestClassifyArrayAccess(t *testing.T) {
	hazard := HazardSite{Kind: HazardArrayAccess, Operand: "i"}

	tests := []struct {
		name string
		cond ConditionExpr
		want bool
	}{
		{"lt_upper", comparison("<", "i", "n"), true},
		{"le_upper", comparison("<=", "i", "n"), true},
		{"gt_reversed", comparison(">", "n", "i"), true},
		{"ge_reversed", comparison(">=", "n", "i"), true},
		{"wrong_side_lt", comparison("<", "n", "i"), false},
		{"wrong_side_gt", comparison(">", "i", "n"), false},
		// 有符号索引的下界检查未实现，已知缺口
		{"lower_bound_only", comparison(">=", "i", "0"), false},
		{"ne_is_not_bound", comparison("!=", "i", "n"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ClassifyGuard(tt.cond, hazard)
			if got != tt.want {
				t.Errorf("ClassifyGuard(%s) = %v, want %v", tt.cond.Text(), got, tt.want)
			}
		})
	}
}

// TestClassifyLogicalAndEitherSideSuffices 钉住逻辑与的历史行为：
// 任一子条件独立守卫即判定成立。改成两侧同时要求会改变下游的
// 置信度校准，先有这条测试挡着
func TestClassifyLogicalAndEitherSideSuffices(t *testing.T) {
	hazard := HazardSite{Kind: HazardPointerDeref, Operand: "p"}

	left := &LogicalAnd{
		Left:  comparison("!=", "p", "nullptr"),
		Right: comparison(">", "x", "5"),
	}
	if got, _ := ClassifyGuard(left, hazard); !got {
		t.Errorf("left side alone should satisfy the conjunction")
	}

	right := &LogicalAnd{
		Left:  comparison(">", "x", "5"),
		Right: comparison("!=", "p", "nullptr"),
	}
	if got, _ := ClassifyGuard(right, hazard); !got {
		t.Errorf("right side alone should satisfy the conjunction")
	}

	neither := &LogicalAnd{
		Left:  comparison(">", "x", "5"),
		Right: comparison("!=", "q", "nullptr"),
	}
	if got, _ := ClassifyGuard(neither, hazard); got {
		t.Errorf("conjunction with no matching side must not guard")
	}
}

// TestClassifyLogicalNotNeverResolved 逻辑非一律不解析
// 取反检查+提前退出的守卫模式因此漏判，已知不一致
func TestClassifyLogicalNotNeverResolved(t *testing.T) {
	hazard := HazardSite{Kind: HazardPointerDeref, Operand: "p"}

	cond := &LogicalNot{Inner: comparison("==", "p", "nullptr")}
	if got, _ := ClassifyGuard(cond, hazard); got {
		t.Errorf("negated condition must never be resolved as a guard")
	}
}

func TestClassifyFailsClosed(t *testing.T) {
	if got, _ := ClassifyGuard(nil, HazardSite{Kind: HazardPointerDeref, Operand: "p"}); got {
		t.Errorf("nil condition must not guard")
	}
	cond := comparison("!=", "p", "nullptr")
	if got, _ := ClassifyGuard(cond, HazardSite{Kind: HazardPointerDeref}); got {
		t.Errorf("empty operand must not guard")
	}
	// 转换没有守卫类型定义
	if got, _ := ClassifyGuard(cond, HazardSite{Kind: HazardCast, Operand: "p"}); got {
		t.Errorf("cast hazards have no guard kind")
	}
}
