package core

import "strings"

// ClassifyGuard 判定条件是否守卫给定危险点，返回判定结果与规范化条件文本
//
// 匹配规则（与置信度校准绑定，构成引擎的接受/拒绝边界）：
//   - 指针解引用：operand != 空字面量（两种参数顺序均可），或对 operand 的裸真值测试
//   - 除法：operand != 零字面量（两种顺序）；不支持单侧不等式证明（operand > 0），已知缺口
//   - 数组下标：上界比较且 operand 在相应一侧（operand < X / operand <= X / X > operand / X >= operand）；
//     有符号索引的下界检查未实现，已知缺口
//   - 逻辑与：任一子条件独立守卫即判定成立——按历史行为保留的宽松语义，
//     疑似与预期的与语义不符，由专门测试钉住现状
//   - 逻辑非：一律不解析（返回未守卫），取反检查+提前退出的守卫模式因此漏判
//   - 转换：无守卫类型定义，永远返回未守卫
func ClassifyGuard(cond ConditionExpr, hazard HazardSite) (bool, string) {
	if cond == nil || hazard.Operand == "" {
		return false, ""
	}

	switch c := cond.(type) {
	case *Comparison:
		if classifyComparison(c, hazard) {
			return true, c.Text()
		}

	case *ImplicitBoolTest:
		// if (p) 形式只对指针解引用有效
		if hazard.Kind == HazardPointerDeref && strings.Contains(c.Operand, hazard.Operand) {
			return true, c.Operand
		}

	case *LogicalAnd:
		if ok, text := ClassifyGuard(c.Left, hazard); ok {
			return true, text
		}
		if ok, text := ClassifyGuard(c.Right, hazard); ok {
			return true, text
		}

	case *LogicalNot:
		return false, ""
	}

	return false, ""
}

func classifyComparison(c *Comparison, hazard HazardSite) bool {
	switch hazard.Kind {
	case HazardPointerDeref:
		if c.Op != "!=" {
			return false
		}
		if strings.Contains(c.Left.Text, hazard.Operand) && c.Right.IsNullLit {
			return true
		}
		if strings.Contains(c.Right.Text, hazard.Operand) && c.Left.IsNullLit {
			return true
		}

	case HazardDivision:
		if c.Op != "!=" {
			return false
		}
		if strings.Contains(c.Left.Text, hazard.Operand) && c.Right.IsZeroLit {
			return true
		}
		if strings.Contains(c.Right.Text, hazard.Operand) && c.Left.IsZeroLit {
			return true
		}

	case HazardArrayAccess:
		switch c.Op {
		case "<", "<=":
			return strings.Contains(c.Left.Text, hazard.Operand)
		case ">", ">=":
			return strings.Contains(c.Right.Text, hazard.Operand)
		}
	}

	return false
}
