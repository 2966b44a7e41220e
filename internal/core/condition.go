package core

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ConditionExpr 结构化分支条件
// 对终结条件做结构分解（而非文本匹配），供分类器逐变体判定
type ConditionExpr interface {
	Text() string
	condExpr()
}

// CondOperand 比较操作数
// 在降级阶段记录字面量属性，使下游分类器完全脱离AST
type CondOperand struct {
	Text      string
	IsNullLit bool // nullptr / NULL / 0 指针字面量
	IsZeroLit bool // 数值零字面量
}

// Comparison 二元比较：lhs op rhs
type Comparison struct {
	Op    string // "==", "!=", "<", "<=", ">", ">="
	Left  CondOperand
	Right CondOperand
}

// LogicalAnd 逻辑与
type LogicalAnd struct {
	Left  ConditionExpr
	Right ConditionExpr
}

// LogicalNot 逻辑非
type LogicalNot struct {
	Inner ConditionExpr
}

// ImplicitBoolTest 隐式真值测试：if (p)
type ImplicitBoolTest struct {
	Operand string
}

func (c *Comparison) condExpr()       {}
func (c *LogicalAnd) condExpr()       {}
func (c *LogicalNot) condExpr()       {}
func (c *ImplicitBoolTest) condExpr() {}

func (c *Comparison) Text() string {
	return c.Left.Text + " " + c.Op + " " + c.Right.Text
}

func (c *LogicalAnd) Text() string {
	return c.Left.Text() + " && " + c.Right.Text()
}

func (c *LogicalNot) Text() string {
	return "!(" + c.Inner.Text() + ")"
}

func (c *ImplicitBoolTest) Text() string {
	return c.Operand
}

// comparisonOps 识别为比较的运算符集合
var comparisonOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

// LowerCondition 将 tree-sitter 条件节点降级为 ConditionExpr
// 无法识别的形状统一落到 ImplicitBoolTest，保证守卫匹配"失败关闭"
func (ctx *AnalysisContext) LowerCondition(node *sitter.Node) ConditionExpr {
	node = unwrapCondition(node)
	if node == nil {
		return nil
	}

	switch node.Type() {
	case "binary_expression":
		op := ctx.GetSourceText(node.ChildByFieldName("operator"))
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")

		if comparisonOps[op] {
			return &Comparison{
				Op:    op,
				Left:  ctx.lowerOperand(left),
				Right: ctx.lowerOperand(right),
			}
		}
		if op == "&&" {
			l := ctx.LowerCondition(left)
			r := ctx.LowerCondition(right)
			if l == nil || r == nil {
				return &ImplicitBoolTest{Operand: ctx.GetSourceText(node)}
			}
			return &LogicalAnd{Left: l, Right: r}
		}
		// 其他二元运算（|| 等）不做分解
		return &ImplicitBoolTest{Operand: ctx.GetSourceText(node)}

	case "unary_expression":
		op := ctx.GetSourceText(node.ChildByFieldName("operator"))
		if op == "!" {
			inner := ctx.LowerCondition(node.ChildByFieldName("argument"))
			if inner == nil {
				return &ImplicitBoolTest{Operand: ctx.GetSourceText(node)}
			}
			return &LogicalNot{Inner: inner}
		}
		return &ImplicitBoolTest{Operand: ctx.GetSourceText(node)}

	default:
		return &ImplicitBoolTest{Operand: ctx.GetSourceText(node)}
	}
}

// unwrapCondition 剥掉括号与 C++ condition_clause 包装
func unwrapCondition(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Type() {
		case "parenthesized_expression":
			node = node.NamedChild(0)
		case "condition_clause":
			if v := node.ChildByFieldName("value"); v != nil {
				node = v
			} else {
				node = node.NamedChild(0)
			}
		default:
			return node
		}
	}
	return nil
}

// lowerOperand 提取比较操作数并标注字面量属性
func (ctx *AnalysisContext) lowerOperand(node *sitter.Node) CondOperand {
	node = unwrapCondition(node)
	if node == nil {
		return CondOperand{}
	}

	text := ctx.GetSourceText(node)
	op := CondOperand{Text: text}

	switch node.Type() {
	case "null", "nullptr":
		op.IsNullLit = true
	case "number_literal":
		if isZeroText(text) {
			op.IsZeroLit = true
			op.IsNullLit = true // 0 作为指针字面量同样表示空
		}
	default:
		// NULL 宏展开前是普通标识符
		if text == "NULL" || text == "nullptr" {
			op.IsNullLit = true
		}
	}

	return op
}

// isZeroText 判断数值字面量文本是否为零（容忍类型后缀与进制前缀）
func isZeroText(text string) bool {
	s := strings.TrimRight(text, "uUlLfF")
	if s == "" {
		return false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v == 0
	}
	if v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), 16, 64); err == nil && strings.HasPrefix(strings.ToLower(s), "0x") {
		return v == 0
	}
	return false
}
