package core

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// hazardScanner 在单个函数体内收集危险操作
// 危险点ID在函数内单调递增，跨函数不唯一（配合函数限定名使用）
type hazardScanner struct {
	ctx      *AnalysisContext
	cfg      *FuncCFG
	function string
	nextID   int
	hazards  []HazardSite
}

// ScanHazards 扫描函数体内的全部危险操作
//
// 发射规则：
//   - 除法/取模：除数为非零字面量时跳过；其余一律发射（包括字面量零）
//   - 指针解引用（*p 与 p->m）：this 指针跳过
//   - 数组下标：无条件发射，操作数为索引表达式
//   - reinterpret_cast：无条件发射，不做守卫搜索
//
// 操作数无法重建时发射 "<unknown>" 而不是抑制——宁可误报，不可漏报
func ScanHazards(ctx *AnalysisContext, cfg *FuncCFG, body *sitter.Node, function string) []HazardSite {
	s := &hazardScanner{ctx: ctx, cfg: cfg, function: function}
	s.walk(body)
	return s.hazards
}

func (s *hazardScanner) walk(node *sitter.Node) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "binary_expression":
		s.scanBinary(node)

	case "pointer_expression":
		s.scanPointer(node)

	case "field_expression":
		s.scanField(node)

	case "subscript_expression":
		s.scanSubscript(node)

	case "call_expression":
		s.scanCast(node)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		s.walk(node.Child(i))
	}
}

// scanBinary 处理除法与取模
func (s *hazardScanner) scanBinary(node *sitter.Node) {
	op := s.ctx.GetSourceText(node.ChildByFieldName("operator"))
	if op != "/" && op != "%" {
		return
	}

	divisor := unwrapCondition(node.ChildByFieldName("right"))
	if divisor == nil {
		return
	}

	// 非零字面量除数不构成危险
	if divisor.Type() == "number_literal" && !isZeroText(s.ctx.GetSourceText(divisor)) {
		return
	}

	s.emit(HazardDivision, node, s.ctx.ExprText(divisor))
}

// scanPointer 处理 *p 形式的解引用
func (s *hazardScanner) scanPointer(node *sitter.Node) {
	if op := node.Child(0); op == nil || s.ctx.GetSourceText(op) != "*" {
		return
	}

	arg := unwrapCondition(node.ChildByFieldName("argument"))
	if arg != nil && arg.Type() == "this" {
		return
	}

	s.emit(HazardPointerDeref, node, s.ctx.ExprText(arg))
}

// scanField 处理 p->m 形式的成员访问
func (s *hazardScanner) scanField(node *sitter.Node) {
	// field_expression 子节点顺序：argument, operator, field
	if op := node.Child(1); op == nil || s.ctx.GetSourceText(op) != "->" {
		return
	}

	arg := unwrapCondition(node.ChildByFieldName("argument"))
	if arg != nil && arg.Type() == "this" {
		return
	}

	s.emit(HazardPointerDeref, node, s.ctx.ExprText(arg))
}

// scanSubscript 处理数组下标访问
func (s *hazardScanner) scanSubscript(node *sitter.Node) {
	index := node.ChildByFieldName("index")
	s.emit(HazardArrayAccess, node, s.ctx.ExprText(index))
}

// scanCast 处理 reinterpret_cast（tree-sitter 将其解析为模板函数调用）
func (s *hazardScanner) scanCast(node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Type() != "template_function" {
		return
	}
	if !strings.HasPrefix(s.ctx.GetSourceText(fn), "reinterpret_cast") {
		return
	}

	operand := "<unknown>"
	if args := node.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
		operand = s.ctx.ExprText(args.NamedChild(0))
	}

	s.emit(HazardCast, node, operand)
}

func (s *hazardScanner) emit(kind HazardKind, node *sitter.Node, operand string) {
	s.hazards = append(s.hazards, HazardSite{
		ID:         s.nextID,
		Kind:       kind,
		Operand:    operand,
		Expression: s.ctx.ExprText(node),
		Line:       int(node.StartPoint().Row) + 1,
		Column:     int(node.StartPoint().Column) + 1,
		Function:   s.function,
		Block:      s.cfg.BlockFor(node),
	})
	s.nextID++
}
