package core

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// callCollector 在单个函数体内收集调用边
type callCollector struct {
	ctx    *AnalysisContext
	cfg    *FuncCFG
	caller string
	edges  []CallEdge
}

// CollectCalls 收集函数体内的全部调用边
//
// 被调用者按名字记录（无类型信息的语法级解析）：
//   - 普通标识符 / 限定名：直接调用
//   - 成员调用 p->f() / o.f()：记录方法名并标记 is_virtual——没有类层次
//     信息时无法区分虚分派与普通成员调用，统一按保守方向处理
//   - new T(args)：构造函数调用；无实参的默认构造不产生边
//
// 运算符重载（a / b 解析为内建运算）不产生调用边，属已知缺口
func CollectCalls(ctx *AnalysisContext, cfg *FuncCFG, body *sitter.Node, caller string) []CallEdge {
	c := &callCollector{ctx: ctx, cfg: cfg, caller: caller}
	c.walk(body)
	return c.edges
}

func (c *callCollector) walk(node *sitter.Node) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "call_expression":
		c.scanCall(node)
	case "new_expression":
		c.scanNew(node)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		c.walk(node.Child(i))
	}
}

// scanCall 处理普通调用表达式
func (c *callCollector) scanCall(node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}

	var callee string
	var virtual bool

	switch fn.Type() {
	case "identifier", "qualified_identifier":
		callee = c.ctx.GetSourceText(fn)

	case "field_expression":
		// p->f() / o.f()：只保留方法名
		callee = c.ctx.GetSourceText(fn.ChildByFieldName("field"))
		virtual = true

	case "template_function":
		// reinterpret_cast 等命名转换由危险点扫描处理
		return

	default:
		// 函数指针等无法命名的调用目标：不产生边
		return
	}

	if callee == "" {
		return
	}

	c.emit(callee, virtual, node, node.ChildByFieldName("arguments"))
}

// scanNew 处理 new 表达式的构造函数调用
func (c *callCollector) scanNew(node *sitter.Node) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return
	}

	args := node.ChildByFieldName("arguments")
	// 无实参的默认构造无前置条件可传播
	if args == nil || args.NamedChildCount() == 0 {
		return
	}

	c.emit(c.ctx.GetSourceText(typeNode), false, node, args)
}

func (c *callCollector) emit(callee string, virtual bool, node, args *sitter.Node) {
	edge := CallEdge{
		Caller:    c.caller,
		Callee:    callee,
		IsVirtual: virtual,
		Line:      int(node.StartPoint().Row) + 1,
		Block:     c.cfg.BlockFor(node),
	}

	if args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			edge.Arguments = append(edge.Arguments, c.ctx.ExprText(args.NamedChild(i)))
		}
	}

	c.edges = append(c.edges, edge)
}
