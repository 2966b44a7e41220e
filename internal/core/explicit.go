package core

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ExtractExplicitFacts 提取显式语言注解事实
//
// 注解与事实 1:1 对应，不做推断：
//   - noexcept        -> EXCEPTION（保证不抛异常）
//   - [[nodiscard]]   -> POSTCONDITION（返回值不可丢弃）
//   - = delete        -> CONSTRAINT（不可调用）
//
// C 语言单元没有这些注解，直接返回空
func ExtractExplicitFacts(ctx *AnalysisContext) []Fact {
	if ctx.Unit.Language != "cpp" {
		return nil
	}

	var facts []Fact
	collectExplicitFacts(ctx, ctx.Unit.Root, &facts)
	return facts
}

func collectExplicitFacts(ctx *AnalysisContext, node *sitter.Node, facts *[]Fact) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_definition":
		name := ctx.ExtractFunctionNameFromDef(node)
		if name != "" {
			line := int(node.StartPoint().Row) + 1
			if hasNodeOfType(node.ChildByFieldName("declarator"), "noexcept") {
				*facts = append(*facts, Fact{
					ID:       name + ".noexcept",
					Function: name,
					Kind:     "EXCEPTION",
					Content:  name + " is guaranteed not to throw exceptions",
					Expr:     "noexcept == true",
					Line:     line,
				})
			}
			if hasNodiscardAttr(ctx, node) {
				*facts = append(*facts, Fact{
					ID:       name + ".nodiscard",
					Function: name,
					Kind:     "POSTCONDITION",
					Content:  "Return value of " + name + " must not be discarded",
					Expr:     "[[nodiscard]]",
					Line:     line,
				})
			}
		}

	case "delete_method_clause":
		// = delete 出现在声明上，没有函数体
		if decl := node.Parent(); decl != nil {
			if fd := findFunctionDeclarator(decl); fd != nil {
				name := ctx.GetSourceText(fd.ChildByFieldName("declarator"))
				if name != "" {
					*facts = append(*facts, Fact{
						ID:       name + ".deleted",
						Function: name,
						Kind:     "CONSTRAINT",
						Content:  name + " is explicitly deleted and cannot be called",
						Expr:     "callable == false",
						Line:     int(decl.StartPoint().Row) + 1,
					})
				}
			}
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectExplicitFacts(ctx, node.Child(i), facts)
	}
}

// hasNodeOfType 在子树内查找给定类型的节点
func hasNodeOfType(node *sitter.Node, nodeType string) bool {
	if node == nil {
		return false
	}
	if node.Type() == nodeType {
		return true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if hasNodeOfType(node.Child(i), nodeType) {
			return true
		}
	}
	return false
}

// hasNodiscardAttr 检查函数定义是否携带 [[nodiscard]] 属性
func hasNodiscardAttr(ctx *AnalysisContext, funcDef *sitter.Node) bool {
	for i := 0; i < int(funcDef.ChildCount()); i++ {
		child := funcDef.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "attribute_declaration", "attribute_specifier":
			if strings.Contains(ctx.GetSourceText(child), "nodiscard") {
				return true
			}
		}
	}
	return false
}
