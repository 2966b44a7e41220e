package core

import (
	"fmt"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"
)

// AnalyzeUnit 对单个代码单元执行函数级分析
// 每个函数定义产出一个 FunctionResult：危险点、守卫、本函数前置条件、
// 调用边。单个函数的异常不中断其余函数的分析
func AnalyzeUnit(ctx *AnalysisContext) []FunctionResult {
	defs, err := ctx.FindFunctionDefinitions()
	if err != nil {
		return []FunctionResult{{
			Node:   FunctionNode{File: ctx.Unit.FilePath},
			Errors: []string{fmt.Sprintf("function query failed: %v", err)},
		}}
	}

	var results []FunctionResult
	for _, def := range defs {
		if r := analyzeFunction(ctx, def); r != nil {
			results = append(results, *r)
		}
	}

	// 显式注解事实按函数名归档；= delete 声明没有函数体，挂到独立条目
	for _, fact := range ExtractExplicitFacts(ctx) {
		attached := false
		for i := range results {
			if results[i].Node.Name == fact.Function {
				results[i].Facts = append(results[i].Facts, fact)
				attached = true
				break
			}
		}
		if !attached {
			results = append(results, FunctionResult{
				Node:  FunctionNode{Name: fact.Function, File: ctx.Unit.FilePath, Line: fact.Line},
				Facts: []Fact{fact},
			})
		}
	}

	return results
}

func analyzeFunction(ctx *AnalysisContext, def *sitter.Node) (result *FunctionResult) {
	name := ctx.ExtractFunctionNameFromDef(def)
	if name == "" {
		return nil
	}

	result = &FunctionResult{
		Node: FunctionNode{
			Name:   name,
			File:   ctx.Unit.FilePath,
			Line:   int(def.StartPoint().Row) + 1,
			Params: ctx.ExtractFunctionParameters(def),
		},
	}

	// 个别函数的AST异常不能拖垮整个单元
	defer func() {
		if r := recover(); r != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("analysis panic in %s: %v", name, r))
		}
	}()

	body := def.ChildByFieldName("body")
	if body == nil {
		return result
	}

	cfg := BuildFuncCFG(ctx, body)
	result.Blocks = cfg.CondBlocks(ctx)
	result.Node.Hazards = ScanHazards(ctx, cfg, body, name)
	result.Node.Calls = CollectCalls(ctx, cfg, body, name)

	for _, hazard := range result.Node.Hazards {
		// 转换类危险点没有守卫定义，直接成为前置条件
		if hazard.Kind != HazardCast {
			if g := FindGuard(hazard, hazard.Block, result.Blocks); g != nil {
				result.Guards = append(result.Guards, *g)
				continue
			}
		}
		result.Preconditions = append(result.Preconditions, patternPrecondition(name, hazard))
	}

	return result
}

// patternPrecondition 由未守卫危险点构造前置条件
// ID后缀、描述与形式化表达式是交换格式的一部分，下游按原样消费
func patternPrecondition(function string, hazard HazardSite) Precondition {
	p := Precondition{
		Function:   function,
		Confidence: HazardConfidence(hazard.Kind),
		Provenance: ProvenancePatternUnguarded,
		HazardKind: hazard.Kind,
		HazardLine: hazard.Line,
		Operand:    hazard.Operand,
		Origin:     function + "#" + strconv.Itoa(hazard.ID),
	}

	switch hazard.Kind {
	case HazardDivision:
		p.ID = function + ".precond.divisor_nonzero"
		p.Content = "Divisor " + hazard.Operand + " must not be zero"
		p.Expr = hazard.Operand + " != 0"
	case HazardPointerDeref:
		p.ID = function + ".precond.ptr_valid"
		p.Content = "Pointer " + hazard.Operand + " must not be null"
		p.Expr = hazard.Operand + " != nullptr"
	case HazardArrayAccess:
		p.ID = function + ".precond.bounds_check"
		p.Content = "Index must be within bounds for " + hazard.Expression
		p.Expr = "0 <= index && index < size"
	case HazardCast:
		p.ID = function + ".precond.cast_safe"
		p.Content = "Type cast " + hazard.Expression + " requires compatible types"
		p.Expr = "is_compatible(source_type, target_type)"
	}

	return p
}
