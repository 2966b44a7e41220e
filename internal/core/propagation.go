package core

import (
	"sort"
	"strings"
)

// PropagationStats 传播阶段的聚合诊断
type PropagationStats struct {
	Visited         int // 访问过的函数数（每函数恰好一次）
	Propagated      int // 新增的继承前置条件数
	Satisfied       int // 调用点守卫已满足的条目数
	UnresolvedEdges int // 无法解析目标的调用边数
	NeedsReview     int // 低于复核阈值的条目数
}

// propagator 单遍传播的全局状态
// 函数用竞技场下标标识，名字只在建索引时用一次
type propagator struct {
	results []FunctionResult
	index   map[string]int
	visited []bool
	floor   float64
	stats   PropagationStats
}

// Propagate 在合并后的全量结果上执行单遍前置条件传播
//
// 函数按名字排序后建立下标索引，整个过程确定性、单线程。访问顺序为
// 逆拓扑（被调用者先于调用者）：对每条调用边先递归访问被调用者，再读取
// 其未解决前置条件。环上的函数每遍恰好访问一次，后访问者读到的是环中
// 先访问者的部分结果——单遍近似，不做不动点迭代，递归链的结果因此不完整
//
// 调用点守卫检查：把被调用者的前置条件操作数按形参位置映射到调用点实参，
// 在调用点所在基本块上复用守卫搜索。满足则只记录一条本地守卫事实，不产生
// 继承条目；不满足则继承，置信度乘衰减因子、跳数加一
//
// 同一来源危险点经多条路径到达同一函数时只保留置信度最高的条目。
// 低于阈值的条目标记 needs_review，绝不丢弃
func Propagate(results []FunctionResult, floor float64) PropagationStats {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Node.Name < results[j].Node.Name
	})

	p := &propagator{
		results: results,
		index:   make(map[string]int, len(results)),
		visited: make([]bool, len(results)),
		floor:   floor,
	}
	for i := range results {
		if _, ok := p.index[results[i].Node.Name]; !ok {
			p.index[results[i].Node.Name] = i
		}
	}

	for i := range results {
		p.visit(i)
	}

	for i := range results {
		for j := range results[i].Preconditions {
			q := &results[i].Preconditions[j]
			if BelowFloor(q.Confidence, floor) {
				q.NeedsReview = true
				p.stats.NeedsReview++
			}
		}
	}

	return p.stats
}

func (p *propagator) visit(id int) {
	if p.visited[id] {
		return
	}
	p.visited[id] = true
	p.stats.Visited++

	fr := &p.results[id]
	var inherited []Precondition

	for _, edge := range fr.Node.Calls {
		calleeID, ok := p.index[edge.Callee]
		if !ok {
			// 外部函数或未静态解析的虚目标：不传播任何东西
			p.stats.UnresolvedEdges++
			continue
		}
		if calleeID != id {
			p.visit(calleeID)
		}

		callee := &p.results[calleeID]
		for _, q := range callee.Preconditions {
			if q.Provenance != ProvenancePatternUnguarded && q.Provenance != ProvenancePropagated {
				continue
			}

			operand := mapOperand(q.Operand, callee.Node.Params, edge.Arguments)
			if operand != "" {
				probe := HazardSite{Kind: q.HazardKind, Operand: operand}
				if g := FindGuard(probe, edge.Block, fr.Blocks); g != nil {
					fr.Guards = append(fr.Guards, Guard{HazardID: -1, Condition: g.Condition, BlockID: g.BlockID})
					p.stats.Satisfied++
					continue
				}
			}

			inherited = append(inherited, inheritPrecondition(fr.Node.Name, edge.Callee, q, operand))
		}
	}

	fr.Preconditions = append(fr.Preconditions, p.dedupe(fr, inherited)...)
}

// mapOperand 把被调用者的前置条件操作数映射到调用点实参
// 操作数不是形参、或实参缺失时返回空（映射失败即守卫检查失败关闭）
func mapOperand(operand string, params, args []string) string {
	for i, param := range params {
		if param == operand {
			if i < len(args) {
				return args[i]
			}
			return ""
		}
	}
	return ""
}

// inheritPrecondition 构造继承条目
func inheritPrecondition(caller, callee string, q Precondition, operand string) Precondition {
	suffix := q.ID
	if i := strings.LastIndex(q.ID, "."); i >= 0 {
		suffix = q.ID[i+1:]
	}
	if operand == "" {
		operand = q.Operand
	}

	return Precondition{
		ID:         caller + ".propagated." + suffix,
		Function:   caller,
		Content:    "Inherited from " + callee + ": " + q.Content,
		Expr:       q.Expr,
		Confidence: PropagatedConfidence(q.Confidence),
		Provenance: ProvenancePropagated,
		HazardKind: q.HazardKind,
		HazardLine: q.HazardLine,
		Operand:    operand,
		Origin:     q.Origin,
		From:       callee,
		Hops:       q.Hops + 1,
	}
}

// dedupe 按来源危险点去重，保留置信度最高的继承条目
// 自递归时来源可能已作为本函数条目存在，此时继承条目直接丢弃
func (p *propagator) dedupe(fr *FunctionResult, inherited []Precondition) []Precondition {
	if len(inherited) == 0 {
		return nil
	}

	own := make(map[string]bool, len(fr.Preconditions))
	for _, q := range fr.Preconditions {
		own[q.Origin] = true
	}

	best := make(map[string]int)
	var kept []Precondition
	for _, q := range inherited {
		if own[q.Origin] {
			continue
		}
		if i, ok := best[q.Origin]; ok {
			if q.Confidence > kept[i].Confidence {
				kept[i] = q
			}
			continue
		}
		best[q.Origin] = len(kept)
		kept = append(kept, q)
	}

	p.stats.Propagated += len(kept)
	return kept
}
