package core

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// BlockType 基本块类型
type BlockType int

const (
	BlockEntry BlockType = iota
	BlockExit
	BlockStatement
	BlockCondition
	BlockBranch
	BlockLoop
)

// CondBlock 结构化基本块
// 守卫搜索与传播阶段只消费这个纯数据表示，不再接触AST
type CondBlock struct {
	ID         int           `json:"id"`
	Kind       BlockType     `json:"-"`
	Preds      []int         `json:"preds"`
	Terminator ConditionExpr `json:"-"` // 条件块的终结条件，其余为 nil
}

// cfgNode 构建期的基本块（携带AST语句，导出后丢弃）
type cfgNode struct {
	id        int
	kind      BlockType
	preds     []*cfgNode
	succs     []*cfgNode
	stmts     []*sitter.Node
	condition *sitter.Node
}

// FuncCFG 单个函数的控制流图
type FuncCFG struct {
	entry *cfgNode
	exit  *cfgNode
	nodes []*cfgNode
}

// cfgBuilder CFG构建辅助结构
type cfgBuilder struct {
	ctx     *AnalysisContext
	cfg     *FuncCFG
	counter int
}

// BuildFuncCFG 为单个函数体构建控制流图
func BuildFuncCFG(ctx *AnalysisContext, body *sitter.Node) *FuncCFG {
	b := &cfgBuilder{
		ctx: ctx,
		cfg: &FuncCFG{},
	}

	entry := b.createNode(BlockEntry, nil)
	b.cfg.entry = entry
	exit := b.createNode(BlockExit, nil)
	b.cfg.exit = exit

	last := b.buildNode(body, entry)
	if last != nil && len(last.succs) == 0 && last != exit {
		b.addEdge(last, exit)
	}
	b.connectToExit(exit)

	return b.cfg
}

// createNode 创建新的基本块
func (b *cfgBuilder) createNode(kind BlockType, astNode *sitter.Node) *cfgNode {
	node := &cfgNode{
		id:   b.counter,
		kind: kind,
	}
	if astNode != nil {
		node.stmts = append(node.stmts, astNode)
	}
	b.cfg.nodes = append(b.cfg.nodes, node)
	b.counter++
	return node
}

// buildNode 递归构建节点的CFG，返回该结构的出口块
func (b *cfgBuilder) buildNode(node *sitter.Node, entry *cfgNode) *cfgNode {
	if node == nil {
		return entry
	}

	switch node.Type() {
	case "compound_statement":
		return b.buildCompound(node, entry)

	case "if_statement":
		return b.buildIf(node, entry)

	case "for_statement", "while_statement", "do_statement":
		return b.buildLoop(node, entry)

	case "return_statement", "break_statement", "continue_statement", "goto_statement":
		return b.buildControlTransfer(node, entry)

	default:
		if isStatement(node) {
			return b.buildStatement(node, entry)
		}

		// 非语句节点：递归处理子节点
		last := entry
		for i := 0; i < int(node.ChildCount()); i++ {
			if child := node.Child(i); child != nil {
				last = b.buildNode(child, last)
			}
		}
		return last
	}
}

// buildCompound 构建复合语句
func (b *cfgBuilder) buildCompound(node *sitter.Node, entry *cfgNode) *cfgNode {
	last := entry
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && isStatement(child) {
			last = b.buildNode(child, last)
		}
	}
	return last
}

// buildIf 构建if语句：条件块 -> 分支 -> 汇聚点
func (b *cfgBuilder) buildIf(node *sitter.Node, entry *cfgNode) *cfgNode {
	conditionNode := node.ChildByFieldName("condition")
	condition := b.createNode(BlockCondition, conditionNode)
	condition.condition = conditionNode
	b.addEdge(entry, condition)

	consequenceNode := node.ChildByFieldName("consequence")
	consequenceEntry := b.createNode(BlockBranch, nil)
	b.addEdge(condition, consequenceEntry)
	consequenceExit := b.buildNode(consequenceNode, consequenceEntry)

	merge := b.createNode(BlockStatement, nil)

	if alternativeNode := node.ChildByFieldName("alternative"); alternativeNode != nil {
		alternativeEntry := b.createNode(BlockBranch, nil)
		b.addEdge(condition, alternativeEntry)
		alternativeExit := b.buildNode(alternativeNode, alternativeEntry)
		if consequenceExit != nil {
			b.addEdge(consequenceExit, merge)
		}
		if alternativeExit != nil {
			b.addEdge(alternativeExit, merge)
		}
	} else {
		if consequenceExit != nil {
			b.addEdge(consequenceExit, merge)
		}
		// 条件为假时跳过if体
		b.addEdge(condition, merge)
	}

	return merge
}

// buildLoop 构建循环语句
func (b *cfgBuilder) buildLoop(node *sitter.Node, entry *cfgNode) *cfgNode {
	header := b.createNode(BlockLoop, node)
	b.addEdge(entry, header)

	condition := header
	if conditionNode := node.ChildByFieldName("condition"); conditionNode != nil {
		condition = b.createNode(BlockCondition, conditionNode)
		condition.condition = conditionNode
		b.addEdge(header, condition)
	}

	if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
		bodyEntry := b.createNode(BlockBranch, nil)
		b.addEdge(condition, bodyEntry)
		if bodyExit := b.buildNode(bodyNode, bodyEntry); bodyExit != nil {
			// 循环体回边
			b.addEdge(bodyExit, header)
		}
	}

	loopExit := b.createNode(BlockStatement, nil)
	b.addEdge(condition, loopExit)
	return loopExit
}

// buildControlTransfer 构建控制转移语句
func (b *cfgBuilder) buildControlTransfer(node *sitter.Node, entry *cfgNode) *cfgNode {
	stmt := b.createNode(BlockStatement, node)
	b.addEdge(entry, stmt)
	if node.Type() == "return_statement" {
		b.addEdge(stmt, b.cfg.exit)
	}
	return stmt
}

// buildStatement 构建普通语句
func (b *cfgBuilder) buildStatement(node *sitter.Node, entry *cfgNode) *cfgNode {
	stmt := b.createNode(BlockStatement, node)
	b.addEdge(entry, stmt)
	return stmt
}

// connectToExit 确保所有无后继的块连接到exit
func (b *cfgBuilder) connectToExit(exit *cfgNode) {
	for _, node := range b.cfg.nodes {
		if node != exit && len(node.succs) == 0 {
			b.addEdge(node, exit)
		}
	}
}

// addEdge 添加CFG边
func (b *cfgBuilder) addEdge(from, to *cfgNode) {
	from.succs = append(from.succs, to)
	to.preds = append(to.preds, from)
}

// isStatement 判断节点是否是语句
func isStatement(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "expression_statement", "declaration", "compound_statement",
		"return_statement", "break_statement", "continue_statement",
		"goto_statement", "if_statement", "for_statement",
		"while_statement", "do_statement", "switch_statement",
		"labeled_statement":
		return true
	default:
		return false
	}
}

// BlockFor 查找包含给定AST节点的基本块ID，找不到返回 -1
// 按字节范围包含关系匹配，取最小的包含语句——循环头持有整个循环节点，
// 循环体内的节点必须归属体内语句块而不是循环头
func (c *FuncCFG) BlockFor(node *sitter.Node) int {
	if node == nil {
		return -1
	}
	start, end := node.StartByte(), node.EndByte()

	best := -1
	bestSize := ^uint32(0)
	for _, block := range c.nodes {
		for _, stmt := range block.stmts {
			if start < stmt.StartByte() || end > stmt.EndByte() {
				continue
			}
			if size := stmt.EndByte() - stmt.StartByte(); size < bestSize {
				best = block.id
				bestSize = size
			}
		}
	}
	return best
}

// CondBlocks 导出结构化基本块（终结条件已降级为 ConditionExpr）
// 导出结果不再持有AST指针，worker 可将其作为自有数据返回给协调者
func (c *FuncCFG) CondBlocks(ctx *AnalysisContext) []CondBlock {
	blocks := make([]CondBlock, 0, len(c.nodes))
	for _, node := range c.nodes {
		cb := CondBlock{
			ID:    node.id,
			Kind:  node.kind,
			Preds: make([]int, 0, len(node.preds)),
		}
		for _, p := range node.preds {
			cb.Preds = append(cb.Preds, p.id)
		}
		if node.condition != nil {
			cb.Terminator = ctx.LowerCondition(node.condition)
		}
		blocks = append(blocks, cb)
	}
	return blocks
}
