package core

// HazardKind 危险操作类型
type HazardKind int

const (
	HazardDivision HazardKind = iota // 除法/取模，除数可能为零
	HazardPointerDeref               // 指针解引用，指针可能为空
	HazardArrayAccess                // 数组下标访问，索引可能越界
	HazardCast                       // 不安全类型转换
)

// String 返回与交换格式一致的类型名
func (k HazardKind) String() string {
	switch k {
	case HazardDivision:
		return "division"
	case HazardPointerDeref:
		return "pointer_deref"
	case HazardArrayAccess:
		return "array_access"
	case HazardCast:
		return "cast"
	default:
		return "unknown"
	}
}

// HazardSite 危险点
// 由 HazardScanner 在单个函数体内发现，归属于唯一的函数，创建后不可变
type HazardSite struct {
	ID         int        `json:"id"`
	Kind       HazardKind `json:"-"`
	Operand    string     `json:"operand"`    // 操作数文本（尽力重建，最长100字符）
	Expression string     `json:"expression"` // 完整表达式文本
	Line       int        `json:"line"`
	Column     int        `json:"column"`
	Function   string     `json:"function"` // 所属函数的限定名
	Block      int        `json:"-"`        // 危险点所在基本块，守卫搜索的起点
}

// Guard 守卫条件
// GuardSearcher 在危险点的前驱基本块中找到的保护条件
type Guard struct {
	HazardID  int    `json:"hazard_id"`
	Condition string `json:"condition"` // 规范化的条件文本
	BlockID   int    `json:"block_id"`  // 条件所在基本块
}

// CallEdge 调用边
// 记录一次调用表达式：被调用者名、实参文本、虚分派标记
type CallEdge struct {
	Caller    string   `json:"caller"`
	Callee    string   `json:"callee"`
	Arguments []string `json:"arguments"` // 实参文本（最长100字符）
	IsVirtual bool     `json:"is_virtual"`
	Line      int      `json:"line"`
	Block     int      `json:"-"` // 调用点所在基本块（用于传播阶段的守卫检查）
}

// FunctionNode 函数节点
// 每个函数扫描一次后创建，之后不可变
type FunctionNode struct {
	Name    string       `json:"name"` // 限定名，作为跨文件合并的稳定标识
	File    string       `json:"file"`
	Line    int          `json:"line"`
	Params  []string     `json:"params"` // 形参名，按声明顺序
	Hazards []HazardSite `json:"hazards"`
	Calls   []CallEdge   `json:"calls"`
}

// Provenance 前置条件的来源
type Provenance string

const (
	ProvenanceExplicit         Provenance = "explicit"          // 显式语言注解（noexcept 等）
	ProvenancePatternGuarded   Provenance = "pattern_guarded"   // 模式识别且找到守卫
	ProvenancePatternUnguarded Provenance = "pattern_unguarded" // 模式识别但未找到守卫
	ProvenancePropagated       Provenance = "propagated"        // 从被调用者继承
)

// SourceType 返回交换格式中的 source_type 字段值
// 守卫与未守卫的模式识别在交换格式中统一为 "pattern"
func (p Provenance) SourceType() string {
	switch p {
	case ProvenanceExplicit:
		return "explicit"
	case ProvenancePropagated:
		return "propagated"
	default:
		return "pattern"
	}
}

// Precondition 前置条件
// 扫描阶段产生本函数事实，传播阶段（仅一次）补充继承事实
type Precondition struct {
	ID          string     `json:"id"`
	Function    string     `json:"function"`
	Content     string     `json:"content"`     // 人类可读描述
	Expr        string     `json:"formal_spec"` // 形式化表达式文本
	Confidence  float64    `json:"confidence"`
	Provenance  Provenance `json:"-"`
	HazardKind  HazardKind `json:"-"`
	HazardLine  int        `json:"hazard_line,omitempty"`
	Operand     string     `json:"-"`                         // 目标操作数（映射到调用点实参后可变化）
	Origin      string     `json:"-"`                         // 原始危险点标识（函数名+危险点ID），用于多路径去重
	From        string     `json:"propagated_from,omitempty"` // 直接来源函数（仅传播条目）
	Hops        int        `json:"hops,omitempty"`
	NeedsReview bool       `json:"needs_review,omitempty"` // 置信度低于阈值，保留待人工复核
}

// Fact 显式声明事实
// 从语言注解 1:1 提取（noexcept / nodiscard / deleted），置信度恒为 1.0
type Fact struct {
	ID       string `json:"id"`
	Function string `json:"function"`
	Kind     string `json:"kind"` // "EXCEPTION" / "POSTCONDITION" / "CONSTRAINT"
	Content  string `json:"content"`
	Expr     string `json:"formal_spec"`
	Line     int    `json:"line"`
}

// FunctionResult 单个函数的扫描结果
// 由 worker 独立产出（无共享状态），协调者合并后交给传播阶段
type FunctionResult struct {
	Node          FunctionNode
	Blocks        []CondBlock    // 结构化基本块（前驱ID + 终结条件）
	Preconditions []Precondition // 本函数事实；传播阶段就地补充
	Guards        []Guard        // 已识别的守卫（对应 pattern_guarded 条目）
	Facts         []Fact
	Errors        []string // 函数级异常，不中断整体分析
}
