package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

// maxExprText 重建表达式文本的长度上限
const maxExprText = 100

// ParserPool 管理 tree-sitter Parser 实例池
// 使用 sync.Pool 允许每个 goroutine 获取独立的 Parser，消除全局锁瓶颈
type ParserPool struct {
	cPool   sync.Pool
	cppPool sync.Pool
}

// NewParserPool 创建新的 Parser Pool
func NewParserPool() *ParserPool {
	return &ParserPool{
		cPool: sync.Pool{
			New: func() interface{} {
				parser := sitter.NewParser()
				parser.SetLanguage(c.GetLanguage())
				return parser
			},
		},
		cppPool: sync.Pool{
			New: func() interface{} {
				parser := sitter.NewParser()
				parser.SetLanguage(cpp.GetLanguage())
				return parser
			},
		},
	}
}

// globalParserPool 全局 Parser Pool 实例
var globalParserPool = NewParserPool()

// GetParser 从 Pool 获取对应语言的 Parser（无需锁）
func GetParser(language string) *sitter.Parser {
	if language == "cpp" {
		return globalParserPool.cppPool.Get().(*sitter.Parser)
	}
	return globalParserPool.cPool.Get().(*sitter.Parser)
}

// PutParser 将 Parser 归还到 Pool（无需锁）
func PutParser(language string, parser *sitter.Parser) {
	parser.Reset()
	if language == "cpp" {
		globalParserPool.cppPool.Put(parser)
	} else {
		globalParserPool.cPool.Put(parser)
	}
}

// queryCache 全局Query缓存（避免重复创建Query对象）
// key: language:queryPattern -> *sitter.Query
var queryCache sync.Map

// queryCreateMutex 保护缓存未命中时的Query创建
var queryCreateMutex sync.Mutex

// GetQueryFromCache 从缓存获取或创建Query
func GetQueryFromCache(queryPattern string, language string) (*sitter.Query, error) {
	key := language + ":" + queryPattern

	// 快速路径，无锁
	if cached, ok := queryCache.Load(key); ok {
		return cached.(*sitter.Query), nil
	}

	queryCreateMutex.Lock()
	defer queryCreateMutex.Unlock()

	// 双重检查：可能在等待锁期间已被其他 goroutine 创建
	if cached, ok := queryCache.Load(key); ok {
		return cached.(*sitter.Query), nil
	}

	var lang *sitter.Language
	if language == "c" {
		lang = c.GetLanguage()
	} else {
		lang = cpp.GetLanguage()
	}

	query, err := sitter.NewQuery([]byte(queryPattern), lang)
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}

	queryCache.Store(key, query)
	return query, nil
}

// ParsedUnit 表示一个已解析的代码单元
type ParsedUnit struct {
	FilePath string
	Root     *sitter.Node
	Source   []byte
	Tree     *sitter.Tree
	Language string
}

// AnalysisContext 提供单个代码单元的分析上下文
type AnalysisContext struct {
	Unit *ParsedUnit
}

// NewAnalysisContext 创建新的分析上下文
func NewAnalysisContext(unit *ParsedUnit) *AnalysisContext {
	return &AnalysisContext{Unit: unit}
}

// languageForFile 根据扩展名判定语言，.h 默认按 C++ 处理
func languageForFile(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".c":
		return "c"
	case ".cpp", ".cxx", ".cc", ".c++", ".hpp", ".hxx", ".hh", ".h++", ".h":
		return "cpp"
	default:
		return ""
	}
}

// ParseFile 解析单个文件
func ParseFile(ctx context.Context, filePath string) (*ParsedUnit, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	language := languageForFile(filePath)
	if language == "" {
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filePath))
	}

	return parseUnit(ctx, filePath, language, source)
}

// ParseSource 解析内存中的源码（测试与stdin输入）
func ParseSource(ctx context.Context, name, language string, source []byte) (*ParsedUnit, error) {
	if language != "c" && language != "cpp" {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
	return parseUnit(ctx, name, language, source)
}

func parseUnit(ctx context.Context, name, language string, source []byte) (*ParsedUnit, error) {
	parser := GetParser(language)
	defer PutParser(language, parser)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	return &ParsedUnit{
		FilePath: name,
		Root:     tree.RootNode(),
		Source:   source,
		Tree:     tree,
		Language: language,
	}, nil
}

// QueryNodes 使用 Tree-sitter 查询语言查找节点
func (ctx *AnalysisContext) QueryNodes(queryPattern string) ([]*sitter.Node, error) {
	query, err := GetQueryFromCache(queryPattern, ctx.Unit.Language)
	if err != nil {
		return nil, err
	}

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	cursor.Exec(query, ctx.Unit.Root)

	var nodes []*sitter.Node
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		for _, capture := range match.Captures {
			nodes = append(nodes, capture.Node)
		}
	}

	return nodes, nil
}

// GetSourceText 获取节点的源代码文本
func (ctx *AnalysisContext) GetSourceText(node *sitter.Node) string {
	if node == nil {
		return ""
	}

	start := node.StartByte()
	end := node.EndByte()

	// 边界检查，防止越界
	if end > uint32(len(ctx.Unit.Source)) {
		end = uint32(len(ctx.Unit.Source))
	}
	if start > end {
		start = 0
	}
	if start >= uint32(len(ctx.Unit.Source)) {
		return ""
	}

	return string(ctx.Unit.Source[start:end])
}

// ExprText 重建表达式文本，超长截断
// 文本仅用于报告与去重标识，不参与语义判定，截断不影响正确性
func (ctx *AnalysisContext) ExprText(node *sitter.Node) string {
	text := ctx.GetSourceText(node)
	if text == "" {
		return "<unknown>"
	}
	if len(text) > maxExprText {
		return text[:maxExprText]
	}
	return text
}

// FindFunctionDefinitions 查找所有函数定义节点
func (ctx *AnalysisContext) FindFunctionDefinitions() ([]*sitter.Node, error) {
	return ctx.QueryNodes(`(function_definition) @def`)
}

// ExtractFunctionNameFromDef 从函数定义节点中提取函数名
// 处理多种情况：
// 1. int func() - declarator 是 function_declarator
// 2. int* func() - declarator 是 pointer_declarator，其子节点是 function_declarator
func (ctx *AnalysisContext) ExtractFunctionNameFromDef(funcDef *sitter.Node) string {
	if funcDef == nil || funcDef.Type() != "function_definition" {
		return ""
	}

	declarator := findFunctionDeclarator(funcDef.ChildByFieldName("declarator"))
	if declarator == nil {
		return ""
	}

	name := declarator.ChildByFieldName("declarator")
	if name == nil {
		return ""
	}

	switch name.Type() {
	case "identifier", "field_identifier", "qualified_identifier",
		"destructor_name", "operator_name":
		return ctx.GetSourceText(name)
	}
	return ""
}

// ExtractFunctionParameters 从函数定义中提取形参名列表（按声明顺序）
func (ctx *AnalysisContext) ExtractFunctionParameters(funcDef *sitter.Node) []string {
	if funcDef == nil || funcDef.Type() != "function_definition" {
		return nil
	}

	declarator := findFunctionDeclarator(funcDef.ChildByFieldName("declarator"))
	if declarator == nil {
		return nil
	}

	parameters := declarator.ChildByFieldName("parameters")
	if parameters == nil || parameters.Type() != "parameter_list" {
		return nil
	}

	var names []string
	for i := 0; i < int(parameters.ChildCount()); i++ {
		param := parameters.Child(i)
		if param == nil || param.Type() != "parameter_declaration" {
			continue
		}
		if id := findIdentifier(param); id != nil {
			names = append(names, ctx.GetSourceText(id))
		}
	}

	return names
}

// findFunctionDeclarator 递归查找 function_declarator 节点
// 用于处理 pointer_declarator、array_declarator 等包装节点
func findFunctionDeclarator(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() == "function_declarator" {
		return node
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_declarator", "pointer_declarator", "array_declarator", "reference_declarator":
			if result := findFunctionDeclarator(child); result != nil {
				return result
			}
		}
	}

	return nil
}

// findIdentifier 在声明子树内查找第一个标识符
func findIdentifier(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() == "identifier" {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if result := findIdentifier(node.Child(i)); result != nil {
			return result
		}
	}
	return nil
}
