package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Filter 解析 .axignore 并按glob模式过滤路径
//
// 两类模式：
//   - 普通模式：任何情况下都忽略
//   - 测试模式（@test: 前缀）：正常提取时忽略，--test-mode 下纳入
//
// 示例 .axignore：
//
//	build/           # 总是忽略
//	@test: tests/    # 正常忽略，测试挖掘时使用
//	@test: *_test.cpp
type Filter struct {
	patterns     []string
	regexes      []*regexp.Regexp
	testPatterns []string
	testRegexes  []*regexp.Regexp
}

// NewFilter 创建空过滤器
func NewFilter() *Filter {
	return &Filter{}
}

// LoadFromFile 从文件加载忽略模式（通常是 .axignore）
func (f *Filter) LoadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open ignore file %s: %w", path, err)
	}
	defer file.Close()

	const testPrefix = "@test:"

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, testPrefix) {
			pattern := strings.TrimSpace(line[len(testPrefix):])
			if pattern != "" {
				if err := f.AddTestPattern(pattern); err != nil {
					return err
				}
			}
			continue
		}

		if err := f.AddPattern(line); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// AddPattern 添加普通忽略模式
func (f *Filter) AddPattern(pattern string) error {
	re, err := globToRegexp(pattern)
	if err != nil {
		return err
	}
	f.patterns = append(f.patterns, pattern)
	f.regexes = append(f.regexes, re)
	return nil
}

// AddTestPattern 添加测试专用模式
func (f *Filter) AddTestPattern(pattern string) error {
	re, err := globToRegexp(pattern)
	if err != nil {
		return err
	}
	f.testPatterns = append(f.testPatterns, pattern)
	f.testRegexes = append(f.testRegexes, re)
	return nil
}

// ShouldIgnore 正常模式下路径是否忽略（普通与测试模式都算）
func (f *Filter) ShouldIgnore(path string) bool {
	for _, re := range f.regexes {
		if re.MatchString(path) {
			return true
		}
	}
	for _, re := range f.testRegexes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// ShouldIgnoreInTestMode 测试模式下路径是否忽略（只看普通模式）
func (f *Filter) ShouldIgnoreInTestMode(path string) bool {
	for _, re := range f.regexes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// IsTestPath 路径是否命中 @test: 模式
func (f *Filter) IsTestPath(path string) bool {
	for _, re := range f.testRegexes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// PatternCount 已加载的模式总数
func (f *Filter) PatternCount() int {
	return len(f.patterns) + len(f.testPatterns)
}

// globToRegexp 把glob模式编译为正则
// ** 跨目录匹配，* 不跨 /，? 匹配单字符；模式可命中路径任意位置
func globToRegexp(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)")

	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				b.WriteString(".*")
				i++
				if i+1 < len(glob) && glob[i+1] == '/' {
					i++
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid ignore pattern %q: %w", glob, err)
	}
	return re, nil
}

// FindIgnoreFile 从给定路径向上查找 .axignore
func FindIgnoreFile(sourcePath string) string {
	dir := filepath.Clean(sourcePath)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		candidate := filepath.Join(dir, ".axignore")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ProjectRoot 从 .axignore 位置推断项目根目录
func ProjectRoot(ignorePath string) string {
	if ignorePath == "" {
		return "."
	}
	return filepath.Dir(ignorePath)
}

// MakeRelative 把绝对路径转为相对项目根的路径（用于模式匹配）
func MakeRelative(path, root string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
