package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"axiomscan/internal/core"
)

// Config 扫描配置
// 零值字段在 Normalize 中回填默认值，CLI 标志可在加载后覆盖
type Config struct {
	Workers     int      `yaml:"workers"`      // 0 = 按CPU核数自动
	ReviewFloor float64  `yaml:"review_floor"` // 复核阈值
	OutputDir   string   `yaml:"output_dir"`
	Format      string   `yaml:"format"` // json / text / all
	Compress    bool     `yaml:"compress"`
	IgnoreFile  string   `yaml:"ignore_file"`
	ExcludeDirs []string `yaml:"exclude_dirs"`
	DBPath      string   `yaml:"db_path"` // 为空则不入库
	TestMode    bool     `yaml:"test_mode"`
	Verbose     bool     `yaml:"verbose"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Workers:     0,
		ReviewFloor: core.DefaultReviewFloor,
		OutputDir:   ".",
		Format:      "json",
		ExcludeDirs: defaultExcludeDirs(),
	}
}

// defaultExcludeDirs 默认跳过的目录
func defaultExcludeDirs() []string {
	return []string{
		".git", ".svn", ".hg",
		"build", "cmake-build-debug", "cmake-build-release",
		"node_modules", "third_party", "vendor",
	}
}

// Load 从YAML文件加载配置，文件不存在时返回默认配置
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Normalize 校验并回填默认值
func (c *Config) Normalize() error {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ReviewFloor < 0 || c.ReviewFloor > 1 {
		return fmt.Errorf("review_floor must be in [0,1], got %v", c.ReviewFloor)
	}
	if c.ReviewFloor == 0 {
		c.ReviewFloor = core.DefaultReviewFloor
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if len(c.ExcludeDirs) == 0 {
		c.ExcludeDirs = defaultExcludeDirs()
	}
	return nil
}
