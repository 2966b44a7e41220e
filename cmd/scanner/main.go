package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"axiomscan/internal/config"
	"axiomscan/internal/core"
	"axiomscan/internal/ignore"
	"axiomscan/internal/report"
	"axiomscan/internal/store"
)

// sourceExtensions 扫描的文件扩展名
var sourceExtensions = map[string]bool{
	".c": true, ".cc": true, ".cpp": true, ".cxx": true, ".c++": true,
	".h": true, ".hh": true, ".hpp": true, ".hxx": true, ".h++": true,
}

func main() {
	var (
		configPath  = flag.String("config", "", "YAML配置文件路径")
		workers     = flag.Int("workers", 0, "并发worker数（0 = CPU核数）")
		outputDir   = flag.String("output", "", "报告输出目录")
		format      = flag.String("format", "", "报告格式: json, text, all")
		floor       = flag.Float64("floor", 0, "置信度复核阈值")
		dbPath      = flag.String("db", "", "SQLite数据库路径（为空则不入库）")
		ignorePath  = flag.String("ignore", "", ".axignore文件路径（默认自动向上查找）")
		testMode    = flag.Bool("test-mode", false, "测试挖掘模式：纳入@test:模式命中的路径")
		compress    = flag.Bool("compress", false, "gzip压缩JSON报告")
		addTime     = flag.Bool("timestamp", false, "报告文件名添加时间戳")
		verbose     = flag.Bool("verbose", false, "输出详细日志")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <path>...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 命令行标志覆盖配置文件
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Workers = *workers
		case "output":
			cfg.OutputDir = *outputDir
		case "format":
			cfg.Format = *format
		case "floor":
			cfg.ReviewFloor = *floor
		case "db":
			cfg.DBPath = *dbPath
		case "ignore":
			cfg.IgnoreFile = *ignorePath
		case "test-mode":
			cfg.TestMode = *testMode
		case "compress":
			cfg.Compress = *compress
		case "verbose":
			cfg.Verbose = *verbose
		}
	})
	if err := cfg.Normalize(); err != nil {
		log.Fatalf("配置无效: %v", err)
	}

	outFormat, err := report.ParseFormat(cfg.Format)
	if err != nil {
		log.Fatalf("配置无效: %v", err)
	}

	// 忽略规则：显式指定优先，否则从第一个扫描路径向上查找
	filter := ignore.NewFilter()
	ignoreFile := cfg.IgnoreFile
	if ignoreFile == "" {
		ignoreFile = ignore.FindIgnoreFile(flag.Arg(0))
	}
	projectRoot := ignore.ProjectRoot(ignoreFile)
	if ignoreFile != "" {
		if err := filter.LoadFromFile(ignoreFile); err != nil {
			log.Fatalf("加载忽略文件失败: %v", err)
		}
		if cfg.Verbose {
			log.Printf("加载忽略规则: %s (%d 条模式)", ignoreFile, filter.PatternCount())
		}
	}

	files, err := collectFiles(flag.Args(), cfg, filter, projectRoot)
	if err != nil {
		log.Fatalf("收集源文件失败: %v", err)
	}
	log.Printf("发现 %d 个 C/C++ 文件", len(files))
	if len(files) == 0 {
		log.Printf("未找到任何 C/C++ 文件")
		return
	}

	// 阶段一：函数级扫描，文件间并行
	jobs := make([]core.Job, 0, len(files))
	for _, file := range files {
		jobs = append(jobs, &core.FileJob{Path: file})
	}

	ctx := context.Background()
	merged, poolStats, errs := core.RunJobs(ctx, jobs, cfg.Workers)
	for _, err := range errs {
		log.Printf("文件分析失败: %v", err)
	}
	if cfg.Verbose {
		log.Printf("工作池统计: 完成 %v, 失败 %v, 平均耗时 %v",
			poolStats["jobs_completed"], poolStats["jobs_failed"], poolStats["avg_exec_time"])
	}

	// 阶段二：合并屏障之后的单线程传播
	stats := core.Propagate(merged, cfg.ReviewFloor)
	log.Printf("传播完成: %d 个函数, 新增 %d 条继承前置条件, %d 条调用点守卫满足",
		stats.Visited, stats.Propagated, stats.Satisfied)
	if stats.UnresolvedEdges > 0 {
		log.Printf("未解析调用边: %d (外部函数或未静态解析的虚目标)", stats.UnresolvedEdges)
	}
	if stats.NeedsReview > 0 {
		log.Printf("低于复核阈值 %.2f 的条目: %d (已标记 needs_review)", cfg.ReviewFloor, stats.NeedsReview)
	}

	result := report.BuildScanResult(merged, stats)

	options := []report.ManagerOption{
		report.WithFormat(outFormat),
		report.WithOutputDir(cfg.OutputDir),
	}
	if cfg.Compress {
		options = append(options, report.WithCompression())
	}
	if *addTime {
		options = append(options, report.WithTimestamp())
	}

	manager := report.NewManager(options...)
	outputFiles, err := manager.Generate(result)
	if err != nil {
		log.Fatalf("生成报告失败: %v", err)
	}
	for _, path := range outputFiles {
		log.Printf("报告已写入: %s", path)
	}

	if cfg.DBPath != "" {
		if err := saveToStore(ctx, cfg.DBPath, result); err != nil {
			log.Fatalf("结果入库失败: %v", err)
		}
		log.Printf("结果已入库: %s (run %s)", cfg.DBPath, result.RunID)
	}

	log.Printf("扫描完成: %d 个文件, %d 条公理", len(files), result.TotalAxioms)
}

// collectFiles 遍历扫描路径收集源文件
func collectFiles(paths []string, cfg *config.Config, filter *ignore.Filter, projectRoot string) ([]string, error) {
	excluded := make(map[string]bool, len(cfg.ExcludeDirs))
	for _, dir := range cfg.ExcludeDirs {
		excluded[dir] = true
	}

	ignored := func(path string) bool {
		rel := ignore.MakeRelative(path, projectRoot)
		if cfg.TestMode {
			return filter.ShouldIgnoreInTestMode(rel)
		}
		return filter.ShouldIgnore(rel)
	}

	var files []string
	seen := make(map[string]bool)

	for _, root := range paths {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				log.Printf("跳过不可访问的路径 %s: %v", path, err)
				return nil
			}
			if info.IsDir() {
				if excluded[info.Name()] && path != root {
					if cfg.Verbose {
						log.Printf("跳过排除的目录: %s", path)
					}
					return filepath.SkipDir
				}
				return nil
			}
			if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			if ignored(path) {
				if cfg.Verbose {
					log.Printf("忽略: %s", path)
				}
				return nil
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	return files, nil
}

func saveToStore(ctx context.Context, path string, result *report.ScanResult) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveRun(ctx, result)
}
