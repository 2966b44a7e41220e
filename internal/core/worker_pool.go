package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Job 任务接口
// Run 返回自有的函数级结果切片，worker 之间不共享可变状态
type Job interface {
	ID() string
	Run() ([]FunctionResult, error)
}

// Result 任务结果
type Result struct {
	JobID     string
	Functions []FunctionResult
	Error     error
}

// PoolStats 工作池统计信息
type PoolStats struct {
	JobsSubmitted   int64         `json:"jobs_submitted"`
	JobsCompleted   int64         `json:"jobs_completed"`
	JobsFailed      int64         `json:"jobs_failed"`
	ActiveWorkers   int64         `json:"active_workers"`
	TotalExecTimeNs int64         `json:"total_exec_time_ns"`
	AvgExecTime     time.Duration `json:"avg_exec_time"`
}

// WorkerPool 工作池
type WorkerPool struct {
	jobCh     chan Job
	resultsCh chan Result
	workers   int
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stats     PoolStats
}

// NewWorkerPool 创建工作池
func NewWorkerPool(ctx context.Context, workers int, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		jobCh:     make(chan Job, queueSize),
		resultsCh: make(chan Result, queueSize),
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start 启动工作池
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// worker 工作协程
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobCh:
			if !ok {
				return
			}
			atomic.AddInt64(&wp.stats.ActiveWorkers, 1)
			startTime := time.Now()

			functions, err := job.Run()
			execTime := time.Since(startTime)

			atomic.AddInt64(&wp.stats.JobsCompleted, 1)
			atomic.AddInt64(&wp.stats.TotalExecTimeNs, int64(execTime))
			if err != nil {
				atomic.AddInt64(&wp.stats.JobsFailed, 1)
			}
			atomic.AddInt64(&wp.stats.ActiveWorkers, -1)

			select {
			case wp.resultsCh <- Result{JobID: job.ID(), Functions: functions, Error: err}:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

// Submit 提交任务
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobCh <- job:
		atomic.AddInt64(&wp.stats.JobsSubmitted, 1)
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// GetResults 获取结果通道
func (wp *WorkerPool) GetResults() <-chan Result {
	return wp.resultsCh
}

// Stop 停止工作池
func (wp *WorkerPool) Stop() {
	close(wp.jobCh)
	wp.wg.Wait()
	wp.cancel()
	close(wp.resultsCh)
}

// GetStats 获取统计信息
func (wp *WorkerPool) GetStats() map[string]interface{} {
	completed := atomic.LoadInt64(&wp.stats.JobsCompleted)
	totalTimeNs := atomic.LoadInt64(&wp.stats.TotalExecTimeNs)
	avg := time.Duration(0)
	if completed > 0 {
		avg = time.Duration(totalTimeNs / completed)
	}

	return map[string]interface{}{
		"jobs_submitted": atomic.LoadInt64(&wp.stats.JobsSubmitted),
		"jobs_completed": completed,
		"jobs_failed":    atomic.LoadInt64(&wp.stats.JobsFailed),
		"active_workers": atomic.LoadInt64(&wp.stats.ActiveWorkers),
		"avg_exec_time":  avg.String(),
	}
}

// FileJob 单文件分析任务
type FileJob struct {
	Path string
}

// ID 返回任务ID
func (j *FileJob) ID() string {
	return j.Path
}

// Run 解析并分析单个文件
func (j *FileJob) Run() ([]FunctionResult, error) {
	unit, err := ParseFile(context.Background(), j.Path)
	if err != nil {
		return nil, err
	}
	return AnalyzeUnit(NewAnalysisContext(unit)), nil
}

// RunJobs 派发全部任务并合并结果（fork-join）
//
// 合并是纯拼接：每个 worker 返回自有结果，协调者在此处同步。返回的
// 切片顺序不确定，传播阶段排序后才有确定性；失败任务记入 errs 不中断。
// 上下文取消时提交中止，池照常关闭，调用方不会阻塞在结果通道上
func RunJobs(ctx context.Context, jobs []Job, workers int) (merged []FunctionResult, stats map[string]interface{}, errs []error) {
	if workers < 1 {
		workers = 1
	}

	pool := NewWorkerPool(ctx, workers, len(jobs))
	pool.Start()

	go func() {
		defer pool.Stop()
		for _, job := range jobs {
			if err := pool.Submit(job); err != nil {
				return
			}
		}
	}()

	for result := range pool.GetResults() {
		if result.Error != nil {
			errs = append(errs, result.Error)
			continue
		}
		merged = append(merged, result.Functions...)
	}

	return merged, pool.GetStats(), errs
}
