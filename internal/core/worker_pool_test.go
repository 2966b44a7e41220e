package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type stubJob struct {
	id   string
	fail bool
}

func (j *stubJob) ID() string { return j.id }

func (j *stubJob) Run() ([]FunctionResult, error) {
	if j.fail {
		return nil, errors.New("job failed: " + j.id)
	}
	return []FunctionResult{{Node: FunctionNode{Name: j.id}}}, nil
}

func TestRunJobsMergesResults(t *testing.T) {
	jobs := make([]Job, 0, 20)
	for i := 0; i < 20; i++ {
		jobs = append(jobs, &stubJob{id: string(rune('a' + i))})
	}

	merged, stats, errs := RunJobs(context.Background(), jobs, 4)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if len(merged) != 20 {
		t.Errorf("merged = %d results, want 20", len(merged))
	}
	if got := stats["jobs_completed"].(int64); got != 20 {
		t.Errorf("jobs_completed = %d, want 20", got)
	}
	if got := stats["jobs_failed"].(int64); got != 0 {
		t.Errorf("jobs_failed = %d, want 0", got)
	}
}

func TestRunJobsCollectsErrors(t *testing.T) {
	jobs := []Job{
		&stubJob{id: "ok1"},
		&stubJob{id: "bad", fail: true},
		&stubJob{id: "ok2"},
	}

	merged, stats, errs := RunJobs(context.Background(), jobs, 2)
	if len(errs) != 1 {
		t.Errorf("errs = %d, want 1 (failures must not abort the batch)", len(errs))
	}
	if len(merged) != 2 {
		t.Errorf("merged = %d results, want 2", len(merged))
	}
	if got := stats["jobs_failed"].(int64); got != 1 {
		t.Errorf("jobs_failed = %d, want 1", got)
	}
}

func TestRunJobsClampsWorkerCount(t *testing.T) {
	merged, _, errs := RunJobs(context.Background(), []Job{&stubJob{id: "solo"}}, 0)
	if len(errs) != 0 || len(merged) != 1 {
		t.Errorf("merged = %d errs = %v", len(merged), errs)
	}
}

// TestRunJobsCanceledContext 已取消的上下文下 fork-join 仍须收敛：
// 提交失败的路径也要关闭池，结果通道必须被关闭
func TestRunJobsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := make([]Job, 0, 50)
	for i := 0; i < 50; i++ {
		jobs = append(jobs, &stubJob{id: "j"})
	}

	done := make(chan struct{})
	go func() {
		RunJobs(ctx, jobs, 4)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("RunJobs did not terminate under a canceled context")
	}
}

func TestFileJob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unit.cpp")
	src := `
void g(int* p) {
    *p = 1;
}
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	job := &FileJob{Path: path}
	if job.ID() != path {
		t.Errorf("job id = %q", job.ID())
	}

	results, err := job.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	g := resultByName(t, results, "g")
	if len(g.Preconditions) != 1 {
		t.Errorf("preconditions = %d, want 1", len(g.Preconditions))
	}
	if g.Node.File != path {
		t.Errorf("file = %q, want %q", g.Node.File, path)
	}
}

func TestFileJobMissingFile(t *testing.T) {
	job := &FileJob{Path: filepath.Join(t.TempDir(), "absent.cpp")}
	if _, err := job.Run(); err == nil {
		t.Errorf("missing file must fail the job")
	}
}
