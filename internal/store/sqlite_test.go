package store

import (
	"context"
	"path/filepath"
	"testing"

	"axiomscan/internal/report"
)

func sampleScan() *report.ScanResult {
	hasGuard := false
	return &report.ScanResult{
		Version:     "1.0",
		RunID:       "run-test-1",
		Tool:        "axiomscan",
		ExtractedAt: "2026-08-27T00:00:00Z",
		Files: []report.FileResult{
			{
				SourceFile: "a.cpp",
				Axioms: []report.Axiom{
					{
						ID: "g.precond.ptr_valid", Content: "Pointer p must not be null",
						FormalSpec: "p != nullptr", Function: "g",
						AxiomType: "PRECONDITION", Confidence: 0.95, SourceType: "pattern",
						Line: 3, HazardType: "pointer_deref", HazardLine: 3, HasGuard: &hasGuard,
					},
					{
						ID: "caller.propagated.ptr_valid", Content: "Inherited from g: Pointer p must not be null",
						FormalSpec: "p != nullptr", Function: "caller",
						AxiomType: "PRECONDITION", Confidence: 0.9025, SourceType: "propagated",
						Line: 6, PropagatedFrom: "g", Hops: 1,
					},
				},
			},
		},
		TotalAxioms: 2,
		CallGraph: []report.CallRecord{
			{Caller: "caller", Callee: "g", Line: 6, Arguments: []string{"p"}},
		},
		TotalCalls: 1,
	}
}

func TestSaveRunAndCount(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "scan.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.SaveRun(ctx, sampleScan()); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	count, err := s.CountAxioms(ctx, "run-test-1")
	if err != nil {
		t.Fatalf("CountAxioms: %v", err)
	}
	if count != 2 {
		t.Errorf("axioms in store = %d, want 2", count)
	}

	// 不存在的 run_id 计数为零
	count, err = s.CountAxioms(ctx, "absent")
	if err != nil || count != 0 {
		t.Errorf("absent run: count = %d err = %v", count, err)
	}
}

func TestSaveRunDuplicateID(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "scan.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.SaveRun(ctx, sampleScan()); err != nil {
		t.Fatalf("first SaveRun: %v", err)
	}
	if err := s.SaveRun(ctx, sampleScan()); err == nil {
		t.Errorf("duplicate run id must be rejected by the primary key")
	}

	// 失败的事务不得留下半写的公理
	count, err := s.CountAxioms(ctx, "run-test-1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("axioms after failed rerun = %d, want 2", count)
	}
}
