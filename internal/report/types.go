package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"axiomscan/internal/core"
)

// Axiom 交换格式中的单条公理记录
// 字段名与下游加载器约定一致，不要随意改动
type Axiom struct {
	ID              string  `json:"id"`
	Content         string  `json:"content"`
	FormalSpec      string  `json:"formal_spec"`
	Function        string  `json:"function"`
	AxiomType       string  `json:"axiom_type"`
	Confidence      float64 `json:"confidence"`
	SourceType      string  `json:"source_type"`
	Line            int     `json:"line"`
	HazardType      string  `json:"hazard_type,omitempty"`
	HazardLine      int     `json:"hazard_line,omitempty"`
	HasGuard        *bool   `json:"has_guard,omitempty"`
	GuardExpression string  `json:"guard_expression,omitempty"`
	PropagatedFrom  string  `json:"propagated_from,omitempty"`
	Hops            int     `json:"hops,omitempty"`
	NeedsReview     bool    `json:"needs_review,omitempty"`
}

// FileResult 单个源文件的提取结果
type FileResult struct {
	SourceFile string   `json:"source_file"`
	Axioms     []Axiom  `json:"axioms"`
	Errors     []string `json:"errors,omitempty"`
}

// CallRecord 交换格式中的调用边
type CallRecord struct {
	Caller    string   `json:"caller"`
	Callee    string   `json:"callee"`
	Line      int      `json:"line"`
	Arguments []string `json:"arguments"`
	IsVirtual bool     `json:"is_virtual"`
}

// ScanResult 一次完整扫描的结果
type ScanResult struct {
	Version     string       `json:"version"`
	RunID       string       `json:"run_id"`
	Tool        string       `json:"tool"`
	ExtractedAt string       `json:"extracted_at"`
	Files       []FileResult `json:"files"`
	TotalAxioms int          `json:"total_axioms"`
	CallGraph   []CallRecord `json:"call_graph,omitempty"`
	TotalCalls  int          `json:"total_calls,omitempty"`
	NeedsReview int          `json:"needs_review_count"`
	Unresolved  int          `json:"unresolved_edges"`
}

// BuildScanResult 把传播后的函数级结果汇总为报告
// 按文件分组、文件内按函数行号排序，保证输出确定性
func BuildScanResult(results []core.FunctionResult, stats core.PropagationStats) *ScanResult {
	sr := &ScanResult{
		Version:     "1.0",
		RunID:       uuid.NewString(),
		Tool:        "axiomscan",
		ExtractedAt: time.Now().UTC().Format(time.RFC3339),
		NeedsReview: stats.NeedsReview,
		Unresolved:  stats.UnresolvedEdges,
	}

	byFile := make(map[string]*FileResult)
	var order []string

	for i := range results {
		fr := &results[i]
		file := fr.Node.File
		out, ok := byFile[file]
		if !ok {
			out = &FileResult{SourceFile: file}
			byFile[file] = out
			order = append(order, file)
		}

		for _, p := range fr.Preconditions {
			out.Axioms = append(out.Axioms, preconditionAxiom(p))
		}
		for _, f := range fr.Facts {
			out.Axioms = append(out.Axioms, factAxiom(f))
		}
		out.Errors = append(out.Errors, fr.Errors...)

		for _, call := range fr.Node.Calls {
			sr.CallGraph = append(sr.CallGraph, CallRecord{
				Caller:    call.Caller,
				Callee:    call.Callee,
				Line:      call.Line,
				Arguments: call.Arguments,
				IsVirtual: call.IsVirtual,
			})
		}
	}

	sort.Strings(order)
	for _, file := range order {
		out := byFile[file]
		sort.SliceStable(out.Axioms, func(i, j int) bool {
			if out.Axioms[i].Line != out.Axioms[j].Line {
				return out.Axioms[i].Line < out.Axioms[j].Line
			}
			return out.Axioms[i].ID < out.Axioms[j].ID
		})
		sr.Files = append(sr.Files, *out)
		sr.TotalAxioms += len(out.Axioms)
	}
	sr.TotalCalls = len(sr.CallGraph)

	return sr
}

func preconditionAxiom(p core.Precondition) Axiom {
	hasGuard := false
	a := Axiom{
		ID:          p.ID,
		Content:     p.Content,
		FormalSpec:  p.Expr,
		Function:    p.Function,
		AxiomType:   "PRECONDITION",
		Confidence:  p.Confidence,
		SourceType:  p.Provenance.SourceType(),
		Line:        p.HazardLine,
		HazardType:  p.HazardKind.String(),
		HazardLine:  p.HazardLine,
		HasGuard:    &hasGuard,
		NeedsReview: p.NeedsReview,
	}
	if p.Provenance == core.ProvenancePropagated {
		a.PropagatedFrom = p.From
		a.Hops = p.Hops
	}
	return a
}

func factAxiom(f core.Fact) Axiom {
	return Axiom{
		ID:         f.ID,
		Content:    f.Content,
		FormalSpec: f.Expr,
		Function:   f.Function,
		AxiomType:  f.Kind,
		Confidence: core.ConfidenceExplicit,
		SourceType: "explicit",
		Line:       f.Line,
	}
}
