package report

import (
	"fmt"
	"io"
	"strings"
)

// TextWriter 文本格式报告写入器（人类可读）
type TextWriter struct {
	writer io.Writer
}

// NewTextWriter 创建文本写入器
func NewTextWriter(writer io.Writer) *TextWriter {
	return &TextWriter{writer: writer}
}

// Write 写入文本报告
func (w *TextWriter) Write(result *ScanResult) error {
	var b strings.Builder

	b.WriteString("==========================================\n")
	b.WriteString("  axiomscan precondition report\n")
	b.WriteString("==========================================\n")
	fmt.Fprintf(&b, "run:          %s\n", result.RunID)
	fmt.Fprintf(&b, "extracted at: %s\n", result.ExtractedAt)
	fmt.Fprintf(&b, "files:        %d\n", len(result.Files))
	fmt.Fprintf(&b, "axioms:       %d\n", result.TotalAxioms)
	fmt.Fprintf(&b, "call edges:   %d (unresolved: %d)\n", result.TotalCalls, result.Unresolved)
	fmt.Fprintf(&b, "needs review: %d\n", result.NeedsReview)
	b.WriteString("\n")

	for _, file := range result.Files {
		if len(file.Axioms) == 0 && len(file.Errors) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s\n", file.SourceFile)
		fmt.Fprintf(&b, "%s\n", strings.Repeat("-", len(file.SourceFile)))

		for _, a := range file.Axioms {
			marker := " "
			if a.NeedsReview {
				marker = "!"
			}
			fmt.Fprintf(&b, " %s [%.2f] %-13s L%-4d %s\n", marker, a.Confidence, a.AxiomType, a.Line, a.Content)
			if a.FormalSpec != "" {
				fmt.Fprintf(&b, "             spec: %s\n", a.FormalSpec)
			}
			if a.PropagatedFrom != "" {
				fmt.Fprintf(&b, "             from: %s (hops: %d)\n", a.PropagatedFrom, a.Hops)
			}
		}
		for _, e := range file.Errors {
			fmt.Fprintf(&b, " ERROR: %s\n", e)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w.writer, b.String())
	return err
}
