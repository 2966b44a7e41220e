package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// JSONWriter JSON格式报告写入器
type JSONWriter struct {
	writer io.Writer
}

// NewJSONWriter 创建JSON写入器
func NewJSONWriter(writer io.Writer) *JSONWriter {
	return &JSONWriter{writer: writer}
}

// Write 写入JSON报告
func (w *JSONWriter) Write(result *ScanResult) error {
	encoder := json.NewEncoder(w.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// GzipJSONWriter gzip压缩的JSON写入器
// 大代码库的报告体积可观，压缩后再归档
type GzipJSONWriter struct {
	writer io.Writer
}

// NewGzipJSONWriter 创建gzip JSON写入器
func NewGzipJSONWriter(writer io.Writer) *GzipJSONWriter {
	return &GzipJSONWriter{writer: writer}
}

// Write 写入压缩的JSON报告
func (w *GzipJSONWriter) Write(result *ScanResult) error {
	gz, err := gzip.NewWriterLevel(w.writer, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	encoder := json.NewEncoder(gz)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finalize gzip stream: %w", err)
	}
	return nil
}
