package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"axiomscan/internal/report"
)

// Store 扫描结果的持久化存储
// 每次扫描写入一行 runs，公理与调用边按 run_id 关联，便于跨次对比
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	tool         TEXT NOT NULL,
	version      TEXT NOT NULL,
	extracted_at TEXT NOT NULL,
	total_axioms INTEGER NOT NULL,
	total_calls  INTEGER NOT NULL,
	needs_review INTEGER NOT NULL,
	unresolved   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS axioms (
	run_id          TEXT NOT NULL REFERENCES runs(id),
	axiom_id        TEXT NOT NULL,
	source_file     TEXT NOT NULL,
	function        TEXT NOT NULL,
	content         TEXT NOT NULL,
	formal_spec     TEXT NOT NULL,
	axiom_type      TEXT NOT NULL,
	confidence      REAL NOT NULL,
	source_type     TEXT NOT NULL,
	line            INTEGER NOT NULL,
	hazard_type     TEXT,
	hazard_line     INTEGER,
	propagated_from TEXT,
	hops            INTEGER,
	needs_review    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS call_edges (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	caller     TEXT NOT NULL,
	callee     TEXT NOT NULL,
	line       INTEGER NOT NULL,
	arguments  TEXT NOT NULL,
	is_virtual INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_axioms_run ON axioms(run_id);
CREATE INDEX IF NOT EXISTS idx_axioms_function ON axioms(function);
CREATE INDEX IF NOT EXISTS idx_calls_run ON call_edges(run_id);
`

// Open 打开（必要时创建）数据库
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc 驱动串行化写入，单连接避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun 把一次扫描结果整体入库（单事务）
func (s *Store) SaveRun(ctx context.Context, result *report.ScanResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, tool, version, extracted_at, total_axioms, total_calls, needs_review, unresolved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Tool, result.Version, result.ExtractedAt,
		result.TotalAxioms, result.TotalCalls, result.NeedsReview, result.Unresolved)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	axiomStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO axioms (run_id, axiom_id, source_file, function, content, formal_spec,
		                     axiom_type, confidence, source_type, line, hazard_type, hazard_line,
		                     propagated_from, hops, needs_review)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare axiom insert: %w", err)
	}
	defer axiomStmt.Close()

	for _, file := range result.Files {
		for _, a := range file.Axioms {
			_, err := axiomStmt.ExecContext(ctx,
				result.RunID, a.ID, file.SourceFile, a.Function, a.Content, a.FormalSpec,
				a.AxiomType, a.Confidence, a.SourceType, a.Line,
				nullable(a.HazardType), nullableInt(a.HazardLine),
				nullable(a.PropagatedFrom), nullableInt(a.Hops), boolInt(a.NeedsReview))
			if err != nil {
				return fmt.Errorf("failed to insert axiom %s: %w", a.ID, err)
			}
		}
	}

	callStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO call_edges (run_id, caller, callee, line, arguments, is_virtual)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare call edge insert: %w", err)
	}
	defer callStmt.Close()

	for _, edge := range result.CallGraph {
		_, err := callStmt.ExecContext(ctx,
			result.RunID, edge.Caller, edge.Callee, edge.Line,
			strings.Join(edge.Arguments, ", "), boolInt(edge.IsVirtual))
		if err != nil {
			return fmt.Errorf("failed to insert call edge: %w", err)
		}
	}

	return tx.Commit()
}

// CountAxioms 返回某次扫描的公理数（用于入库校验）
func (s *Store) CountAxioms(ctx context.Context, runID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM axioms WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count axioms: %w", err)
	}
	return count, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
