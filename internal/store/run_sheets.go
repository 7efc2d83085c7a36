package store

import (
	"encoding/json"
	"fmt"
	"time"

	"restodocks/internal/model"
)

// InsertRunSheet 写入单个 sheet 的处理结果（用于追溯）
func (s *Store) InsertRunSheet(runID string, res model.SheetResult) error {
	_, err := s.db.Exec(`
		INSERT INTO run_sheets (
			run_id, sheet_name, operation, status,
			blocks, formulas, summaries, unresolved,
			errors_json, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, res.SheetName, string(res.Operation), string(res.Status),
		res.Blocks, res.Formulas, res.Summaries, len(res.Unresolved),
		BuildErrorsJSON(res.Errors), res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run_sheets: %w", err)
	}
	return nil
}

// ListRunSheets 查询一次运行的 sheet 结果（不含未解析名称明细）
func (s *Store) ListRunSheets(runID string) ([]model.SheetResult, error) {
	rows, err := s.db.Query(`
		SELECT sheet_name, operation, status, blocks, formulas, summaries, errors_json, duration_ms
		FROM run_sheets WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run_sheets failed: %w", err)
	}
	defer rows.Close()

	var out []model.SheetResult
	for rows.Next() {
		var (
			res        model.SheetResult
			op, status string
			errorsJSON string
			durationMS int64
		)
		if err := rows.Scan(&res.SheetName, &op, &status, &res.Blocks, &res.Formulas, &res.Summaries, &errorsJSON, &durationMS); err != nil {
			return nil, fmt.Errorf("scan run_sheets failed: %w", err)
		}
		res.Operation = model.Operation(op)
		res.Status = model.SheetStatus(status)
		res.Duration = time.Duration(durationMS) * time.Millisecond
		_ = json.Unmarshal([]byte(errorsJSON), &res.Errors)
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run_sheets failed: %w", err)
	}
	return out, nil
}

// BuildErrorsJSON 将错误列表序列化为 JSON
func BuildErrorsJSON(errs []string) string {
	if len(errs) == 0 {
		return "[]"
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return "[]"
	}
	return string(b)
}
