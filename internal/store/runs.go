package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restodocks/internal/model"
)

// ErrRunNotFound 运行记录不存在
var ErrRunNotFound = errors.New("run not found")

// Run 状态
const (
	RunProcessing = "processing"
	RunSuccess    = "success"
	RunFailed     = "failed"
)

// Run 运行记录
type Run struct {
	ID              string          `json:"id"`
	Operation       model.Operation `json:"operation"`
	InputPath       string          `json:"inputPath"`
	OutputPath      string          `json:"outputPath"`
	FileSize        int64           `json:"fileSize"`
	FileHash        string          `json:"fileHash"`
	Status          string          `json:"status"`
	TotalSheets     int             `json:"totalSheets"`
	ProcessedSheets int             `json:"processedSheets"`
	SkippedSheets   int             `json:"skippedSheets"`
	Formulas        int             `json:"formulas"`
	Summaries       int             `json:"summaries"`
	Appended        int             `json:"appended"`
	NutritionFilled int             `json:"nutritionFilled"`
	ConvertedCells  int             `json:"convertedCells"`
	Unresolved      int             `json:"unresolved"`
	Duration        time.Duration   `json:"duration"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	StartedAt       time.Time       `json:"startedAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// CreateRun 创建运行记录（状态 processing）
func (s *Store) CreateRun(id string, op model.Operation, inputPath string, fileSize int64, fileHash string) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, operation, input_path, file_size, file_hash, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, string(op), inputPath, fileSize, fileHash, RunProcessing)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun 写入运行结果；errMsg 非空时状态为 failed
func (s *Store) FinishRun(report *model.RunReport, errMsg string) error {
	status := RunSuccess
	if errMsg != "" {
		status = RunFailed
	}
	res, err := s.db.Exec(`
		UPDATE runs SET
			output_path = ?,
			status = ?,
			total_sheets = ?,
			processed_sheets = ?,
			skipped_sheets = ?,
			formulas = ?,
			summaries = ?,
			appended = ?,
			nutrition_filled = ?,
			converted_cells = ?,
			unresolved = ?,
			duration_ms = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		report.OutputPath, status,
		report.TotalSheets, report.ProcessedSheets, report.SkippedSheets,
		report.Formulas, report.Summaries, len(report.Appended),
		report.NutritionFilled, report.ConvertedCells, len(report.Unresolved),
		report.Duration.Milliseconds(), errMsg,
		report.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", report.RunID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `id, operation, input_path, output_path, file_size, file_hash, status,
	total_sheets, processed_sheets, skipped_sheets, formulas, summaries, appended,
	nutrition_filled, converted_cells, unresolved, duration_ms, error_message, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*Run, error) {
	var (
		r          Run
		op         string
		durationMS int64
		completed  sql.NullTime
	)
	err := sc.Scan(
		&r.ID, &op, &r.InputPath, &r.OutputPath, &r.FileSize, &r.FileHash, &r.Status,
		&r.TotalSheets, &r.ProcessedSheets, &r.SkippedSheets, &r.Formulas, &r.Summaries, &r.Appended,
		&r.NutritionFilled, &r.ConvertedCells, &r.Unresolved, &durationMS, &r.ErrorMessage, &r.StartedAt, &completed,
	)
	if err != nil {
		return nil, err
	}
	r.Operation = model.Operation(op)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	if completed.Valid {
		t := completed.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

// GetRun 按 id 查询运行记录
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns 最近的运行记录（按开始时间倒序）
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs failed: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run failed: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs failed: %w", err)
	}
	return out, nil
}

// DeleteRun 删除运行记录及其 sheet 结果与未解析名称
func (s *Store) DeleteRun(id string) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrRunNotFound)
	}
	return nil
}
