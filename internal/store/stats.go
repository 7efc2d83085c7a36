package store

import (
	"fmt"

	"restodocks/internal/model"
)

// OperationStat 按运行类型统计
type OperationStat struct {
	Operation model.Operation `json:"operation"`
	Runs      int             `json:"runs"`
	Failed    int             `json:"failed"`
	Formulas  int             `json:"formulas"`
	Appended  int             `json:"appended"`
}

// ListOperationStats 各运行类型的累计统计（按运行次数倒序）
func (s *Store) ListOperationStats() ([]OperationStat, error) {
	rows, err := s.db.Query(`
		SELECT
			operation,
			COUNT(1) AS runs,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS failed,
			COALESCE(SUM(formulas), 0),
			COALESCE(SUM(appended), 0)
		FROM runs
		GROUP BY operation
		ORDER BY runs DESC, operation ASC
	`, RunFailed)
	if err != nil {
		return nil, fmt.Errorf("query operation stats failed: %w", err)
	}
	defer rows.Close()

	var out []OperationStat
	for rows.Next() {
		var (
			it OperationStat
			op string
		)
		if err := rows.Scan(&op, &it.Runs, &it.Failed, &it.Formulas, &it.Appended); err != nil {
			return nil, fmt.Errorf("scan operation stats failed: %w", err)
		}
		it.Operation = model.Operation(op)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operation stats failed: %w", err)
	}
	return out, nil
}
