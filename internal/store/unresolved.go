package store

import (
	"database/sql"
	"fmt"

	"restodocks/internal/model"
)

// InsertUnresolved 批量写入未解析名称
func (s *Store) InsertUnresolved(runID string, names []model.UnresolvedName) error {
	if len(names) == 0 {
		return nil
	}
	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO unresolved_names (run_id, sheet_name, row_no, name) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare unresolved insert: %w", err)
		}
		defer stmt.Close()

		for _, n := range names {
			if _, err := stmt.Exec(runID, n.Sheet, n.Row, n.Name); err != nil {
				return fmt.Errorf("insert unresolved %q: %w", n.Name, err)
			}
		}
		return nil
	})
}

// ListUnresolved 查询一次运行的未解析名称
func (s *Store) ListUnresolved(runID string) ([]model.UnresolvedName, error) {
	rows, err := s.db.Query(`
		SELECT sheet_name, row_no, name FROM unresolved_names WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query unresolved failed: %w", err)
	}
	defer rows.Close()

	var out []model.UnresolvedName
	for rows.Next() {
		var n model.UnresolvedName
		if err := rows.Scan(&n.Sheet, &n.Row, &n.Name); err != nil {
			return nil, fmt.Errorf("scan unresolved failed: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// NameCount 名称及出现次数
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TopUnresolved 跨运行统计最常见的未解析名称
func (s *Store) TopUnresolved(limit int) ([]NameCount, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT name, COUNT(1) AS c FROM unresolved_names
		GROUP BY name ORDER BY c DESC, name ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top unresolved failed: %w", err)
	}
	defer rows.Close()

	var out []NameCount
	for rows.Next() {
		var it NameCount
		if err := rows.Scan(&it.Name, &it.Count); err != nil {
			return nil, fmt.Errorf("scan top unresolved failed: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
