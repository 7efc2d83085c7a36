package store

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// schemaVersion 写入 PRAGMA user_version；schema.sql 变更时递增
const schemaVersion = 1

// Store 运行日志：每次 link-prices / add-kbju / add-missing / all / convert
// 的汇总、各 sheet 结果与未解析名称都落在同一个 SQLite 文件里。
type Store struct {
	db *sql.DB
}

// New 打开（必要时创建）运行日志文件并迁移到当前版本
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create run log dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", dbPath, err)
	}
	// 写入只来自运行协调器，单连接即可避免 database is locked
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping run log %s: %w", dbPath, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

// migrate 按 user_version 判断是否需要执行 schema.sql
func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("read run log version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	ddl, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(string(ddl)); err != nil {
			return fmt.Errorf("apply run log schema: %w", err)
		}
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
			return fmt.Errorf("set run log version: %w", err)
		}
		return nil
	})
}

// Version 当前运行日志的 schema 版本
func (s *Store) Version() (int, error) {
	var v int
	err := s.db.QueryRow(`PRAGMA user_version`).Scan(&v)
	return v, err
}

// withTx fn 返回 nil 时提交，否则回滚
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
