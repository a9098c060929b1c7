// Package store 把命名的招牌设计与最近一次导出的 STL 保存在 SQLite 中。
// 导出数据以 zstd 压缩存储。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/export"
)

// ErrNotFound 表示没有该名称的设计。
var ErrNotFound = errors.New("store: design not found")

type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Record 是一条完整的设计记录。Export 为解压后的 STL，没有导出过时为 nil。
type Record struct {
	Name       string
	Design     config.Design
	Export     []byte
	ExportName string
	Triangles  int
	UpdatedAt  time.Time
}

// Summary 是 List 返回的简要信息。
type Summary struct {
	Name      string    `json:"name"`
	Title     string    `json:"title,omitempty"`
	HasExport bool      `json:"hasExport"`
	Triangles int       `json:"triangles"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Open 打开（必要时创建）path 处的数据库。
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS designs (
			name TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			design_json TEXT NOT NULL,
			export_name TEXT NOT NULL DEFAULT '',
			export_zst BLOB,
			triangles INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS designs_updated_at ON designs(updated_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database and codecs.
func (s *Store) Close() error {
	s.dec.Close()
	_ = s.enc.Close()
	return s.db.Close()
}

// Save 写入或覆盖设计本身，已保存的导出数据保持不变。
func (s *Store) Save(ctx context.Context, name string, d config.Design) error {
	if name == "" {
		return fmt.Errorf("store: empty design name")
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO designs(name, title, design_json, updated_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET title=excluded.title, design_json=excluded.design_json, updated_at=excluded.updated_at`,
		name, d.Meta.Title, string(raw), time.Now().UnixMilli())
	return err
}

// SaveExport 为已存在的设计附上一次导出结果。
func (s *Store) SaveExport(ctx context.Context, name string, doc *export.Document) error {
	if doc == nil {
		return fmt.Errorf("store: nil export")
	}
	compressed := s.enc.EncodeAll(doc.Data, nil)
	res, err := s.db.ExecContext(ctx, `
		UPDATE designs SET export_name=?, export_zst=?, triangles=?, updated_at=? WHERE name=?`,
		doc.Name, compressed, doc.Triangles, time.Now().UnixMilli(), name)
	if err != nil {
		return err
	}
	return expectRow(res, name)
}

// Load 读取设计与解压后的导出数据。
func (s *Store) Load(ctx context.Context, name string) (Record, error) {
	var (
		rec        Record
		designJSON string
		blob       []byte
		updated    int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, design_json, export_name, export_zst, triangles, updated_at FROM designs WHERE name=?`, name).
		Scan(&rec.Name, &designJSON, &rec.ExportName, &blob, &rec.Triangles, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(designJSON), &rec.Design); err != nil {
		return Record{}, fmt.Errorf("store: design %s: %w", name, err)
	}
	if len(blob) > 0 {
		rec.Export, err = s.dec.DecodeAll(blob, nil)
		if err != nil {
			return Record{}, fmt.Errorf("store: export %s: %w", name, err)
		}
	}
	rec.UpdatedAt = time.UnixMilli(updated)
	return rec, nil
}

// List 按更新时间从新到旧列出全部设计。
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, title, export_zst IS NOT NULL, triangles, updated_at FROM designs ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			updated int64
		)
		if err := rows.Scan(&sum.Name, &sum.Title, &sum.HasExport, &sum.Triangles, &updated); err != nil {
			return nil, err
		}
		sum.UpdatedAt = time.UnixMilli(updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete 删除设计。
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM designs WHERE name=?`, name)
	if err != nil {
		return err
	}
	return expectRow(res, name)
}

func expectRow(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
