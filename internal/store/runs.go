package store

import (
	"database/sql"
	"fmt"
	"time"
)

// 运行状态
const (
	RunProcessing = "processing"
	RunSucceeded  = "succeeded"
	RunFailed     = "failed"
)

// Run 一次请求的运行记录
type Run struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Molecule    string     `json:"molecule"`
	Params      string     `json:"params"`
	Status      string     `json:"status"`
	ErrorKind   string     `json:"errorKind,omitempty"`
	Message     string     `json:"message,omitempty"`
	Points      int        `json:"points"`
	DurationMs  int64      `json:"durationMs"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// CreateRun 创建运行记录
func (s *Store) CreateRun(id, kind, molecule, params string) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, kind, molecule, params, status)
		VALUES (?, ?, ?, ?, ?)
	`, id, kind, molecule, params, RunProcessing)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun 完成运行记录更新
func (s *Store) CompleteRun(id, status, errorKind, message string, points int, elapsed time.Duration) error {
	res, err := s.db.Exec(`
		UPDATE runs SET
			status = ?,
			error_kind = ?,
			message = ?,
			points = ?,
			duration_ms = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, errorKind, message, points, elapsed.Milliseconds(), id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to complete run: %s not found", id)
	}
	return nil
}

// ListRuns 最近的运行记录（按创建时间倒序）
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, kind, molecule, params, status, error_kind, message, points, duration_ms, created_at, completed_at
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs failed: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var it Run
		var completed sql.NullTime
		if err := rows.Scan(&it.ID, &it.Kind, &it.Molecule, &it.Params, &it.Status, &it.ErrorKind,
			&it.Message, &it.Points, &it.DurationMs, &it.CreatedAt, &completed); err != nil {
			return nil, fmt.Errorf("scan runs failed: %w", err)
		}
		if completed.Valid {
			t := completed.Time
			it.CompletedAt = &t
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs failed: %w", err)
	}
	return out, nil
}
