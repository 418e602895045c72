package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nabahlab/nabah/internal/models"
)

type SpillRepository struct {
	db *DB
}

func NewSpillRepository(db *DB) *SpillRepository {
	return &SpillRepository{db: db}
}

func (r *SpillRepository) Insert(ctx context.Context, s *models.Spill) error {
	query := r.db.rebind(`
		INSERT INTO spills (id, video_id, frame_path, x1, y1, x2, y2, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query,
		s.ID, nullable(s.VideoID), s.FramePath,
		s.BBox.X1, s.BBox.Y1, s.BBox.X2, s.BBox.Y2,
		s.Confidence, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert spill: %w", err)
	}
	return nil
}

func (r *SpillRepository) List(ctx context.Context, limit int) ([]models.Spill, error) {
	query := r.db.rebind(`
		SELECT id, COALESCE(video_id, ''), frame_path, x1, y1, x2, y2, confidence, created_at
		FROM spills ORDER BY created_at DESC LIMIT ?`)

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list spills: %w", err)
	}
	defer rows.Close()

	var spills []models.Spill
	for rows.Next() {
		var s models.Spill
		if err := rows.Scan(&s.ID, &s.VideoID, &s.FramePath,
			&s.BBox.X1, &s.BBox.Y1, &s.BBox.X2, &s.BBox.Y2,
			&s.Confidence, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan spill: %w", err)
		}
		spills = append(spills, s)
	}
	return spills, rows.Err()
}

func (r *SpillRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM spills`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count spills: %w", err)
	}
	return n, nil
}

func (r *SpillRepository) CountBetween(ctx context.Context, start, end time.Time) (int, error) {
	query := r.db.rebind(`SELECT COUNT(*) FROM spills WHERE created_at >= ? AND created_at <= ?`)
	var n int
	err := r.db.conn.QueryRowContext(ctx, query, start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count spills in range: %w", err)
	}
	return n, nil
}
