package database

import (
	"context"
	"fmt"

	"github.com/nabahlab/nabah/internal/models"
)

type DetectionRepository struct {
	db *DB
}

func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

func (r *DetectionRepository) Insert(ctx context.Context, d *models.Detection) error {
	query := r.db.rebind(`
		INSERT INTO detections (id, class_name, confidence, x1, y1, x2, y2, frame_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query,
		d.ID, d.ClassName, d.Confidence,
		d.BBox.X1, d.BBox.Y1, d.BBox.X2, d.BBox.Y2,
		d.FramePath, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}
	return nil
}

func (r *DetectionRepository) List(ctx context.Context, limit int) ([]models.Detection, error) {
	query := r.db.rebind(`
		SELECT id, class_name, confidence, x1, y1, x2, y2, frame_path, created_at
		FROM detections ORDER BY created_at DESC LIMIT ?`)

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	defer rows.Close()

	var detections []models.Detection
	for rows.Next() {
		var d models.Detection
		if err := rows.Scan(&d.ID, &d.ClassName, &d.Confidence,
			&d.BBox.X1, &d.BBox.Y1, &d.BBox.X2, &d.BBox.Y2,
			&d.FramePath, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, d)
	}
	return detections, rows.Err()
}

func (r *DetectionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM detections`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}
	return n, nil
}
