package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nabahlab/nabah/internal/models"
)

type VideoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) Insert(ctx context.Context, video *models.Video) error {
	query := r.db.rebind(`
		INSERT INTO videos (id, video_name, title, uploaded_by, uploaded_at)
		VALUES (?, ?, ?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query,
		video.ID, video.VideoName, video.Title, nullable(video.UploadedBy), video.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) GetByID(ctx context.Context, id string) (*models.Video, error) {
	query := r.db.rebind(`
		SELECT id, video_name, title, COALESCE(uploaded_by, ''), uploaded_at
		FROM videos WHERE id = ?`)

	video := &models.Video{}
	err := r.db.conn.QueryRowContext(ctx, query, id).Scan(
		&video.ID, &video.VideoName, &video.Title, &video.UploadedBy, &video.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return video, nil
}

func (r *VideoRepository) List(ctx context.Context, limit int) ([]models.Video, error) {
	query := r.db.rebind(`
		SELECT id, video_name, title, COALESCE(uploaded_by, ''), uploaded_at
		FROM videos ORDER BY uploaded_at DESC LIMIT ?`)

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.VideoName, &v.Title, &v.UploadedBy, &v.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *VideoRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return n, nil
}

// nullable maps an empty string to SQL NULL so optional references stay
// absent instead of pointing at "".
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
