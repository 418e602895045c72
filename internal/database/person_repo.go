package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nabahlab/nabah/internal/models"
)

type PersonRepository struct {
	db *DB
}

func NewPersonRepository(db *DB) *PersonRepository {
	return &PersonRepository{db: db}
}

func (r *PersonRepository) Insert(ctx context.Context, p *models.Person) error {
	query := r.db.rebind(`
		INSERT INTO persons (
			id, video_id, track_id, frame_number,
			has_mask, has_gloves, has_labcoat, has_glasses,
			in_red_zone, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query,
		p.ID, nullable(p.VideoID), nullable(p.TrackID), p.FrameNumber,
		p.HasMask, p.HasGloves, p.HasLabcoat, p.HasGlasses,
		p.InRedZone, p.Status, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id string) (*models.Person, error) {
	query := r.db.rebind(`
		SELECT id, COALESCE(video_id, ''), COALESCE(track_id, ''), frame_number,
			has_mask, has_gloves, has_labcoat, has_glasses,
			in_red_zone, status, created_at
		FROM persons WHERE id = ?`)

	p := &models.Person{}
	err := r.db.conn.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.VideoID, &p.TrackID, &p.FrameNumber,
		&p.HasMask, &p.HasGloves, &p.HasLabcoat, &p.HasGlasses,
		&p.InRedZone, &p.Status, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

func (r *PersonRepository) List(ctx context.Context, limit int) ([]models.Person, error) {
	query := r.db.rebind(`
		SELECT id, COALESCE(video_id, ''), COALESCE(track_id, ''), frame_number,
			has_mask, has_gloves, has_labcoat, has_glasses,
			in_red_zone, status, created_at
		FROM persons ORDER BY created_at DESC LIMIT ?`)

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(
			&p.ID, &p.VideoID, &p.TrackID, &p.FrameNumber,
			&p.HasMask, &p.HasGloves, &p.HasLabcoat, &p.HasGlasses,
			&p.InRedZone, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

func (r *PersonRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM persons`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count persons: %w", err)
	}
	return n, nil
}

func (r *PersonRepository) CountBetween(ctx context.Context, start, end time.Time) (int, error) {
	query := r.db.rebind(`SELECT COUNT(*) FROM persons WHERE created_at >= ? AND created_at <= ?`)
	var n int
	err := r.db.conn.QueryRowContext(ctx, query, start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count persons in range: %w", err)
	}
	return n, nil
}
