package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nabahlab/nabah/internal/models"
)

type AlertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Insert(ctx context.Context, a *models.Alert) error {
	query := r.db.rebind(`
		INSERT INTO alerts (id, person_id, alert_type, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query,
		a.ID, nullable(a.PersonID), a.AlertType, a.Reason, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (r *AlertRepository) List(ctx context.Context, limit int) ([]models.Alert, error) {
	query := r.db.rebind(`
		SELECT id, COALESCE(person_id, ''), alert_type, reason, created_at
		FROM alerts ORDER BY created_at DESC LIMIT ?`)

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.PersonID, &a.AlertType, &a.Reason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *AlertRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

func (r *AlertRepository) CountByType(ctx context.Context, alertType string) (int, error) {
	query := r.db.rebind(`SELECT COUNT(*) FROM alerts WHERE alert_type = ?`)
	var n int
	err := r.db.conn.QueryRowContext(ctx, query, alertType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts by type: %w", err)
	}
	return n, nil
}

func (r *AlertRepository) CountBetween(ctx context.Context, start, end time.Time) (int, error) {
	query := r.db.rebind(`SELECT COUNT(*) FROM alerts WHERE created_at >= ? AND created_at <= ?`)
	var n int
	err := r.db.conn.QueryRowContext(ctx, query, start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts in range: %w", err)
	}
	return n, nil
}
