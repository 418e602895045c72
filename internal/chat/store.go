package chat

import (
	"context"
	"time"

	"github.com/nabahlab/nabah/internal/database"
	"github.com/nabahlab/nabah/internal/models"
)

// Store is the slice of the database the dispatcher needs: count
// aggregates, nothing else.
type Store interface {
	CountPersons(ctx context.Context) (int, error)
	CountPersonsBetween(ctx context.Context, start, end time.Time) (int, error)
	CountAlerts(ctx context.Context) (int, error)
	CountAlertsBetween(ctx context.Context, start, end time.Time) (int, error)
	CountPPEViolations(ctx context.Context) (int, error)
	CountSpills(ctx context.Context) (int, error)
	CountSpillsBetween(ctx context.Context, start, end time.Time) (int, error)
	CountDetections(ctx context.Context) (int, error)
	CountVideos(ctx context.Context) (int, error)
}

type repoStore struct {
	persons    *database.PersonRepository
	alerts     *database.AlertRepository
	spills     *database.SpillRepository
	detections *database.DetectionRepository
	videos     *database.VideoRepository
}

// NewStore adapts the concrete repositories to the Store interface.
func NewStore(
	persons *database.PersonRepository,
	alerts *database.AlertRepository,
	spills *database.SpillRepository,
	detections *database.DetectionRepository,
	videos *database.VideoRepository,
) Store {
	return &repoStore{
		persons:    persons,
		alerts:     alerts,
		spills:     spills,
		detections: detections,
		videos:     videos,
	}
}

func (s *repoStore) CountPersons(ctx context.Context) (int, error) {
	return s.persons.Count(ctx)
}

func (s *repoStore) CountPersonsBetween(ctx context.Context, start, end time.Time) (int, error) {
	return s.persons.CountBetween(ctx, start, end)
}

func (s *repoStore) CountAlerts(ctx context.Context) (int, error) {
	return s.alerts.Count(ctx)
}

func (s *repoStore) CountAlertsBetween(ctx context.Context, start, end time.Time) (int, error) {
	return s.alerts.CountBetween(ctx, start, end)
}

func (s *repoStore) CountPPEViolations(ctx context.Context) (int, error) {
	return s.alerts.CountByType(ctx, models.AlertTypePPEViolation)
}

func (s *repoStore) CountSpills(ctx context.Context) (int, error) {
	return s.spills.Count(ctx)
}

func (s *repoStore) CountSpillsBetween(ctx context.Context, start, end time.Time) (int, error) {
	return s.spills.CountBetween(ctx, start, end)
}

func (s *repoStore) CountDetections(ctx context.Context) (int, error) {
	return s.detections.Count(ctx)
}

func (s *repoStore) CountVideos(ctx context.Context) (int, error) {
	return s.videos.Count(ctx)
}
