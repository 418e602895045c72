package database

import (
	"context"
	"testing"
	"time"

	"github.com/nabahlab/nabah/internal/models"
)

func TestPersonRepo_RoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	videoRepo := NewVideoRepository(db)
	personRepo := NewPersonRepository(db)
	ctx := context.Background()

	video := models.NewVideo("cam01.mp4", "Morning shift", "")
	if err := videoRepo.Insert(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}

	person := models.NewPerson(video.ID, 42, true, false, true, true, true)
	if err := personRepo.Insert(ctx, person); err != nil {
		t.Fatalf("Failed to insert person: %v", err)
	}

	got, err := personRepo.GetByID(ctx, person.ID)
	if err != nil {
		t.Fatalf("Failed to get person: %v", err)
	}
	if got == nil {
		t.Fatal("Expected person, got nil")
	}

	if got.HasMask != true || got.HasGloves != false || got.HasLabcoat != true || got.HasGlasses != true {
		t.Errorf("PPE flags did not round-trip: %+v", got)
	}
	if got.InRedZone != true {
		t.Error("Expected in_red_zone to round-trip as true")
	}
	// Stored status must match what the flags derive, with no recomputation drift.
	if got.Status != models.StatusUnsafe {
		t.Errorf("Expected status %q, got %q", models.StatusUnsafe, got.Status)
	}
	if got.Status != models.StatusFor(got.HasMask, got.HasGloves, got.HasLabcoat, got.HasGlasses) {
		t.Error("Stored status disagrees with flags")
	}
	if got.FrameNumber != 42 {
		t.Errorf("Expected frame number 42, got %d", got.FrameNumber)
	}
	if got.VideoID != video.ID {
		t.Errorf("Expected video ref %s, got %s", video.ID, got.VideoID)
	}
}

func TestPersonRepo_NullVideoReference(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	personRepo := NewPersonRepository(db)
	ctx := context.Background()

	// A failed video insert leaves person rows with no video ref; the
	// insert must still succeed.
	person := models.NewPerson("", 1, true, true, true, true, false)
	if err := personRepo.Insert(ctx, person); err != nil {
		t.Fatalf("Failed to insert person without video: %v", err)
	}

	got, err := personRepo.GetByID(ctx, person.ID)
	if err != nil {
		t.Fatalf("Failed to get person: %v", err)
	}
	if got.VideoID != "" {
		t.Errorf("Expected empty video ref, got %q", got.VideoID)
	}
}

func TestPersonRepo_CountBetween(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	personRepo := NewPersonRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	times := []time.Time{
		now,
		now.Add(-26 * time.Hour),
		now.Add(-30 * time.Hour),
		now.Add(-10 * 24 * time.Hour),
	}
	for i, ts := range times {
		p := models.NewPerson("", i, true, true, true, true, false)
		p.CreatedAt = ts
		if err := personRepo.Insert(ctx, p); err != nil {
			t.Fatalf("Failed to insert person %d: %v", i, err)
		}
	}

	total, err := personRepo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 4 {
		t.Errorf("Expected 4 persons, got %d", total)
	}

	weekAgo := now.Add(-7 * 24 * time.Hour)
	n, err := personRepo.CountBetween(ctx, weekAgo, now)
	if err != nil {
		t.Fatalf("CountBetween failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 persons in the last week, got %d", n)
	}
}
