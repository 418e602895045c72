package database

import (
	"context"
	"testing"
)

func TestDocumentRepo_SQLiteUnsupported(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	docRepo := NewDocumentRepository(db)
	_, err := docRepo.Search(context.Background(), []float32{0.1, 0.2}, 8, 0.0)
	if err != ErrVectorUnsupported {
		t.Errorf("Expected ErrVectorUnsupported, got %v", err)
	}
}

func TestDocumentRepo_SearchPostgres(t *testing.T) {
	db, cleanup := setupPostgresTestDB(t)
	defer cleanup()

	docRepo := NewDocumentRepository(db)
	ctx := context.Background()

	emb := make([]float32, 768)
	emb[0] = 1
	if err := docRepo.Insert(ctx, "alerts", "alert: missing mask in zone A", emb); err != nil {
		t.Fatalf("Failed to insert document: %v", err)
	}

	far := make([]float32, 768)
	far[1] = 1
	if err := docRepo.Insert(ctx, "spills", "spill detected near bench 3", far); err != nil {
		t.Fatalf("Failed to insert document: %v", err)
	}

	snippets, err := docRepo.Search(ctx, emb, 8, 0.0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(snippets) != 2 {
		t.Fatalf("Expected 2 snippets with threshold 0, got %d", len(snippets))
	}
	if snippets[0].TableName != "alerts" {
		t.Errorf("Expected closest snippet from alerts, got %s", snippets[0].TableName)
	}
	if snippets[0].Similarity < snippets[1].Similarity {
		t.Error("Expected results ordered by similarity")
	}
}
